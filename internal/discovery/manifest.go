package discovery

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

//go:embed schema/generator.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// Manifest is the parsed content of a *_generator.yaml file.
type Manifest struct {
	API          string   `yaml:"api"`
	Description  string   `yaml:"description"`
	DisplayName  string   `yaml:"display_name"`
	Signature    string   `yaml:"signature"`
	Classes      []string `yaml:"classes"`
	Difficulties []string `yaml:"difficulties"`
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("generator.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("generator.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ParseManifest decodes and validates manifest bytes. Syntax errors, schema
// violations and API version mismatches are all returned as errors.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("manifest is empty")
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	if m.API != "" {
		if err := checkAPI(m.API); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func validate(raw any) error {
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("converting to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("unexpected validation error type: %w", err)
	}
	return fmt.Errorf("schema: %s", strings.Join(collectIssues(ve, nil), "; "))
}

// collectIssues flattens the leaf causes of a validation error into
// "path: message" strings.
func collectIssues(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		return append(out, path+": "+msg)
	}
	for _, cause := range ve.Causes {
		out = collectIssues(cause, out)
	}
	return out
}

// normalizeYAML converts YAML-decoded values into types encoding/json can
// marshal. yaml/v3 decodes mappings with non-string keys as map[any]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}

func checkAPI(constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid api constraint %q: %w", constraint, err)
	}
	v := semver.MustParse(plugin.APIVersion)
	if !c.Check(v) {
		return fmt.Errorf("api constraint %q not satisfied by generator API %s", constraint, plugin.APIVersion)
	}
	return nil
}
