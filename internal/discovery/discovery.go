// Package discovery scans a directory tree of unit folders for generator
// manifests and resolves each manifest to a registered generator.
//
// A plugin file is <topic>_generator.yaml inside a unit directory. It lists
// the class names it exposes; the first class that follows the naming
// convention and is bound in the registry becomes that file's generator.
// Files that fail any step are reported as warnings and the scan moves on.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

// DefaultUnitPattern matches unit directory names.
const DefaultUnitPattern = "^Unit"

// FileSuffix is the naming convention for generator manifests.
const FileSuffix = "_generator.yaml"

// DiscoveredGenerator is one qualifying file found by a scan. Values are
// regenerated on every scan.
type DiscoveredGenerator struct {
	GroupLabel   string              `json:"group_label"`
	DisplayName  string              `json:"display_name"`
	Descriptor   registry.Descriptor `json:"descriptor"`
	SourcePath   string              `json:"source_path"`
	ModuleKey    string              `json:"module_key"`
	ClassName    string              `json:"class_name"`
	Description  string              `json:"description,omitempty"`
	Difficulties []plugin.Difficulty `json:"difficulties,omitempty"`
}

// Warning records a candidate file that was skipped.
type Warning struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return w.Path + ": " + w.Reason
}

// Result holds the outcome of one scan.
type Result struct {
	Root       string                `json:"root"`
	Generators []DiscoveredGenerator `json:"generators"`
	Warnings   []Warning             `json:"warnings"`
}

// Discoverer scans directories against a registry.
type Discoverer struct {
	reg    *registry.Registry
	unitRe *regexp.Regexp
	logger *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithUnitPattern overrides the unit directory pattern.
func WithUnitPattern(re *regexp.Regexp) Option {
	return func(d *Discoverer) { d.unitRe = re }
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = l }
}

// New creates a Discoverer resolving classes against reg.
func New(reg *registry.Registry, opts ...Option) *Discoverer {
	d := &Discoverer{
		reg:    reg,
		unitRe: regexp.MustCompile(DefaultUnitPattern),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan walks the immediate unit subdirectories of root. It returns an error
// only when root itself cannot be read.
func (d *Discoverer) Scan(root string) (*Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading generator root %s: %w", root, err)
	}

	res := &Result{Root: root}
	for _, unit := range unitDirs(root, entries, d.unitRe) {
		d.scanUnit(root, unit, res)
	}
	for _, w := range res.Warnings {
		d.logger.Warn("generator skipped", "path", w.Path, "reason", w.Reason)
	}
	return res, nil
}

func unitDirs(root string, entries []os.DirEntry, re *regexp.Regexp) []string {
	var units []string
	for _, e := range entries {
		if !re.MatchString(e.Name()) {
			continue
		}
		isDir := e.IsDir()
		if !isDir && e.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(filepath.Join(root, e.Name())); err == nil {
				isDir = fi.IsDir()
			}
		}
		if isDir {
			units = append(units, e.Name())
		}
	}
	sort.Strings(units)
	return units
}

func (d *Discoverer) scanUnit(root, unit string, res *Result) {
	dir := filepath.Join(root, unit)
	entries, err := os.ReadDir(dir)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{Path: dir, Reason: fmt.Sprintf("unreadable unit directory: %v", err)})
		return
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsCandidate(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		gen, err := d.load(root, unit, path)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Path: path, Reason: err.Error()})
			continue
		}
		res.Generators = append(res.Generators, gen)
	}
}

// IsCandidate reports whether a file name follows the generator manifest
// convention and is not a package-init file.
func IsCandidate(name string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.Contains(name, "__init__") {
		return false
	}
	return strings.HasSuffix(name, FileSuffix) && len(name) > len(FileSuffix)
}

func (d *Discoverer) load(root, unit, path string) (DiscoveredGenerator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DiscoveredGenerator{}, fmt.Errorf("unreadable: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return DiscoveredGenerator{}, err
	}

	desc, class, ok := d.selectClass(m)
	if !ok {
		return DiscoveredGenerator{}, fmt.Errorf("no qualifying generator class among %v", m.Classes)
	}

	diffs := make([]plugin.Difficulty, 0, len(m.Difficulties))
	for _, s := range m.Difficulties {
		diff, err := plugin.ParseDifficulty(s)
		if err != nil {
			return DiscoveredGenerator{}, err
		}
		diffs = append(diffs, diff)
	}

	display := m.DisplayName
	if display == "" {
		display = DisplayName(filepath.Base(path))
	}
	description := m.Description
	if description == "" {
		description = desc.Description
	}

	return DiscoveredGenerator{
		GroupLabel:   unit,
		DisplayName:  display,
		Descriptor:   desc,
		SourcePath:   path,
		ModuleKey:    ModuleKey(root, path),
		ClassName:    class,
		Description:  description,
		Difficulties: diffs,
	}, nil
}

// selectClass returns the first listed class that follows the naming
// convention and resolves to a descriptor with a usable signature.
func (d *Discoverer) selectClass(m *Manifest) (registry.Descriptor, string, bool) {
	for _, class := range m.Classes {
		if class == registry.ClassSuffix || !strings.HasSuffix(class, registry.ClassSuffix) {
			continue
		}
		desc, ok := d.reg.LookupClass(class)
		if !ok || !desc.Constructor.Valid() {
			continue
		}
		if m.Signature != "" && plugin.Signature(m.Signature) != desc.Signature() {
			continue
		}
		return desc, class, true
	}
	return registry.Descriptor{}, "", false
}

// DisplayName derives a human-readable name from a manifest file name:
// "addition_within_20_generator.yaml" becomes "Addition Within 20".
func DisplayName(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stem = strings.TrimSuffix(stem, "_generator")
	stem = strings.ReplaceAll(stem, "_", " ")
	return cases.Title(language.English).String(stem)
}

// ModuleKey synthesizes a unique dotted key from path relative to root, so
// files sharing a base name in different units never collide.
func ModuleKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return strings.ToLower(strings.Join(parts, "."))
}
