// Package render writes generated problems to a worksheet file.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

// Renderer writes a worksheet for a set of problems to path.
type Renderer interface {
	Render(path, title string, problems []plugin.Problem, includeAnswerKey bool) error
}

//go:embed worksheet.tex.tmpl
var worksheetTmpl string

// LaTeX renders worksheets as standalone LaTeX documents.
type LaTeX struct {
	tmpl *template.Template
}

// NewLaTeX creates a LaTeX renderer using the built-in template.
func NewLaTeX() *LaTeX {
	return &LaTeX{
		tmpl: template.Must(template.New("worksheet").Funcs(template.FuncMap{
			"escape": EscapeText,
			"inc":    func(i int) int { return i + 1 },
		}).Parse(worksheetTmpl)),
	}
}

type worksheetData struct {
	Title     string
	Problems  []plugin.Problem
	AnswerKey bool
}

// Render writes the document atomically: the file at path either holds a
// complete worksheet or does not exist.
func (l *LaTeX) Render(path, title string, problems []plugin.Problem, includeAnswerKey bool) error {
	if len(problems) == 0 {
		return fmt.Errorf("no problems to render")
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, worksheetData{
		Title:     title,
		Problems:  problems,
		AnswerKey: includeAnswerKey,
	}); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpName := TempPath(path)
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write worksheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close worksheet: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename worksheet: %w", err)
	}
	return nil
}

// TempPath is the hidden file a worksheet for path is staged in before the
// rename. A worker killed mid-render leaves it behind; the scheduler removes
// it for every failed item.
func TempPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
}

var textEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeText escapes LaTeX special characters in plain text such as titles.
// Problem bodies are already LaTeX and are not escaped.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
