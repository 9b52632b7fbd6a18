// Package template renders the generation prompt for one task.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	_ "embed"
)

// DefaultPrompt is the built-in response generation prompt. A spec may point
// prompt_template at a file to replace it.
//
//go:embed prompt.txt
var DefaultPrompt string

// Context holds the variables available to the generation prompt.
type Context struct {
	Domain string
	Prompt string
}

// Render resolves template expressions in the given string using Go's
// text/template syntax: {{.Domain}}, {{.Prompt}}. Unknown fields are an
// error rather than silently rendering as "<no value>". Returns the input
// unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	// Fast path: no template delimiters means no work to do.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

// Load reads a prompt template from path, falling back to DefaultPrompt when
// path is empty.
func Load(path string) (string, error) {
	if path == "" {
		return DefaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("template: read %s: %w", path, err)
	}
	return string(data), nil
}
