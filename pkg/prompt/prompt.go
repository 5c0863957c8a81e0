// Package prompt renders text templates with named {field} placeholders.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
)

var placeholderRE = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// Field controls how one placeholder renders.
type Field struct {
	// Default is substituted when the value is missing.
	Default string `yaml:"default"`
	// Format is a fmt verb string applied to present values, e.g. "$%s".
	// Empty means the literal value.
	Format string `yaml:"format"`
}

// TemplateError reports a placeholder with no field definition.
type TemplateError struct {
	Template    string
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: undefined placeholder {%s}", e.Template, e.Placeholder)
}

// Template is a parsed prompt template. It is safe to reuse across records.
type Template struct {
	name   string
	text   string
	fields map[string]Field
	names  []string
}

// New parses text and checks every placeholder has a field definition.
func New(name, text string, fields map[string]Field) (*Template, error) {
	if text == "" {
		return nil, fmt.Errorf("template %q: empty text", name)
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRE.FindAllStringSubmatch(text, -1) {
		p := m[1]
		if _, ok := fields[p]; !ok {
			return nil, &TemplateError{Template: name, Placeholder: p}
		}
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}
	fs := make(map[string]Field, len(fields))
	for k, v := range fields {
		fs[k] = v
	}
	return &Template{name: name, text: text, fields: fs, names: names}, nil
}

// MustNew is like New but panics on error. Use it for built-in templates.
func MustNew(name, text string, fields map[string]Field) *Template {
	t, err := New(name, text, fields)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Text returns the raw template text.
func (t *Template) Text() string { return t.text }

// Placeholders returns the distinct placeholders in order of first use.
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Fields returns the defined field names, sorted.
func (t *Template) Fields() []string {
	out := make([]string, 0, len(t.fields))
	for k := range t.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WithText returns a copy of t using different text with the same field
// definitions.
func (t *Template) WithText(text string) (*Template, error) {
	return New(t.name, text, t.fields)
}

// Render substitutes every placeholder. Missing or empty values render as
// the field's default.
func (t *Template) Render(values map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(t.text, func(m string) string {
		name := m[1 : len(m)-1]
		f := t.fields[name]
		v, ok := values[name]
		if !ok || v == "" {
			return f.Default
		}
		if f.Format != "" {
			return fmt.Sprintf(f.Format, v)
		}
		return v
	})
}
