// Package tasks defines the built-in generation tasks: which prompts are
// rendered for a hotel, how answers are shaped, and where they are stored.
package tasks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
	"github.com/pario-ai/propgen/pkg/prompt"
	"github.com/pario-ai/propgen/pkg/store"
)

// ErrUnknownTask is returned by Lookup for a name with no definition.
var ErrUnknownTask = errors.New("unknown task")

// Step is one prompt sent per hotel. Its answer is stored in Column.
type Step struct {
	Name        string
	Template    *prompt.Template
	MaxTokens   int
	Temperature float64
	Column      string
	// Parse converts the answer into the stored value. Nil stores the text.
	Parse func(text string) (any, error)
}

// Value shapes a generated answer for storage.
func (s Step) Value(text string) (any, error) {
	if s.Parse == nil {
		return text, nil
	}
	v, err := s.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", s.Name, err)
	}
	return v, nil
}

// Task is a named sequence of steps writing to one result table.
type Task struct {
	Name        string
	Description string
	Table       store.Table
	// Reset empties Table before the run.
	Reset bool
	Steps []Step
	// Copy returns source columns stored alongside the generated ones.
	Copy func(h models.Hotel) map[string]any
}

// Row returns the columns copied from h.
func (t *Task) Row(h models.Hotel) map[string]any {
	if t.Copy == nil {
		return map[string]any{}
	}
	return t.Copy(h)
}

// Step returns the step called name.
func (t *Task) Step(name string) (Step, bool) {
	for _, s := range t.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Apply returns a copy of t with overrides from cfg. Replacement prompt
// text is checked against the step's field definitions.
func (t *Task) Apply(cfg config.TaskConfig) (*Task, error) {
	out := *t
	out.Steps = make([]Step, len(t.Steps))
	copy(out.Steps, t.Steps)

	if cfg.Reset != nil {
		out.Reset = *cfg.Reset
	}
	for i := range out.Steps {
		if cfg.MaxTokens > 0 {
			out.Steps[i].MaxTokens = cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			out.Steps[i].Temperature = *cfg.Temperature
		}
	}
	for name, text := range cfg.Prompts {
		idx := -1
		for i, s := range out.Steps {
			if s.Name == name {
				idx = i
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("task %s: no step %q", t.Name, name)
		}
		tmpl, err := out.Steps[idx].Template.WithText(text)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
		out.Steps[idx].Template = tmpl
	}
	return &out, nil
}

var registry = map[string]*Task{}

func register(t *Task) {
	registry[t.Name] = t
}

// Lookup returns the built-in task called name.
func Lookup(name string) (*Task, error) {
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTask, name)
	}
	return t, nil
}

// All returns the built-in tasks sorted by name.
func All() []*Task {
	out := make([]*Task, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve looks up name and applies its overrides from cfg, if any.
func Resolve(name string, cfg *config.Config) (*Task, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return t, nil
	}
	if tc, ok := cfg.Tasks[name]; ok {
		return t.Apply(tc)
	}
	return t, nil
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
