package tools

import (
	"github.com/pkg/errors"
)

// Registry is the fixed set of tools the planner may invoke. It is built once
// at startup and never mutated afterwards, so concurrent reads need no locking.
type Registry struct {
	order []string
	tools map[string]ToolDefinition
}

// NewRegistry validates the definitions and returns an immutable registry.
// Every definition needs a unique, non-empty name and a handler.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{tools: make(map[string]ToolDefinition, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if def.Function == nil {
			return nil, errors.Errorf("tool %s has no handler", def.Name)
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, errors.Errorf("tool %s registered twice", def.Name)
		}
		r.tools[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	return r, nil
}

// Lookup retrieves a tool by name
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	if r == nil {
		return ToolDefinition{}, false
	}
	def, ok := r.tools[name]
	return def, ok
}

// Definitions returns the tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	if r == nil {
		return nil
	}
	ret := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		ret = append(ret, r.tools[name])
	}
	return ret
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
