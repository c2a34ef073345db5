package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// ToolRegistry defines the read side of tool management
type ToolRegistry interface {
	Get(name string) (Tool, bool)
	List() []Tool
	Has(name string) bool
	Execute(ctx context.Context, name string, input Input) (any, error)
}

// Registry holds tools by name and remembers registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds t, replacing any tool with the same name.
// A replaced tool keeps its original position.
func (r *Registry) Register(t Tool) {
	name := t.Info().Name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Definitions() []Definition {
	tools := r.List()
	out := make([]Definition, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Info())
	}
	return out
}

// Match returns tools whose name matches a doublestar glob, in order.
// An empty pattern matches everything.
func (r *Registry) Match(pattern string) ([]Tool, error) {
	if pattern == "" {
		return r.List(), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad filter pattern %q", ErrInvalidArgs, pattern)
	}
	var out []Tool
	for _, t := range r.List() {
		if ok, _ := doublestar.Match(pattern, t.Info().Name); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Registry) Execute(ctx context.Context, name string, input Input) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if input == nil {
		input = Input{}
	}
	return t.Execute(ctx, input)
}

// DefaultRegistry returns a registry with the built-in tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewEcho())
	r.Register(NewCalculator())
	return r
}

// Verify Registry implements ToolRegistry
var _ ToolRegistry = (*Registry)(nil)
