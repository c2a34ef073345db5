// Package tool defines the tool contract and the ordered registry that the
// agent and the HTTP API dispatch into.
package tool

import (
	"context"
)

// Input is the argument object handed to a tool.
type Input = map[string]any

// Parameter describes one named tool argument. It is advisory metadata.
type Parameter struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Definition is the public description of a tool.
type Definition struct {
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description" yaml:"description"`
	Parameters  map[string]Parameter `json:"parameters" yaml:"parameters"`
}

// Tool is the interface all tools must implement
type Tool interface {
	Info() Definition
	Execute(ctx context.Context, input Input) (any, error)
}

// Func adapts a definition and a plain function into a Tool.
type Func struct {
	Def Definition
	Fn  func(ctx context.Context, input Input) (any, error)
}

func (f Func) Info() Definition { return f.Def }

func (f Func) Execute(ctx context.Context, input Input) (any, error) {
	return f.Fn(ctx, input)
}

type ToolError string

func (e ToolError) Error() string { return string(e) }

const (
	ErrToolNotFound ToolError = "tool not found"
	ErrInvalidArgs  ToolError = "invalid arguments"
)

var _ Tool = Func{}
