// Package tool implements the agent-facing presenters: the eight
// operations an agent may call, each formatting a Provider response
// through a Pipeline-bound lens (spec.md §4.6).
package tool

import (
	"context"
	"encoding/json"

	"github.com/agentcloak/mailproxy/filter"
	"github.com/agentcloak/mailproxy/provider"
	"github.com/agentcloak/mailproxy/types"
)

// Tool is one presenter bound to a specific request's pipeline and
// provider. Execute never panics outward; ExecuteTool recovers any
// panic into a types.ToolError (spec.md §7 "internal" error kind).
type Tool interface {
	Definition() types.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Factory builds a Tool bound to the pipeline and provider of one
// request. Tools are never shared across requests.
type Factory func(p *filter.Pipeline, prov provider.Provider) Tool

// FuncTool adapts a definition and closure into a Tool, mirroring the
// presenter construction every presenter file in this package uses.
type FuncTool struct {
	def types.ToolDefinition
	fn  func(ctx context.Context, args json.RawMessage) (any, error)
}

func newFuncTool(name, description string, schema map[string]any, fn func(ctx context.Context, args json.RawMessage) (any, error)) *FuncTool {
	return &FuncTool{
		def: types.ToolDefinition{Name: name, Description: description, JSONSchema: schema},
		fn:  fn,
	}
}

func (t *FuncTool) Definition() types.ToolDefinition { return t.def }

func (t *FuncTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	return t.fn(ctx, args)
}
