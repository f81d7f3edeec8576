// Package toolserver exposes the operator tool-server contract of
// spec.md §6.3: every named operation (retrieve, lookup, dependencies,
// search, structure, graph analysis, pipeline control, feedback) as a
// Tool behind one JSON-RPC 2.0 server, grounded on the teacher's
// internal/mcp package (Tool/Resource/Transport, ToolRegistry's
// conditionally-registered-tools pattern).
package toolserver

import (
	"context"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

// Tool is one operator-facing operation. It mirrors the teacher's
// mcp.Tool shape: a name, a human description, a JSON schema for its
// parameters, and an executor.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// ToolDefinition is the list-able shape of a Tool, without its executor.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Response is the uniform wrapper spec.md §6.3 specifies: every tool
// call returns {ok, result|error, error_type}.
type Response struct {
	OK        bool   `json:"ok"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// Registry holds every registered Tool by name.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tool, keyed by its own Name(). Registering the same name
// twice replaces the earlier tool, matching the teacher's tolerant
// re-registration behavior elsewhere in the codebase (unit.Store, graph).
func (r *Registry) Register(tool Tool) {
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Definitions lists every registered tool in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, ToolDefinition{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return defs
}

// Call executes the named tool and wraps its outcome in a Response.
// Unknown tool names and execution errors both produce ok=false
// responses rather than propagating a Go error, matching spec.md §6.3's
// "response schemas are uniform wrappers" contract — the JSON-RPC layer
// above Call only ever sees success.
func (r *Registry) Call(ctx context.Context, name string, params map[string]any) Response {
	tool, ok := r.tools[name]
	if !ok {
		return Response{OK: false, Error: "unknown tool: " + name, ErrorType: string(rerr.KindValidation)}
	}
	result, err := tool.Execute(ctx, params)
	if err != nil {
		return Response{OK: false, Error: err.Error(), ErrorType: string(rerr.KindOf(err))}
	}
	return Response{OK: true, Result: result}
}
