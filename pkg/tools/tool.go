// Package tools implements the Tool Manager: a catalog of built-in and
// MCP-server-proxied tools, each with an input schema and an acceptance
// policy, that the chat state machine validates and executes on the
// model's behalf.
package tools

import (
	"context"
	"encoding/json"
)

// Result is the outcome of invoking a tool, formatted for inclusion back
// into the conversation as a tool-result content block.
type Result struct {
	Content string
	IsError bool
}

// Tool is a single callable action exposed to the model, either
// implemented locally or proxied to a connected MCP server.
type Tool interface {
	// Name is the identifier the model uses to call this tool.
	Name() string
	// Description is shown to the model and, on request, to the user.
	Description() string
	// InputSchema is the JSON Schema the model's arguments must satisfy.
	InputSchema() json.RawMessage
	// RequiresAcceptance reports whether invoking this tool needs an
	// explicit human go-ahead before it runs (anything that mutates
	// state or leaves the local sandbox).
	RequiresAcceptance() bool
	// Invoke runs the tool with already-validated arguments.
	Invoke(ctx context.Context, args map[string]any) (*Result, error)
}

// Spec is the model-facing, provider-agnostic shape of a tool definition,
// independent of which LLM SDK eventually encodes it.
type Spec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}
