package tools

import (
	"context"
	"encoding/json"
	"strings"

	"mcpchat/pkg/mcpclient"
)

// proxyTool forwards Invoke to tools/call on a connected MCP server.
// Content blocks in the result are concatenated for text and noted by
// type for anything non-text (images, embedded resources), matching how
// the original chat session renders tool output inline.
type proxyTool struct {
	server      string
	name        string
	description string
	schema      json.RawMessage
	client      *mcpclient.Client
}

// Name returns the bare tool name as advertised by the server.
func (p *proxyTool) Name() string { return p.name }

// Description returns the server-supplied description.
func (p *proxyTool) Description() string { return p.description }

// InputSchema returns the server-supplied JSON Schema for arguments.
func (p *proxyTool) InputSchema() json.RawMessage { return p.schema }

// RequiresAcceptance is true for every MCP-proxied tool: the client has no
// way to know in advance whether a server's tool mutates state, so every
// invocation is gated on human approval unless the session trusts this
// tool by name or trusts all tools.
func (p *proxyTool) RequiresAcceptance() bool { return true }

// Invoke calls tools/call on the originating server and flattens its
// content blocks into a single result string.
func (p *proxyTool) Invoke(ctx context.Context, args map[string]any) (*Result, error) {
	callResult, err := p.client.CallTool(ctx, p.name, args)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, item := range callResult.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		switch item.Type {
		case "text":
			b.WriteString(item.Text)
		case "image":
			b.WriteString("[image content omitted: " + item.MimeType + "]")
		case "resource":
			b.WriteString("[embedded resource: " + item.MimeType + "]")
		default:
			b.WriteString("[" + item.Type + " content]")
		}
	}

	return &Result{Content: b.String(), IsError: callResult.IsError}, nil
}
