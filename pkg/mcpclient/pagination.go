package mcpclient

import "context"

// ListTools retrieves every tool a server exposes, following nextCursor
// until the server stops returning one.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var all []Tool
	cursor := ""
	for {
		var result ListToolsResult
		if err := c.Request(ctx, "tools/list", PaginatedParams{Cursor: cursor}, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Tools...)
		if result.NextCursor == nil || *result.NextCursor == "" {
			return all, nil
		}
		cursor = *result.NextCursor
	}
}

// ListResources retrieves every resource a server exposes.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var all []Resource
	cursor := ""
	for {
		var result ListResourcesResult
		if err := c.Request(ctx, "resources/list", PaginatedParams{Cursor: cursor}, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Resources...)
		if result.NextCursor == nil || *result.NextCursor == "" {
			return all, nil
		}
		cursor = *result.NextCursor
	}
}

// ListResourceTemplates retrieves every resource template a server exposes.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]ResourceTemplate, error) {
	var all []ResourceTemplate
	cursor := ""
	for {
		var result ListResourceTemplatesResult
		if err := c.Request(ctx, "resources/templates/list", PaginatedParams{Cursor: cursor}, &result); err != nil {
			return nil, err
		}
		all = append(all, result.ResourceTemplates...)
		if result.NextCursor == nil || *result.NextCursor == "" {
			return all, nil
		}
		cursor = *result.NextCursor
	}
}

// ListPrompts retrieves every prompt template a server exposes.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var all []Prompt
	cursor := ""
	for {
		var result ListPromptsResult
		if err := c.Request(ctx, "prompts/list", PaginatedParams{Cursor: cursor}, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Prompts...)
		if result.NextCursor == nil || *result.NextCursor == "" {
			return all, nil
		}
		cursor = *result.NextCursor
	}
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	var result CallToolResult
	if err := c.Request(ctx, "tools/call", CallToolParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource fetches the content of a single resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	var result ReadResourceResult
	if err := c.Request(ctx, "resources/read", ReadResourceParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders a named prompt template with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*GetPromptResult, error) {
	var result GetPromptResult
	if err := c.Request(ctx, "prompts/get", GetPromptParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
