package llmstream

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"

	"mcpchat/pkg/mcperrors"
)

// GoogleProvider implements Provider against the Gemini API via
// google.golang.org/genai.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// NewGoogleProvider constructs a provider bound to an already-configured
// genai.Client (constructed with genai.BackendGeminiAPI or Vertex AI,
// per the caller's deployment).
func NewGoogleProvider(client *genai.Client, model string) *GoogleProvider {
	return &GoogleProvider{client: client, model: model}
}

// DefaultModel returns the configured model identifier.
func (g *GoogleProvider) DefaultModel() string { return g.model }

func (g *GoogleProvider) buildContents(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	systemPrompt, rest := ExtractSystemPrompt(req.Messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     genai.Ptr(float32(req.Temperature)),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			var schema *genai.Schema
			var raw map[string]any
			if len(spec.InputSchema) > 0 {
				_ = json.Unmarshal(spec.InputSchema, &raw)
			}
			schema = &genai.Schema{Type: genai.TypeObject}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  schema,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		var parts []*genai.Part
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: tc.Parameters}})
		}
		for _, tr := range m.ToolResults {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     tr.ToolCallID,
				Response: map[string]any{"content": tr.Content, "isError": tr.IsError},
			}})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	return contents, config
}

// Complete sends req and waits for the full response.
func (g *GoogleProvider) Complete(ctx context.Context, req Request) (Response, error) {
	contents, config := g.buildContents(req)

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Response{}, mcperrors.Wrap(mcperrors.KindResponseStream, err, "gemini request failed")
	}
	if len(result.Candidates) == 0 {
		return Response{}, mcperrors.New(mcperrors.KindResponseStream, "empty response from model")
	}

	var out Response
	out.Model = g.model
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:         part.FunctionCall.Name,
				Name:       part.FunctionCall.Name,
				Parameters: part.FunctionCall.Args,
			})
		}
	}
	return out, nil
}

// Stream wraps Complete into the typed event sequence.
func (g *GoogleProvider) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		resp, err := g.Complete(ctx, req)
		if err != nil {
			errc <- &StreamError{Kind: StreamTransport, Err: err}
			return
		}
		if resp.Content != "" {
			events <- Event{Kind: EventAssistantText, Text: resp.Content}
		}
		for _, tc := range resp.ToolCalls {
			events <- Event{Kind: EventToolUseStart, ToolUse: ToolCall{ID: tc.ID, Name: tc.Name}}
			events <- Event{Kind: EventToolUse, ToolUse: tc}
		}
		events <- Event{Kind: EventEndStream, Message: resp}
	}()

	return events, errc
}
