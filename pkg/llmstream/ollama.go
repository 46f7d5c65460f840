package llmstream

import (
	"context"
	"net/url"

	"github.com/ollama/ollama/api"

	"mcpchat/pkg/mcperrors"
)

// OllamaProvider implements Provider against a local Ollama server.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider constructs a provider pointed at baseURL (e.g.
// "http://localhost:11434").
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.KindInvalidPath, err, "parse ollama base url")
	}
	return &OllamaProvider{client: api.NewClient(parsed, nil), model: model}, nil
}

// DefaultModel returns the configured model identifier.
func (o *OllamaProvider) DefaultModel() string { return o.model }

func (o *OllamaProvider) buildMessages(req Request) []api.Message {
	out := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := string(m.Role)
		if len(m.ToolResults) > 0 {
			for _, tr := range m.ToolResults {
				out = append(out, api.Message{Role: "tool", Content: tr.Content})
			}
			continue
		}
		msg := api.Message{Role: role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: api.ToolCallFunctionArguments(tc.Parameters),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// Complete sends req and waits for the full response.
func (o *OllamaProvider) Complete(ctx context.Context, req Request) (Response, error) {
	apiReq := &api.ChatRequest{
		Model:    o.model,
		Messages: o.buildMessages(req),
		Stream:   api.Bool(false),
	}

	var out Response
	out.Model = o.model

	err := o.client.Chat(ctx, apiReq, func(resp api.ChatResponse) error {
		out.Content += resp.Message.Content
		for _, tc := range resp.Message.ToolCalls {
			params := map[string]any(tc.Function.Arguments)
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Parameters: params})
		}
		return nil
	})
	if err != nil {
		return Response{}, mcperrors.Wrap(mcperrors.KindResponseStream, err, "ollama request failed")
	}
	return out, nil
}

// Stream wraps Complete into the typed event sequence.
func (o *OllamaProvider) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		resp, err := o.Complete(ctx, req)
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
