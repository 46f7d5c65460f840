package llmstream

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"mcpchat/pkg/mcperrors"
)

// OpenAIProvider implements Provider against the OpenAI Responses API.
// Like the ollama and google providers, true incremental streaming is not
// wired: Stream synthesizes a text event followed by any tool_use events
// and an EventEndStream from a single synchronous Complete call.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider constructs a provider for the given API key and model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// DefaultModel returns the configured model identifier.
func (o *OpenAIProvider) DefaultModel() string { return o.model }

func (o *OpenAIProvider) inputText(req Request) string {
	systemPrompt, rest := ExtractSystemPrompt(req.Messages)
	text := systemPrompt
	for _, m := range rest {
		if text != "" {
			text += "\n\n"
		}
		text += string(m.Role) + ": " + m.Content
	}
	return text
}

// Complete sends req and waits for the full response.
func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(o.inputText(req))},
	}

	if len(req.Tools) > 0 {
		toolParams := make([]responses.ToolUnionParam, 0, len(req.Tools))
		for _, spec := range req.Tools {
			var schema map[string]any
			if len(spec.InputSchema) > 0 {
				_ = json.Unmarshal(spec.InputSchema, &schema)
			}
			toolParams = append(toolParams, responses.ToolParamOfFunction(spec.Name, schema, false))
		}
		params.Tools = toolParams
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return Response{}, mcperrors.Wrap(mcperrors.KindResponseStream, err, "openai request failed")
	}

	var out Response
	out.Model = o.model
	for _, item := range resp.Output {
		switch variant := item.AsAny().(type) {
		case responses.ResponseOutputMessage:
			for _, c := range variant.Content {
				if text := c.AsAny(); text != nil {
					if t, ok := text.(responses.ResponseOutputText); ok {
						out.Content += t.Text
					}
				}
			}
		case responses.ResponseFunctionToolCall:
			var params map[string]any
			_ = json.Unmarshal([]byte(variant.Arguments), &params)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: variant.CallID, Name: variant.Name, Parameters: params})
		}
	}
	return out, nil
}

// Stream wraps Complete into the typed event sequence.
func (o *OpenAIProvider) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
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
