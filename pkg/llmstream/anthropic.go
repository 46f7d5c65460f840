package llmstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mcpchat/pkg/mcperrors"
)

// AnthropicProvider implements Provider against the Claude Messages API,
// including genuine incremental streaming of text and tool_use deltas.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider constructs a provider for the given API key and
// model identifier (e.g. "claude-sonnet-4-5").
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries are handled by resilience middleware
	)
	return &AnthropicProvider{client: client, model: anthropic.Model(model)}
}

// DefaultModel returns the model this provider was configured with.
func (p *AnthropicProvider) DefaultModel() string { return string(p.model) }

func (p *AnthropicProvider) buildParams(req Request) (anthropic.MessageNewParams, error) {
	systemPrompt, rest := ExtractSystemPrompt(req.Messages)
	if err := EnsureAlternation(rest); err != nil {
		return anthropic.MessageNewParams{}, mcperrors.Wrap(mcperrors.KindClient, err, "validate conversation before send")
	}

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for i := range rest {
		msg := &rest[i]
		var blocks []anthropic.ContentBlockParamUnion

		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			textBlock := anthropic.ToolResultBlockParamContentUnion{}
			textBlock.OfText = &anthropic.TextBlockParam{Text: tr.Content, Type: "text"}
			block := anthropic.ContentBlockParamUnion{}
			block.OfToolResult = &anthropic.ToolResultBlockParam{
				Type:      "tool_result",
				ToolUseID: tr.ToolCallID,
				Content:   []anthropic.ToolResultBlockParamContentUnion{textBlock},
				IsError:   anthropic.Bool(tr.IsError),
			}
			blocks = append(blocks, block)
		}

		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}

		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			block := anthropic.ContentBlockParamUnion{}
			block.OfToolUse = &anthropic.ToolUseBlockParam{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.Parameters,
			}
			blocks = append(blocks, block)
		}

		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: blocks,
		})
	}

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}}
	}
	if len(req.Tools) > 0 {
		toolParams := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
		for _, spec := range req.Tools {
			var schema any
			if len(spec.InputSchema) > 0 {
				_ = json.Unmarshal(spec.InputSchema, &schema)
			}
			toolParams = append(toolParams, anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: schemaProperties(schema),
				Required:   schemaRequired(schema),
			}, spec.Name))
		}
		params.Tools = toolParams
	}

	return params, nil
}

func schemaProperties(schema any) any {
	m, ok := schema.(map[string]any)
	if !ok {
		return nil
	}
	return m["properties"]
}

func schemaRequired(schema any) []string {
	m, ok := schema.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["required"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Complete sends req and waits for the full response.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return Response{}, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyAnthropicError(err)
	}
	if msg == nil || len(msg.Content) == 0 {
		return Response{}, mcperrors.New(mcperrors.KindResponseStream, "empty response from model")
	}

	return toResponse(msg.Content, string(p.model))
}

func toResponse(blocks []anthropic.ContentBlockUnion, model string) (Response, error) {
	var resp Response
	resp.Model = model
	for _, block := range blocks {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			var params map[string]any
			if err := json.Unmarshal(variant.Input, &params); err != nil {
				return Response{}, mcperrors.Wrap(mcperrors.KindSerialization, err, "decode tool_use input")
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: variant.ID, Name: variant.Name, Parameters: params})
		}
	}
	return resp, nil
}

// Stream sends req and emits typed events as Claude's SSE stream arrives:
// text deltas as EventAssistantText, tool_use blocks as EventToolUseStart
// followed by EventToolUse once their JSON input is complete, and a final
// EventEndStream carrying the assembled Response.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errc := make(chan error, 1)

	params, err := p.buildParams(req)
	if err != nil {
		errc <- err
		close(events)
		return events, errc
	}

	go func() {
		defer close(events)

		stream := p.client.Messages.NewStreaming(ctx, params)

		var resp Response
		resp.Model = string(p.model)
		var currentToolJSON strings.Builder
		var currentToolID, currentToolName string
		inToolUse := false

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if tu, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					inToolUse = true
					currentToolID = tu.ID
					currentToolName = tu.Name
					currentToolJSON.Reset()
					events <- Event{Kind: EventToolUseStart, ToolUse: ToolCall{ID: tu.ID, Name: tu.Name}}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					resp.Content += delta.Text
					events <- Event{Kind: EventAssistantText, Text: delta.Text}
				case anthropic.InputJSONDelta:
					if inToolUse {
						currentToolJSON.WriteString(delta.PartialJSON)
					}
				}
			case anthropic.ContentBlockStopEvent:
				if inToolUse {
					var params map[string]any
					raw := currentToolJSON.String()
					if raw == "" {
						raw = "{}"
					}
					if unmarshalErr := json.Unmarshal([]byte(raw), &params); unmarshalErr != nil {
						errc <- &StreamError{
							Kind:           UnexpectedToolUseEOS,
							Err:            unmarshalErr,
							ToolUseID:      currentToolID,
							ToolName:       currentToolName,
							PartialMessage: resp.Content,
						}
						return
					}
					tc := ToolCall{ID: currentToolID, Name: currentToolName, Parameters: params}
					resp.ToolCalls = append(resp.ToolCalls, tc)
					events <- Event{Kind: EventToolUse, ToolUse: tc}
					inToolUse = false
				}
			}
		}

		if streamErr := stream.Err(); streamErr != nil {
			errc <- classifyAnthropicStreamError(streamErr)
			return
		}

		events <- Event{Kind: EventEndStream, Message: resp}
	}()

	return events, errc
}

// classifyAnthropicError maps an SDK error into a KindResponseStream
// mcperrors.Error, using the HTTP status and message text the way the
// teacher's classifyError did for its retry middleware.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return mcperrors.Wrap(mcperrors.KindResponseStream, err, "rate limited")
		case http.StatusUnauthorized, http.StatusForbidden:
			return mcperrors.Wrap(mcperrors.KindClient, err, "authentication failed")
		case http.StatusRequestEntityTooLarge:
			return mcperrors.Wrap(mcperrors.KindResponseStream, err, "context window exceeded")
		}
		if apiErr.StatusCode >= 500 {
			return mcperrors.Wrap(mcperrors.KindResponseStream, err, "model overloaded")
		}
	}
	return mcperrors.Wrap(mcperrors.KindResponseStream, err, "anthropic request failed")
}

func classifyAnthropicStreamError(err error) *StreamError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &StreamError{Kind: QuotaBreach, Err: err}
		case apiErr.StatusCode == http.StatusRequestEntityTooLarge:
			return &StreamError{Kind: ContextWindowOverflow, Err: err}
		case apiErr.StatusCode >= 500:
			return &StreamError{Kind: ModelOverloaded, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &StreamError{Kind: StreamTimeout, Err: err}
	}
	return &StreamError{Kind: StreamTransport, Err: fmt.Errorf("anthropic stream: %w", err)}
}
