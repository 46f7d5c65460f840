// Package llmstream implements the Response Stream Parser: it turns a
// provider SDK's streaming response into the typed event sequence the
// chat state machine consumes (assistant text, tool-use start/complete,
// end-of-stream), independent of which model backend produced it.
package llmstream

import (
	"context"
	"time"

	"mcpchat/pkg/tools"
)

// Role is the speaker of one conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is a single tool invocation the model requested.
type ToolCall struct {
	ID         string
	Name       string
	Parameters map[string]any
}

// ToolResult is the outcome of a tool invocation fed back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Message is one turn of conversation, carrying plain text, a set of tool
// calls (assistant turn, possibly alongside text), or a set of tool
// results (user turn answering a prior tool_use).
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request describes a single completion or streaming call to a model.
type Request struct {
	Messages     []Message
	Tools        []tools.Spec
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Response is the synchronous (non-streamed) result of a Request.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Model     string
}

// EventKind discriminates the variants of Event.
type EventKind int8

const (
	// EventAssistantText carries one chunk of streamed assistant text.
	EventAssistantText EventKind = iota
	// EventToolUseStart announces a tool_use block has begun streaming;
	// its arguments arrive incrementally and are not valid until
	// EventToolUse for the same ID follows.
	EventToolUseStart
	// EventToolUse carries one fully-assembled tool call.
	EventToolUse
	// EventEndStream marks the end of a turn and carries the assembled
	// Response equivalent to what Complete would have returned.
	EventEndStream
)

// Event is one item in a provider's streamed response.
type Event struct {
	Kind     EventKind
	Text     string   // EventAssistantText
	ToolUse  ToolCall // EventToolUseStart (ID/Name only) and EventToolUse (complete)
	Message  Response // EventEndStream
}

// StreamErrorKind classifies why a stream terminated abnormally.
type StreamErrorKind int8

const (
	StreamTimeout StreamErrorKind = iota
	UnexpectedToolUseEOS
	ContextWindowOverflow
	QuotaBreach
	ModelOverloaded
	MonthlyLimitReached
	StreamTransport
)

// StreamError is returned (never sent as an Event) when a stream fails.
type StreamError struct {
	Kind           StreamErrorKind
	Err            error
	Duration       time.Duration // StreamTimeout
	RequestID      string        // ModelOverloaded, when the provider supplies one
	ToolUseID      string        // UnexpectedToolUseEOS
	ToolName       string        // UnexpectedToolUseEOS
	PartialMessage string        // UnexpectedToolUseEOS: assistant text accumulated before the cutoff
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "response stream error"
}

// Provider is a single model backend capable of synchronous completion and
// typed-event streaming.
type Provider interface {
	// Complete runs req to completion and returns the full response.
	Complete(ctx context.Context, req Request) (Response, error)
	// Stream runs req and returns a channel of typed events. The channel
	// is closed after an EventEndStream event or a send on errc.
	Stream(ctx context.Context, req Request) (<-chan Event, <-chan error)
	// DefaultModel returns the model identifier this provider uses when
	// none is configured explicitly.
	DefaultModel() string
}

// Middleware wraps a Provider to add cross-cutting behavior (timeouts,
// retries) without the provider implementation knowing about it.
type Middleware func(Provider) Provider

// funcProvider adapts three closures into a Provider, mirroring the
// decorator idiom used for request/response pipelines elsewhere in this
// codebase.
type funcProvider struct {
	complete func(context.Context, Request) (Response, error)
	stream   func(context.Context, Request) (<-chan Event, <-chan error)
	model    func() string
}

func (f *funcProvider) Complete(ctx context.Context, req Request) (Response, error) {
	return f.complete(ctx, req)
}

func (f *funcProvider) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	return f.stream(ctx, req)
}

func (f *funcProvider) DefaultModel() string { return f.model() }

// WrapProvider builds a Provider from three closures, for use inside a
// Middleware implementation.
func WrapProvider(
	complete func(context.Context, Request) (Response, error),
	stream func(context.Context, Request) (<-chan Event, <-chan error),
	model func() string,
) Provider {
	return &funcProvider{complete: complete, stream: stream, model: model}
}
