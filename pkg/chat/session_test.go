package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/chat"
	"mcpchat/pkg/convo"
	"mcpchat/pkg/input"
	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/sampling"
	"mcpchat/pkg/tokenbudget"
	"mcpchat/pkg/tools"
)

func newTestInput(r *strings.Reader) *input.Source {
	return input.New(r)
}

// fakeProvider replays one scripted stream per call to Stream, in order,
// and returns a fixed completion for Complete (used by history compaction).
type fakeProvider struct {
	streams  []func() (<-chan llmstream.Event, <-chan error)
	idx      int
	complete llmstream.Response
}

func (f *fakeProvider) Complete(_ context.Context, _ llmstream.Request) (llmstream.Response, error) {
	return f.complete, nil
}

func (f *fakeProvider) Stream(_ context.Context, _ llmstream.Request) (<-chan llmstream.Event, <-chan error) {
	if f.idx >= len(f.streams) {
		events := make(chan llmstream.Event)
		errc := make(chan error, 1)
		close(events)
		errc <- errors.New("fakeProvider: no more scripted streams")
		return events, errc
	}
	fn := f.streams[f.idx]
	f.idx++
	return fn()
}

func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func textStream(text string) func() (<-chan llmstream.Event, <-chan error) {
	return func() (<-chan llmstream.Event, <-chan error) {
		events := make(chan llmstream.Event, 2)
		errc := make(chan error, 1)
		events <- llmstream.Event{Kind: llmstream.EventAssistantText, Text: text}
		events <- llmstream.Event{Kind: llmstream.EventEndStream}
		close(events)
		close(errc)
		return events, errc
	}
}

func toolCallStream(call llmstream.ToolCall) func() (<-chan llmstream.Event, <-chan error) {
	return toolCallsStream(call)
}

func toolCallsStream(calls ...llmstream.ToolCall) func() (<-chan llmstream.Event, <-chan error) {
	return func() (<-chan llmstream.Event, <-chan error) {
		events := make(chan llmstream.Event, len(calls)+1)
		errc := make(chan error, 1)
		for _, call := range calls {
			events <- llmstream.Event{Kind: llmstream.EventToolUse, ToolUse: call}
		}
		events <- llmstream.Event{Kind: llmstream.EventEndStream}
		close(events)
		close(errc)
		return events, errc
	}
}

// fakeStore captures whatever conversation gets persisted on exit, so tests
// can inspect the final message history.
type fakeStore struct {
	saved *convo.Conversation
}

func (f *fakeStore) GetConversationByPath(_ context.Context, _ string) (*convo.Conversation, error) {
	return nil, convo.ErrNotFound
}

func (f *fakeStore) Save(_ context.Context, conv *convo.Conversation) error {
	f.saved = conv
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeTool is a minimal tools.Tool for exercising the tool-approval flow.
type fakeTool struct {
	name       string
	needsOK    bool
	invocation int
}

func (t *fakeTool) Name() string                    { return t.name }
func (t *fakeTool) Description() string             { return "test tool" }
func (t *fakeTool) InputSchema() json.RawMessage    { return json.RawMessage(`{"type":"object"}`) }
func (t *fakeTool) RequiresAcceptance() bool         { return t.needsOK }
func (t *fakeTool) Invoke(_ context.Context, _ map[string]any) (*tools.Result, error) {
	t.invocation++
	return &tools.Result{Content: "tool ran"}, nil
}

func newTestSession(t *testing.T, provider *fakeProvider, in string, tm *tools.Manager) (*chat.Session, *bytes.Buffer) {
	t.Helper()
	if tm == nil {
		tm = tools.NewManager(nil)
	}
	counter, err := tokenbudget.NewCounter("fake-model")
	require.NoError(t, err)

	var out bytes.Buffer
	sess := chat.New(chat.Options{
		Convo:          convo.New(""),
		Provider:       provider,
		ProviderName:   "fake",
		ModelName:      "fake-model",
		Tools:          tm,
		SamplingBridge: sampling.New(4),
		Counter:        counter,
		Budget:         tokenbudget.DefaultBudget,
		Input:          newTestInput(strings.NewReader(in)),
		Output:         &out,
	})
	return sess, &out
}

func TestRunRespondsToPlainMessageThenExits(t *testing.T) {
	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){textStream("hi there")}}
	sess, out := newTestSession(t, provider, "hello\n/exit\n", nil)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "hi there")
}

func TestRunAutoExecutesToolThatDoesNotRequireAcceptance(t *testing.T) {
	echo := &fakeTool{name: "echo"}
	tm := tools.NewManager(nil)
	tm.Register(echo)

	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){
		toolCallStream(llmstream.ToolCall{ID: "call-1", Name: "echo", Parameters: map[string]any{"x": 1}}),
		textStream("done"),
	}}
	sess, out := newTestSession(t, provider, "run echo\n/exit\n", tm)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, echo.invocation)
	require.Contains(t, out.String(), "done")
}

func TestRunPromptsBeforeRunningToolThatRequiresAcceptance(t *testing.T) {
	writer := &fakeTool{name: "write_file", needsOK: true}
	tm := tools.NewManager(nil)
	tm.Register(writer)

	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){
		toolCallStream(llmstream.ToolCall{ID: "call-1", Name: "write_file", Parameters: map[string]any{"path": "a.txt"}}),
		textStream("wrote it"),
	}}
	sess, out := newTestSession(t, provider, "write a file\ny\n/exit\n", tm)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writer.invocation)
	require.Contains(t, out.String(), "allow?")
	require.Contains(t, out.String(), "wrote it")
}

func TestRunParallelToolsProduceOneToolResultMessage(t *testing.T) {
	writer1 := &fakeTool{name: "fs_write", needsOK: true}
	writer2 := &fakeTool{name: "fs_write2", needsOK: true}
	tm := tools.NewManager(nil)
	tm.Register(writer1)
	tm.Register(writer2)

	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){
		toolCallsStream(
			llmstream.ToolCall{ID: "call-1", Name: "fs_write", Parameters: map[string]any{"path": "a.txt"}},
			llmstream.ToolCall{ID: "call-2", Name: "fs_write2", Parameters: map[string]any{"path": "b.txt"}},
		),
		textStream("both files created"),
	}}

	store := &fakeStore{}
	counter, err := tokenbudget.NewCounter("fake-model")
	require.NoError(t, err)
	var out bytes.Buffer
	sess := chat.New(chat.Options{
		Convo:          convo.New(""),
		Provider:       provider,
		ProviderName:   "fake",
		ModelName:      "fake-model",
		Tools:          tm,
		SamplingBridge: sampling.New(4),
		Counter:        counter,
		Budget:         tokenbudget.DefaultBudget,
		Input:          newTestInput(strings.NewReader("write two files\ny\ny\n/exit\n")),
		Output:         &out,
		Store:          store,
		StorePath:      "/fake/path",
	})

	err = sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writer1.invocation)
	require.Equal(t, 1, writer2.invocation)

	require.NotNil(t, store.saved)
	var toolResultMessages []llmstream.Message
	for _, m := range store.saved.Messages {
		if len(m.ToolResults) > 0 {
			toolResultMessages = append(toolResultMessages, m)
		}
	}
	require.Len(t, toolResultMessages, 1, "expected exactly one tool-result message for the whole batch")
	require.Len(t, toolResultMessages[0].ToolResults, 2, "expected both tool results in the same message")
	require.Equal(t, "call-1", toolResultMessages[0].ToolResults[0].ToolCallID)
	require.Equal(t, "call-2", toolResultMessages[0].ToolResults[1].ToolCallID)
}

func TestRunRejectsToolOnNoAndReportsErrorResultToModel(t *testing.T) {
	dangerous := &fakeTool{name: "rm", needsOK: true}
	tm := tools.NewManager(nil)
	tm.Register(dangerous)

	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){
		toolCallStream(llmstream.ToolCall{ID: "call-1", Name: "rm", Parameters: nil}),
		textStream("understood, not running it"),
	}}
	sess, out := newTestSession(t, provider, "delete everything\nn\n/exit\n", tm)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, dangerous.invocation)
	require.Contains(t, out.String(), "understood, not running it")
}
