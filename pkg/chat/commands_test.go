package chat_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/chat"
	"mcpchat/pkg/convo"
	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/mcpclient"
	"mcpchat/pkg/sampling"
	"mcpchat/pkg/tokenbudget"
	"mcpchat/pkg/tools"
)

func TestRunCompactCommandSummarizesAndPrints(t *testing.T) {
	provider := &fakeProvider{complete: llmstream.Response{Content: "short summary of prior turns"}}
	sess, out := newTestSession(t, provider, "/compact focus on the bug\n/exit\n", nil)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "history compacted")
	require.Contains(t, out.String(), "short summary of prior turns")
}

func TestRunHelpCommandListsCommands(t *testing.T) {
	provider := &fakeProvider{}
	sess, out := newTestSession(t, provider, "/help\n/exit\n", nil)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "/exit")
	require.Contains(t, out.String(), "/compact")
}

func TestRunUnknownCommandIsReportedAndLoopContinues(t *testing.T) {
	provider := &fakeProvider{}
	sess, out := newTestSession(t, provider, "/bogus\n/exit\n", nil)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "unrecognized command")
}

func TestRunTrustCommandExemptsToolFromFurtherApproval(t *testing.T) {
	writer := &fakeTool{name: "write_file", needsOK: true}
	tm := tools.NewManager(nil)
	tm.Register(writer)

	provider := &fakeProvider{streams: []func() (<-chan llmstream.Event, <-chan error){
		toolCallStream(llmstream.ToolCall{ID: "call-1", Name: "write_file", Parameters: nil}),
		textStream("second write done"),
	}}
	sess, out := newTestSession(t, provider, "/trust write_file\nwrite again\n/exit\n", tm)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writer.invocation)
	require.NotContains(t, out.String(), "allow?")
	require.Contains(t, out.String(), "second write done")
}

func TestRunApprovesQueuedSamplingRequestBeforeNextPrompt(t *testing.T) {
	provider := &fakeProvider{}
	var out bytes.Buffer
	bridge := sampling.New(4)

	sess := chat.New(chat.Options{
		Convo:          convo.New(""),
		Provider:       provider,
		ProviderName:   "fake",
		ModelName:      "fake-model",
		Tools:          tools.NewManager(nil),
		SamplingBridge: bridge,
		Counter:        mustCounter(t),
		Budget:         tokenbudget.DefaultBudget,
		Input:          newTestInput(strings.NewReader("y\n/exit\n")),
		Output:         &out,
	})

	go func() {
		_, _ = bridge.Submit(context.Background(), "fs-server", mcpclient.CreateMessageParams{})
	}()
	// Let Submit's goroutine enqueue onto the bridge before Run's first
	// promptUser call polls TryNext; the queue write itself is near
	// instantaneous once Submit is scheduled.
	time.Sleep(5 * time.Millisecond)

	err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "fs-server")
}

func mustCounter(t *testing.T) *tokenbudget.Counter {
	t.Helper()
	c, err := tokenbudget.NewCounter("fake-model")
	require.NoError(t, err)
	return c
}
