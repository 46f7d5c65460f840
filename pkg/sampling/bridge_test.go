package sampling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/mcpclient"
)

func TestSubmitBlocksUntilResolvedApprove(t *testing.T) {
	b := New(4)
	ctx := context.Background()

	go func() {
		req, err := b.Next(ctx)
		require.NoError(t, err)
		b.Resolve(req.ID, VerdictApproveOnce, &mcpclient.CreateMessageResult{
			Role:    "assistant",
			Content: mcpclient.ContentItem{Type: "text", Text: "hello"},
		})
	}()

	result, err := b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.NoError(t, err)
	require.Equal(t, "hello", result.Content.Text)
}

func TestSubmitRejected(t *testing.T) {
	b := New(4)
	ctx := context.Background()

	go func() {
		req, err := b.Next(ctx)
		require.NoError(t, err)
		b.Resolve(req.ID, VerdictReject, nil)
	}()

	_, err := b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.Error(t, err)
}

func TestTrustServerPersistsAcrossRequests(t *testing.T) {
	b := New(4)
	ctx := context.Background()

	require.False(t, b.IsTrusted("fixture-server"))

	go func() {
		req, _ := b.Next(ctx)
		b.Resolve(req.ID, VerdictTrustServer, &mcpclient.CreateMessageResult{Content: mcpclient.ContentItem{Type: "text"}})
	}()

	_, err := b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.NoError(t, err)
	require.True(t, b.IsTrusted("fixture-server"))
}

func TestTrustedServerAutoApprovesWithoutQueueing(t *testing.T) {
	b := New(4)
	ctx := context.Background()

	go func() {
		req, _ := b.Next(ctx)
		b.Resolve(req.ID, VerdictTrustServer, &mcpclient.CreateMessageResult{Content: mcpclient.ContentItem{Type: "text", Text: "first"}})
	}()

	_, err := b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.NoError(t, err)
	require.True(t, b.IsTrusted("fixture-server"))

	// No goroutine drains Next() this time: a trusted server's next request
	// must resolve immediately rather than blocking on the chat loop.
	done := make(chan struct{})
	var result *mcpclient.CreateMessageResult
	var submitErr error
	go func() {
		result, submitErr = b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit from a trusted server blocked instead of auto-approving")
	}
	require.NoError(t, submitErr)
	require.NotNil(t, result)
	require.Empty(t, b.Pending())
}

func TestTrustedServerUsesInstalledRelay(t *testing.T) {
	b := New(4)
	b.trusted["fixture-server"] = true
	b.SetRelay(func(_ context.Context, server string, params mcpclient.CreateMessageParams) (*mcpclient.CreateMessageResult, error) {
		return &mcpclient.CreateMessageResult{Content: mcpclient.ContentItem{Type: "text", Text: "relayed:" + server}}, nil
	})

	result, err := b.Submit(context.Background(), "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.NoError(t, err)
	require.Equal(t, "relayed:fixture-server", result.Content.Text)
}

func TestSubmitCancelledByContext(t *testing.T) {
	b := New(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// No consumer drains Next(); the request remains pending until ctx expires.
	_, err := b.Submit(ctx, "fixture-server", mcpclient.CreateMessageParams{MaxTokens: 64})
	require.Error(t, err)
}
