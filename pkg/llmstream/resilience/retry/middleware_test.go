package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/mcperrors"
)

type fakeProvider struct {
	completeCalls int
	failTimes     int
}

func (f *fakeProvider) Complete(_ context.Context, _ llmstream.Request) (llmstream.Response, error) {
	f.completeCalls++
	if f.completeCalls <= f.failTimes {
		return llmstream.Response{}, mcperrors.New(mcperrors.KindResponseStream, "transient failure")
	}
	return llmstream.Response{Content: "ok"}, nil
}

func (f *fakeProvider) Stream(_ context.Context, _ llmstream.Request) (<-chan llmstream.Event, <-chan error) {
	events := make(chan llmstream.Event, 1)
	errc := make(chan error, 1)
	events <- llmstream.Event{Kind: llmstream.EventEndStream, Message: llmstream.Response{Content: "ok"}}
	close(events)
	return events, errc
}

func (f *fakeProvider) DefaultModel() string { return "fake-model" }

func TestRetryMiddlewareRecoversFromTransientFailures(t *testing.T) {
	inner := &fakeProvider{failTimes: 2}
	policy := NewPolicy(Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}, nil)
	provider := Middleware(policy, nil)(inner)

	resp, err := provider.Complete(context.Background(), llmstream.Request{})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content)
	require.Equal(t, 3, inner.completeCalls)
}

func TestRetryMiddlewareGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &fakeProvider{failTimes: 99}
	policy := NewPolicy(Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}, nil)
	provider := Middleware(policy, nil)(inner)

	_, err := provider.Complete(context.Background(), llmstream.Request{})
	require.Error(t, err)
	require.Equal(t, 2, inner.completeCalls)
}

func TestRetryMiddlewareDoesNotRetryClientErrors(t *testing.T) {
	require.False(t, ShouldRetry(mcperrors.New(mcperrors.KindClient, "bad request")))
	require.True(t, ShouldRetry(mcperrors.New(mcperrors.KindResponseStream, "rate limited")))
}
