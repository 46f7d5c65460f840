package retry

import (
	"context"
	"time"

	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/logx"
)

// Middleware wraps a Provider with retry-with-backoff around Complete and
// Stream, logging each attempt the way the rest of this codebase logs
// retried operations. For Stream, only a failure surfaced before the
// first event is retried: once the model has started talking, restarting
// the call would duplicate output already shown to the user.
func Middleware(policy *Policy, logger *logx.Logger) llmstream.Middleware {
	return func(next llmstream.Provider) llmstream.Provider {
		return llmstream.WrapProvider(
			func(ctx context.Context, req llmstream.Request) (llmstream.Response, error) {
				var lastErr error
				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					if attempt > 1 {
						if !wait(ctx, policy, attempt, lastErr, logger, "llm retry") {
							return llmstream.Response{}, ctx.Err()
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err
					if !policy.ShouldRetryErr(err) || attempt >= policy.Config.MaxAttempts {
						break
					}
				}
				return llmstream.Response{}, lastErr
			},
			func(ctx context.Context, req llmstream.Request) (<-chan llmstream.Event, <-chan error) {
				var lastErr error
				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					if attempt > 1 {
						if !wait(ctx, policy, attempt, lastErr, logger, "llm stream retry") {
							errc := make(chan error, 1)
							errc <- ctx.Err()
							events := make(chan llmstream.Event)
							close(events)
							return events, errc
						}
					}

					events, errc := next.Stream(ctx, req)
					select {
					case ev, ok := <-events:
						if ok {
							return prepend(ev, events), errc
						}
						// Stream closed with no events at all; treat as a
						// failed attempt and check errc before retrying.
						select {
						case err := <-errc:
							lastErr = err
						default:
						}
					case err := <-errc:
						lastErr = err
					}

					if !policy.ShouldRetryErr(lastErr) || attempt >= policy.Config.MaxAttempts {
						outErr := make(chan error, 1)
						if lastErr != nil {
							outErr <- lastErr
						}
						outEvents := make(chan llmstream.Event)
						close(outEvents)
						return outEvents, outErr
					}
				}
				errc := make(chan error, 1)
				errc <- lastErr
				events := make(chan llmstream.Event)
				close(events)
				return events, errc
			},
			next.DefaultModel,
		)
	}
}

func wait(ctx context.Context, policy *Policy, attempt int, lastErr error, logger *logx.Logger, label string) bool {
	delay := policy.CalculateDelay(attempt)
	if logger != nil {
		logger.Warn("%s %d/%d (backoff %v): %v", label, attempt, policy.Config.MaxAttempts, delay, lastErr)
	}
	if delay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// prepend rebuilds a channel that yields first, then every remaining item
// from rest, so a peeked event isn't lost to its caller.
func prepend(first llmstream.Event, rest <-chan llmstream.Event) <-chan llmstream.Event {
	out := make(chan llmstream.Event, 16)
	go func() {
		defer close(out)
		out <- first
		for ev := range rest {
			out <- ev
		}
	}()
	return out
}
