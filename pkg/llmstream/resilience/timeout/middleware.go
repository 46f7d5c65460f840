// Package timeout provides per-request deadline middleware for Providers.
package timeout

import (
	"context"
	"time"

	"mcpchat/pkg/llmstream"
)

// Middleware wraps a Provider so each Complete/Stream call gets its own
// bounded deadline, preventing a hung connection from blocking the chat
// loop forever.
func Middleware(duration time.Duration) llmstream.Middleware {
	return func(next llmstream.Provider) llmstream.Provider {
		return llmstream.WrapProvider(
			func(ctx context.Context, req llmstream.Request) (llmstream.Response, error) {
				ctx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()
				return next.Complete(ctx, req)
			},
			func(ctx context.Context, req llmstream.Request) (<-chan llmstream.Event, <-chan error) {
				ctx, cancel := context.WithTimeout(ctx, duration)
				events, errc := next.Stream(ctx, req)

				// The timeout context must outlive this call, so cancel only
				// once the downstream event channel has drained.
				wrapped := make(chan llmstream.Event, 16)
				go func() {
					defer cancel()
					defer close(wrapped)
					for ev := range events {
						wrapped <- ev
					}
				}()
				return wrapped, errc
			},
			next.DefaultModel,
		)
	}
}
