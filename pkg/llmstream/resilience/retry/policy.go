// Package retry provides exponential-backoff retry policy for Provider calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"mcpchat/pkg/mcperrors"
)

// Config defines retry timing.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultConfig gives a gentle backoff suited to an interactive session:
// a user watching the terminal should see a retry within a couple of
// seconds, not tens of seconds.
var DefaultConfig = Config{
	MaxAttempts:   4,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      8 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier decides whether an error warrants another attempt.
type Classifier func(error) bool

// ShouldRetry is the default classifier: retry everything except
// cancellation and client, negotiation, invalid-path and interrupted
// failures, which cannot succeed on a bare retry.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch mcperrors.KindOf(err) {
	case mcperrors.KindClient, mcperrors.KindNegotiation, mcperrors.KindInvalidPath, mcperrors.KindInterrupted:
		return false
	default:
		return true
	}
}

// Policy pairs a Config with a Classifier.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy builds a Policy, defaulting to ShouldRetry when classifier is nil.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{Config: config, Classifier: classifier}
}

// CalculateDelay returns the backoff delay before the given attempt
// number (1-based; attempt 1 never delays).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}
	if p.Config.Jitter && delay > 0 {
		jitter := time.Duration((rand.Float64()*2 - 1) * 0.1 * float64(delay))
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}
	return delay
}

// ShouldRetryErr applies the policy's classifier.
func (p *Policy) ShouldRetryErr(err error) bool {
	return p.Classifier(err)
}
