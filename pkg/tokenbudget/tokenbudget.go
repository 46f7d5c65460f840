// Package tokenbudget measures conversation size in model tokens so the
// chat loop can decide when history needs to be compacted.
package tokenbudget

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"mcpchat/pkg/llmstream"
)

// Counter counts tokens for a given model family. All providers wired in
// this CLI tokenize closely enough to GPT-4's encoding that a single codec
// is used for every one of them; exact provider-native counts are a future
// evolution, not something this client relies on for correctness.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter builds a Counter. model is accepted for forward-compatibility
// with per-model encodings but is currently unused beyond documentation.
func NewCounter(model string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("tokenbudget: build codec for %s: %w", model, err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the token count of text, falling back to a character
// estimate (4 chars/token) if the codec is unavailable or errors.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// CountMessages sums the token cost of an entire message list, including
// tool-call and tool-result payloads so compaction decisions account for
// the full round-trip a tool-heavy turn adds to the context window.
func (c *Counter) CountMessages(messages []llmstream.Message) int {
	total := 0
	for _, m := range messages {
		total += c.Count(m.Content)
		for _, tc := range m.ToolCalls {
			total += c.Count(tc.Name)
			for k, v := range tc.Parameters {
				total += c.Count(k) + c.Count(fmt.Sprintf("%v", v))
			}
		}
		for _, tr := range m.ToolResults {
			total += c.Count(tr.Content)
		}
	}
	return total
}

// Budget describes the thresholds CompactHistory uses to decide whether
// summarization is needed and, separately, whether the window has been
// overrun entirely (ContextWindowOverflow).
type Budget struct {
	// MaxTokens is the model's context window.
	MaxTokens int
	// CompactAt triggers proactive summarization before the window fills.
	CompactAt int
}

// DefaultBudget is a conservative budget suited to the smallest context
// window among the wired providers' default models.
var DefaultBudget = Budget{MaxTokens: 128_000, CompactAt: 96_000}

// ShouldCompact reports whether history should be proactively summarized.
func (b Budget) ShouldCompact(tokens int) bool {
	return tokens >= b.CompactAt
}

// Overflowed reports whether tokens already reaches or exceeds the hard
// window limit.
func (b Budget) Overflowed(tokens int) bool {
	return tokens >= b.MaxTokens
}
