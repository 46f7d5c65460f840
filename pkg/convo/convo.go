package convo

import (
	"fmt"

	"mcpchat/pkg/llmstream"
)

// ToolUseResult is the outcome of running a single queued tool, keyed back
// to the tool-use id that requested it.
type ToolUseResult struct {
	ID      string
	Content string
	Status  ResultStatus
}

// ResultStatus tags a ToolUseResult as successful or failed.
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota
	StatusError
)

// State holds the ordered message history for one chat session plus
// bookkeeping needed to keep tool-use/tool-result ids in bijection.
type State struct {
	Messages []llmstream.Message
}

// New returns an empty conversation, optionally seeded with a system prompt.
func New(systemPrompt string) *State {
	s := &State{}
	if systemPrompt != "" {
		s.Messages = append(s.Messages, llmstream.Message{Role: llmstream.RoleSystem, Content: systemPrompt})
	}
	return s
}

// AppendUser appends a plain user turn.
func (s *State) AppendUser(text string) {
	s.Messages = append(s.Messages, llmstream.Message{Role: llmstream.RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn, optionally carrying tool-use
// records that expect matching tool-result entries in the next user turn.
func (s *State) AppendAssistant(text string, toolCalls []llmstream.ToolCall) {
	s.Messages = append(s.Messages, llmstream.Message{
		Role:      llmstream.RoleAssistant,
		Content:   text,
		ToolCalls: toolCalls,
	})
}

// AppendToolResults appends a user turn carrying tool-result entries for the
// most recent assistant turn's tool-use records. The order of results MUST
// match the order tool-use records were emitted in the stream.
func (s *State) AppendToolResults(results []llmstream.ToolResult) {
	s.Messages = append(s.Messages, llmstream.Message{
		Role:        llmstream.RoleUser,
		ToolResults: results,
	})
}

// LastAssistant returns the most recent assistant message and whether one
// exists.
func (s *State) LastAssistant() (llmstream.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llmstream.RoleAssistant {
			return s.Messages[i], true
		}
	}
	return llmstream.Message{}, false
}

// PendingToolUseIDs returns the tool-use ids from the last assistant message
// that have no matching tool-result yet. An empty result means the last
// round is fully resolved (or there was no tool use at all).
func (s *State) PendingToolUseIDs() []string {
	lastIdx := -1
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llmstream.RoleAssistant {
			lastIdx = i
			break
		}
	}
	if lastIdx == -1 || len(s.Messages[lastIdx].ToolCalls) == 0 {
		return nil
	}
	last := s.Messages[lastIdx]

	resolved := make(map[string]bool, len(last.ToolCalls))
	for i := lastIdx + 1; i < len(s.Messages); i++ {
		for _, r := range s.Messages[i].ToolResults {
			resolved[r.ToolCallID] = true
		}
	}

	var pending []string
	for _, tc := range last.ToolCalls {
		if !resolved[tc.ID] {
			pending = append(pending, tc.ID)
		}
	}
	return pending
}

// EnforceToolUseInvariants repairs an incomplete round left over from an
// interrupted or abandoned tool execution. Any tool-use id from the last
// assistant message with no matching tool-result gets a synthetic
// cancellation result appended, so the next request sent to a model never
// violates the provider's tool_use/tool_result bijection requirement.
func (s *State) EnforceToolUseInvariants() {
	pending := s.PendingToolUseIDs()
	if len(pending) == 0 {
		return
	}

	results := make([]llmstream.ToolResult, 0, len(pending))
	for _, id := range pending {
		results = append(results, llmstream.ToolResult{
			ToolCallID: id,
			Content:    "cancelled: interrupted before completion",
			IsError:    true,
		})
	}
	s.AppendToolResults(results)
}

// Validate reports a descriptive error if the history violates alternation
// or bijection invariants. Intended for tests and defensive checks before a
// request is sent, not for the hot path.
func (s *State) Validate() error {
	if _, rest := llmstream.ExtractSystemPrompt(s.Messages); len(rest) > 0 {
		if err := llmstream.EnsureAlternation(rest); err != nil {
			return fmt.Errorf("conversation state: %w", err)
		}
	}
	if pending := s.PendingToolUseIDs(); len(pending) > 0 {
		return fmt.Errorf("conversation state: unresolved tool-use ids %v", pending)
	}
	return nil
}

// Compact truncates history to a system prompt (if any) plus the last two
// messages, whatever their roles, replacing everything before them with a
// single synthetic assistant summary message. Used by the Chat State
// Machine's CompactHistory transition.
func (s *State) Compact(summary string) {
	systemPrompt, rest := llmstream.ExtractSystemPrompt(s.Messages)

	keep := 2
	if len(rest) < keep {
		keep = len(rest)
	}
	tail := rest[len(rest)-keep:]

	var out []llmstream.Message
	if systemPrompt != "" {
		out = append(out, llmstream.Message{Role: llmstream.RoleSystem, Content: systemPrompt})
	}
	out = append(out, llmstream.Message{Role: llmstream.RoleAssistant, Content: summary})
	out = append(out, tail...)
	s.Messages = out
}
