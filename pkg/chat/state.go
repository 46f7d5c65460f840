// Package chat implements the Chat State Machine: the single-goroutine
// loop that reads terminal input, drives a model through tool-use rounds,
// and brokers MCP sampling approvals with the person at the keyboard.
package chat

import (
	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/tools"
)

// Kind discriminates the states of the chat loop.
type Kind int8

const (
	KindPromptUser Kind = iota
	KindHandleInput
	KindValidateTools
	KindExecuteTools
	KindHandleResponseStream
	KindCompactHistory
	KindExit
)

// QueuedTool is one tool call awaiting execution, carrying the resolved
// Tool implementation and whether the user has already consented to it.
type QueuedTool struct {
	ID       string
	Name     string
	Args     map[string]any
	Tool     tools.Tool
	Accepted bool
}

// State is the tagged-union transition record passed between steps of the
// loop. Not every field is meaningful in every Kind; see the state machine
// transitions in Session.Run for which fields each Kind reads.
type State struct {
	Kind Kind

	// HandleInput
	Line string

	// ValidateTools / ExecuteTools
	Queued []QueuedTool

	// CompactHistory
	CompactPrompt string
	ShowSummary   bool
	Resume        Kind // where to go once compaction finishes
}

// pendingTool/pendingSampling are session-scoped, not state-scoped,
// because the HandleInput transition needs to remember them across a
// PromptUser round trip while the rest of State is discarded.

// assembleRequest turns the current history plus the tool catalog into a
// Request for the active model.
func (s *Session) assembleRequest() llmstream.Request {
	systemPrompt, rest := llmstream.ExtractSystemPrompt(s.convo.Messages)
	if s.systemPrompt != "" {
		if systemPrompt != "" {
			systemPrompt += "\n\n" + s.systemPrompt
		} else {
			systemPrompt = s.systemPrompt
		}
	}
	return llmstream.Request{
		Messages:     rest,
		Tools:        s.tools.List(),
		SystemPrompt: systemPrompt,
		MaxTokens:    s.maxReplyTokens,
	}
}
