package chat

import (
	"context"
	"fmt"
	"time"

	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/tools"
)

// validateTools resolves each queued tool call to its Tool implementation
// and decides whether acceptance is still needed. Calls that don't resolve
// to a known tool fail immediately with a synthetic error result, joining
// the same s.pendingResults batch that executeTools accumulates into, so
// the model sees every tool-use id from the turn answered in one tool-result
// message rather than several. The actual per-tool acceptance gate lives in
// executeTools, so every tool — not just the first one validateTools sees —
// gets its own consent check.
func (s *Session) validateTools(_ context.Context, st State) (State, error) {
	var queued []QueuedTool

	for _, q := range st.Queued {
		t, ok := s.tools.Lookup(q.Name)
		if !ok {
			s.pendingResults = append(s.pendingResults, llmstream.ToolResult{
				ToolCallID: q.ID,
				Content:    fmt.Sprintf("no such tool %q", q.Name),
				IsError:    true,
			})
			continue
		}
		q.Tool = t
		q.Accepted = !t.RequiresAcceptance() || s.permissions.Trusts(q.Name)
		queued = append(queued, q)
	}

	if len(queued) == 0 {
		s.convo.AppendToolResults(s.pendingResults)
		s.pendingResults = nil
		return State{Kind: KindHandleResponseStream}, nil
	}

	return State{Kind: KindExecuteTools, Queued: queued}, nil
}

// executeTools runs queued tool calls in order, stopping at the first one
// that is neither accepted nor trusted: that tool becomes s.pendingTool,
// everything after it becomes s.pendingToolRest, and the loop returns to
// PromptUser for a per-tool decision. Every result — validateTools' synthetic
// errors, tools run before a pause, and tools run after a later resume — is
// accumulated into the single s.pendingResults batch and flushed to the
// conversation exactly once, when the whole queue finally clears, so the
// model sees one tool-result message per assistant turn no matter how many
// approval prompts it took to get there.
func (s *Session) executeTools(ctx context.Context, st State) (State, error) {
	for i, q := range st.Queued {
		if !q.Accepted {
			s.pendingTool = &st.Queued[i]
			s.pendingToolRest = append([]QueuedTool{}, st.Queued[i+1:]...)
			return State{Kind: KindPromptUser}, nil
		}

		result, err := s.invokeTool(ctx, q)
		s.pendingResults = append(s.pendingResults, result)
		if err != nil && s.logger != nil {
			s.logger.Warn("tool %s failed: %v", q.Name, err)
		}
	}

	s.convo.AppendToolResults(s.pendingResults)
	s.pendingResults = nil
	return State{Kind: KindHandleResponseStream}, nil
}

func (s *Session) invokeTool(ctx context.Context, q QueuedTool) (llmstream.ToolResult, error) {
	start := time.Now()
	res, err := q.Tool.Invoke(ctx, q.Args)
	success := err == nil && (res == nil || !res.IsError)
	s.recorder.ObserveTool(q.Name, success, time.Since(start))

	if err != nil {
		return llmstream.ToolResult{ToolCallID: q.ID, Content: err.Error(), IsError: true}, err
	}
	var r tools.Result
	if res != nil {
		r = *res
	}
	return llmstream.ToolResult{ToolCallID: q.ID, Content: r.Content, IsError: r.IsError}, nil
}
