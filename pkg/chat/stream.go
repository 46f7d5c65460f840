package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mcpchat/pkg/llmstream"
)

// handleResponseStream sends the current conversation to the model and
// renders its streamed reply, accumulating any tool calls along the way.
// A successful end-of-stream with no tool calls returns to PromptUser; one
// with tool calls moves to ValidateTools. Stream errors route to
// CompactHistory when the failure looks like a context-window problem and
// are otherwise surfaced to the user without crashing the loop.
func (s *Session) handleResponseStream(ctx context.Context, _ State) (State, error) {
	s.convo.EnforceToolUseInvariants()
	req := s.assembleRequest()

	start := time.Now()
	events, errc := s.provider.Stream(ctx, req)

	var text string
	var toolCalls []llmstream.ToolCall

	for events != nil || errc != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Kind {
			case llmstream.EventAssistantText:
				fmt.Fprint(s.out, ev.Text)
				text += ev.Text
			case llmstream.EventToolUse:
				toolCalls = append(toolCalls, ev.ToolUse)
			case llmstream.EventEndStream:
				fmt.Fprintln(s.out)
				s.convo.AppendAssistant(text, toolCalls)
				promptTokens := s.counter.CountMessages(req.Messages)
				completionTokens := s.counter.Count(text)
				s.recorder.ObserveRequest(s.providerName, s.modelName, promptTokens, completionTokens, true, "", time.Since(start))

				if len(toolCalls) > 0 {
					return State{Kind: KindValidateTools, Queued: queueFromToolCalls(toolCalls)}, nil
				}
				if s.budget.ShouldCompact(s.counter.CountMessages(s.convo.Messages)) {
					return State{Kind: KindCompactHistory, Resume: KindPromptUser}, nil
				}
				return State{Kind: KindPromptUser}, nil
			}
		case err, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			return s.handleStreamError(ctx, err, text, start)
		case <-ctx.Done():
			return State{Kind: KindExit}, nil
		}
	}

	// Both channels closed without an EventEndStream: treat as a quiet
	// success so the loop doesn't hang.
	if text != "" {
		fmt.Fprintln(s.out)
		s.convo.AppendAssistant(text, toolCalls)
	}
	return State{Kind: KindPromptUser}, nil
}

func queueFromToolCalls(calls []llmstream.ToolCall) []QueuedTool {
	queued := make([]QueuedTool, 0, len(calls))
	for _, c := range calls {
		queued = append(queued, QueuedTool{ID: c.ID, Name: c.Name, Args: c.Parameters})
	}
	return queued
}

func (s *Session) handleStreamError(ctx context.Context, err error, partialText string, start time.Time) (State, error) {
	var streamErr *llmstream.StreamError
	kind := llmstream.StreamTransport
	if errors.As(err, &streamErr) {
		kind = streamErr.Kind
	}
	s.recorder.ObserveRequest(s.providerName, s.modelName, 0, 0, false, streamErrorKindLabel(kind), time.Since(start))

	switch kind {
	case llmstream.ContextWindowOverflow:
		fmt.Fprintln(s.out, "\n(conversation is too large for the model's context window, compacting and retrying)")
		return State{Kind: KindCompactHistory, Resume: KindHandleResponseStream}, nil

	case llmstream.UnexpectedToolUseEOS:
		if partialText != "" {
			s.convo.AppendAssistant(partialText, nil)
		}
		var toolUseID, toolName string
		if streamErr != nil {
			toolUseID, toolName = streamErr.ToolUseID, streamErr.ToolName
		}
		if toolUseID != "" {
			s.convo.AppendToolResults([]llmstream.ToolResult{{
				ToolCallID: toolUseID,
				Content:    fmt.Sprintf("cancelled: stream ended before %q finished", toolName),
				IsError:    true,
			}})
		}
		fmt.Fprintln(s.out, "\n(response was cut off mid tool call, ask again)")
		return State{Kind: KindPromptUser}, nil

	case llmstream.StreamTimeout, llmstream.ModelOverloaded, llmstream.StreamTransport:
		fmt.Fprintf(s.out, "\n(model request failed: %v)\n", err)
		return State{Kind: KindPromptUser}, nil

	case llmstream.QuotaBreach, llmstream.MonthlyLimitReached:
		fmt.Fprintf(s.out, "\n(model request failed: %v — check your provider quota)\n", err)
		return State{Kind: KindPromptUser}, nil

	default:
		if ctx.Err() != nil {
			return State{Kind: KindExit}, nil
		}
		fmt.Fprintf(s.out, "\n(model request failed: %v)\n", err)
		return State{Kind: KindPromptUser}, nil
	}
}

func streamErrorKindLabel(kind llmstream.StreamErrorKind) string {
	switch kind {
	case llmstream.StreamTimeout:
		return "timeout"
	case llmstream.UnexpectedToolUseEOS:
		return "unexpected_tool_use_eos"
	case llmstream.ContextWindowOverflow:
		return "context_window_overflow"
	case llmstream.QuotaBreach:
		return "quota_breach"
	case llmstream.ModelOverloaded:
		return "model_overloaded"
	case llmstream.MonthlyLimitReached:
		return "monthly_limit_reached"
	default:
		return "transport"
	}
}

// compactHistory summarizes older turns to keep the conversation within
// budget. When ShowSummary is set (the user ran /compact explicitly) the
// synthetic summary is also printed.
func (s *Session) compactHistory(ctx context.Context, st State) (State, error) {
	summary, err := s.summarize(ctx, st.CompactPrompt)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("compaction summary failed, using fallback: %v", err)
		}
		summary = "(earlier conversation summarized: details unavailable)"
	}
	s.convo.Compact(summary)

	if st.ShowSummary {
		fmt.Fprintf(s.out, "\nhistory compacted:\n%s\n", summary)
	}
	return State{Kind: st.Resume}, nil
}

func (s *Session) summarize(ctx context.Context, steer string) (string, error) {
	systemPrompt, rest := llmstream.ExtractSystemPrompt(s.convo.Messages)
	prompt := "Summarize the conversation so far in a few sentences, preserving any decisions, open questions, and facts a continuation would need."
	if steer != "" {
		prompt += " Pay particular attention to: " + steer
	}

	req := llmstream.Request{
		Messages:     append(append([]llmstream.Message{}, rest...), llmstream.Message{Role: llmstream.RoleUser, Content: prompt}),
		SystemPrompt: systemPrompt,
		MaxTokens:    512,
	}
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
