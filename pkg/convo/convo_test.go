package convo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/llmstream"
)

func TestPendingToolUseIDsEmptyWhenNoToolCalls(t *testing.T) {
	s := New("")
	s.AppendUser("hi")
	s.AppendAssistant("hello", nil)
	require.Empty(t, s.PendingToolUseIDs())
}

func TestPendingToolUseIDsReportsUnresolvedCalls(t *testing.T) {
	s := New("")
	s.AppendUser("list files")
	s.AppendAssistant("", []llmstream.ToolCall{{ID: "t1", Name: "ls"}, {ID: "t2", Name: "pwd"}})
	require.ElementsMatch(t, []string{"t1", "t2"}, s.PendingToolUseIDs())

	s.AppendToolResults([]llmstream.ToolResult{{ToolCallID: "t1", Content: "a.go"}})
	require.Equal(t, []string{"t2"}, s.PendingToolUseIDs())

	s.AppendToolResults([]llmstream.ToolResult{{ToolCallID: "t2", Content: "/root"}})
	require.Empty(t, s.PendingToolUseIDs())
}

func TestEnforceToolUseInvariantsSynthesizesCancellation(t *testing.T) {
	s := New("")
	s.AppendUser("run it")
	s.AppendAssistant("", []llmstream.ToolCall{{ID: "t1", Name: "exec"}})

	s.EnforceToolUseInvariants()

	require.Empty(t, s.PendingToolUseIDs())
	last := s.Messages[len(s.Messages)-1]
	require.Len(t, last.ToolResults, 1)
	require.True(t, last.ToolResults[0].IsError)
}

func TestValidateRejectsUnresolvedToolUse(t *testing.T) {
	s := New("")
	s.AppendUser("run it")
	s.AppendAssistant("", []llmstream.ToolCall{{ID: "t1", Name: "exec"}})
	require.Error(t, s.Validate())
}

func TestCompactKeepsSystemPromptAndLastTwoTurns(t *testing.T) {
	s := New("be terse")
	s.AppendUser("one")
	s.AppendAssistant("ack one", nil)
	s.AppendUser("two")
	s.AppendAssistant("ack two", nil)
	s.AppendUser("three")

	s.Compact("summary of one and two")

	require.Equal(t, llmstream.RoleSystem, s.Messages[0].Role)
	require.Equal(t, "be terse", s.Messages[0].Content)
	require.Equal(t, "summary of one and two", s.Messages[1].Content)
	require.Equal(t, "ack two", s.Messages[2].Content)
	require.Equal(t, "three", s.Messages[3].Content)
}
