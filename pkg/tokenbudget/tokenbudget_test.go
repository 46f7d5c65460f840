package tokenbudget

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/llmstream"
)

func TestCountIsPositiveForNonEmptyText(t *testing.T) {
	counter, err := NewCounter("claude-sonnet-4")
	require.NoError(t, err)
	require.Greater(t, counter.Count("hello there, how are you today?"), 0)
}

func TestCountEmptyTextIsZero(t *testing.T) {
	counter, err := NewCounter("claude-sonnet-4")
	require.NoError(t, err)
	require.Equal(t, 0, counter.Count(""))
}

func TestCountMessagesIncludesToolPayloads(t *testing.T) {
	counter, err := NewCounter("claude-sonnet-4")
	require.NoError(t, err)

	messages := []llmstream.Message{
		{Role: llmstream.RoleUser, Content: "list the files in this repo"},
		{Role: llmstream.RoleAssistant, ToolCalls: []llmstream.ToolCall{
			{ID: "t1", Name: "list_files", Parameters: map[string]any{"path": "."}},
		}},
		{Role: llmstream.RoleUser, ToolResults: []llmstream.ToolResult{
			{ToolCallID: "t1", Content: "main.go\ngo.mod"},
		}},
	}

	require.Greater(t, counter.CountMessages(messages), counter.Count(messages[0].Content))
}

func TestBudgetShouldCompactAndOverflow(t *testing.T) {
	b := Budget{MaxTokens: 1000, CompactAt: 800}
	require.False(t, b.ShouldCompact(500))
	require.True(t, b.ShouldCompact(850))
	require.False(t, b.Overflowed(850))
	require.True(t, b.Overflowed(1000))
}
