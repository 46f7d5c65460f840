package convo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mcpchat/pkg/llmstream"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "convo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetConversationByPathReturnsNotFoundWhenMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetConversationByPath(context.Background(), "/repo/a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	store := openTestStore(t)
	conv := &Conversation{
		Path: "/repo/a",
		Messages: []llmstream.Message{
			{Role: llmstream.RoleUser, Content: "hi"},
			{Role: llmstream.RoleAssistant, Content: "hello"},
		},
	}

	require.NoError(t, store.Save(context.Background(), conv))

	got, err := store.GetConversationByPath(context.Background(), "/repo/a")
	require.NoError(t, err)
	require.Equal(t, conv.Messages, got.Messages)
}

func TestSaveUpsertsExistingPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Conversation{Path: "/repo/a", Messages: []llmstream.Message{
		{Role: llmstream.RoleUser, Content: "first"},
	}}))
	require.NoError(t, store.Save(ctx, &Conversation{Path: "/repo/a", Messages: []llmstream.Message{
		{Role: llmstream.RoleUser, Content: "second"},
	}}))

	got, err := store.GetConversationByPath(ctx, "/repo/a")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "second", got.Messages[0].Content)
}
