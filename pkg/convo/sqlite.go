package convo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mcpchat/pkg/llmstream"
)

// ErrNotFound is returned by Store.GetConversationByPath when no saved
// conversation exists for a working directory.
var ErrNotFound = errors.New("convo: no saved conversation for path")

// Conversation is a persisted session, keyed by the working directory it
// was started from so the CLI can resume "the chat I was having in this
// repo" without an explicit session id.
type Conversation struct {
	Path      string
	Messages  []llmstream.Message
	UpdatedAt time.Time
}

// Store persists and retrieves conversations. Save is fire-and-forget from
// the chat loop's perspective: callers log failures but never block a
// message append on a slow disk.
type Store interface {
	GetConversationByPath(ctx context.Context, path string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	Close() error
}

// SQLiteStore is the default Store, backed by a single-file database next
// to the rest of the CLI's local state.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the conversation database at
// dbPath and ensures its schema is current.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("convo: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("convo: ping database: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("convo: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			path TEXT PRIMARY KEY,
			messages_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// GetConversationByPath returns the saved conversation for path, or
// ErrNotFound if none exists.
func (s *SQLiteStore) GetConversationByPath(ctx context.Context, path string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT messages_json, updated_at FROM conversations WHERE path = ?
	`, path)

	var messagesJSON string
	var updatedAt time.Time
	if err := row.Scan(&messagesJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("convo: query conversation: %w", err)
	}

	var messages []llmstream.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, fmt.Errorf("convo: decode conversation: %w", err)
	}

	return &Conversation{Path: path, Messages: messages, UpdatedAt: updatedAt}, nil
}

// Save upserts the conversation for its path.
func (s *SQLiteStore) Save(ctx context.Context, conv *Conversation) error {
	payload, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("convo: encode conversation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (path, messages_json, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(path) DO UPDATE SET
			messages_json = excluded.messages_json,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
	`, conv.Path, string(payload))
	if err != nil {
		return fmt.Errorf("convo: save conversation: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
