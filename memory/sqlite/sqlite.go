// Package sqlite provides a memory.Store backed by a SQLite database file.
// It uses the pure-Go driver, so no cgo toolchain is needed.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/legion/core"

	_ "modernc.org/sqlite"
)

// Store persists conversation transcripts in a single SQLite table. One row
// per conversation; the transcript is stored as a JSON document using the
// message envelope encoding.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral database in tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		messages TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)

	return err
}

// Load implements memory.Store.
func (s *Store) Load(conversationID string) ([]core.Message, error) {
	var payload string

	err := s.db.QueryRow(
		`SELECT messages FROM conversations WHERE id = ?`, conversationID,
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return []core.Message{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}

	var messages []core.Message
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", conversationID, err)
	}

	return messages, nil
}

// Save implements memory.Store.
func (s *Store) Save(conversationID string, messages []core.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", conversationID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO conversations (id, messages, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		conversationID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conversationID, err)
	}

	return nil
}

// Delete removes a conversation. Unknown ids are a no-op.
func (s *Store) Delete(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID)

	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
