// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("session store is closed")
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the flat key-value persistence boundary. Keys are plain strings,
// values are serialized blobs. Get reports absence through its second
// return value rather than an error.
type Store interface {
	// Get returns the value for key, or ok=false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set writes the value for key, overwriting any previous value.
	Set(key, value string) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases the underlying database.
	Close() error
}

// =============================================================================
// WELL-KNOWN KEYS
// =============================================================================

// Key names are stable; state round-trips across versions by key.
const (
	// KeyConversations holds the JSON-serialized conversation list.
	KeyConversations = "sonic_chats"
	// KeyProfile holds the JSON-serialized user profile.
	KeyProfile = "sonic_user"
	// KeyActiveConversation holds the id of the selected conversation.
	KeyActiveConversation = "sonic_active"
	// KeyResidentModels holds the JSON array of warmed-up model ids.
	KeyResidentModels = "sonic_models"
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore implements Store on a single kv table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Open opens (creating if necessary) the session store at path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	// Single writer; the busy timeout covers overlapping CLI invocations.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure session store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize session store: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenDefault opens the store in its standard location under dataDir.
func OpenDefault(dataDir string) (*SQLiteStore, error) {
	return Open(filepath.Join(dataDir, "sonic.db"))
}

// Get returns the value for key, or ok=false when the key is absent.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrClosed
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes the value for key, overwriting any previous value.
func (s *SQLiteStore) Set(key, value string) error {
	if s.db == nil {
		return ErrClosed
	}

	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	if s.db == nil {
		return ErrClosed
	}

	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}
