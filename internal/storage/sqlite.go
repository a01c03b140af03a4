package storage

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a durable Store backed by SQLite. It is the stock durable
// store for embedded (non-browser) hosts: server-side rendering processes,
// kiosk apps, and the beacon CLI.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path and
// applies pragmas and schema. Idempotent.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &Error{Code: ErrCodeOpen, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &Error{Code: ErrCodeOpen, Err: err}
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under interleaved component writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &Error{Code: ErrCodeOpen, Err: fmt.Errorf("apply %q: %w", pragma, err)}
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, &Error{Code: ErrCodeOpen, Err: fmt.Errorf("apply schema: %w", err)}
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value for key, reporting presence.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &Error{Code: ErrCodeRead, Key: key, Err: err}
	}
	return value, true, nil
}

// Set stores value under key, replacing any existing value.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now')) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value,
	)
	if err != nil {
		return &Error{Code: ErrCodeWrite, Key: key, Err: err}
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return &Error{Code: ErrCodeWrite, Key: key, Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
