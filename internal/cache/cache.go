// Package cache provides a SQLite-backed cache of fetched resource
// payloads, so a restart can serve last-known data while the loaders
// refresh it.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/calder-vision/atrium/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS resource_payloads (
	resource   TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps a sql.DB with resource-cache operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Put stores or replaces the payload for resource.
func (s *Store) Put(resource string, payload []byte) error {
	_, err := s.conn.Exec(
		`INSERT INTO resource_payloads (resource, payload, fetched_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(resource) DO UPDATE SET
		 payload = excluded.payload, fetched_at = excluded.fetched_at`,
		resource, payload)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", resource, err)
	}
	return nil
}

// Get returns the cached payload and fetch time for resource, or
// apperr.ErrNotFound when nothing is cached.
func (s *Store) Get(resource string) ([]byte, time.Time, error) {
	var payload []byte
	var fetchedAt time.Time
	err := s.conn.QueryRow(
		`SELECT payload, fetched_at FROM resource_payloads WHERE resource = ?`,
		resource).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, apperr.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("cache: get %s: %w", resource, err)
	}
	return payload, fetchedAt, nil
}

// Delete removes the cached payload for resource, if any.
func (s *Store) Delete(resource string) error {
	if _, err := s.conn.Exec(
		`DELETE FROM resource_payloads WHERE resource = ?`, resource); err != nil {
		return fmt.Errorf("cache: delete %s: %w", resource, err)
	}
	return nil
}
