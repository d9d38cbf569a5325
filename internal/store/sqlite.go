// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite
// ABOUTME: Provides session/message/user/rate-limit persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the store interfaces using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'student',
			created_at    TEXT NOT NULL,

			CHECK (role IN ('student', 'admin'))
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS chat_sessions (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id),
			session_type  TEXT NOT NULL DEFAULT 'general',
			message_count INTEGER NOT NULL DEFAULT 0,
			total_tokens  INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,

			CHECK (session_type IN ('practice', 'tutoring', 'review', 'general'))
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user
			ON chat_sessions(user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id               TEXT PRIMARY KEY,
			session_id       TEXT NOT NULL REFERENCES chat_sessions(id),
			role             TEXT NOT NULL,
			content          TEXT NOT NULL,
			token_count      INTEGER NOT NULL DEFAULT 0,
			model_name       TEXT,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,

			CHECK (role IN ('user', 'assistant', 'system'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_created
			ON chat_messages(session_id, created_at);

		CREATE TABLE IF NOT EXISTS rate_limit_windows (
			key        TEXT PRIMARY KEY,
			count      INTEGER NOT NULL,
			window_end INTEGER NOT NULL, -- unix nanoseconds
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rate_limit_window_end
			ON rate_limit_windows(window_end);

		CREATE TABLE IF NOT EXISTS admission_audit (
			id              TEXT PRIMARY KEY,
			kind            TEXT NOT NULL,
			axis            TEXT NOT NULL,
			hashed_identity TEXT NOT NULL,
			ip              TEXT,
			remaining       INTEGER NOT NULL,
			reset_at        TEXT NOT NULL,
			created_at      TEXT NOT NULL,

			CHECK (kind IN ('request_admitted', 'rate_limited'))
		);

		CREATE INDEX IF NOT EXISTS idx_admission_audit_created ON admission_audit(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_admission_audit_kind ON admission_audit(kind);

		CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			token_hash TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			used_at    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_reset_tokens_hash ON password_reset_tokens(token_hash);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteStore implements the store interfaces
var (
	_ SessionStore = (*SQLiteStore)(nil)
	_ UserStore    = (*SQLiteStore)(nil)
)
