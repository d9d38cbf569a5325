// ABOUTME: SQLite session persistence for chat sessions
// ABOUTME: Create/get/list operations plus derived message and token aggregates

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateSession creates a new chat session.
// Returns ErrDuplicateSession if a session with the same ID already exists.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO chat_sessions (id, user_id, session_type, message_count, total_tokens, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.UserID,
		sess.SessionType,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "user_id", sess.UserID, "type", sess.SessionType)
	return nil
}

// GetSession retrieves a session by ID.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, session_type, message_count, total_tokens, created_at, updated_at
		FROM chat_sessions
		WHERE id = ?
	`

	return scanSession(s.db.QueryRowContext(ctx, query, id))
}

// ListUserSessions returns a user's sessions ordered by most recent activity.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListUserSessions(ctx context.Context, userID string, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, user_id, session_type, message_count, total_tokens, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

// scanSession scans a single session row from a *sql.Row or *sql.Rows.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var sess Session
	var createdAtStr, updatedAtStr string

	err := scanner.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.SessionType,
		&sess.MessageCount,
		&sess.TotalTokens,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &sess, nil
}
