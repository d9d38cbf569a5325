// ABOUTME: SQLite message persistence for chat history
// ABOUTME: Append-only inserts, bounded chronological read-back, and token sums

package store

import (
	"context"
	"fmt"
	"time"
)

// messageTimeLayout is fixed-width so the TEXT column sorts lexicographically.
// RFC3339Nano drops trailing fractional zeros, which breaks ORDER BY for
// sub-second timestamps.
const messageTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveMessage appends a message to its session and updates the session's
// derived aggregates (message_count, total_tokens, updated_at).
// Messages are never updated or deleted.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO chat_messages (id, session_id, role, content, token_count, model_name, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.Role,
		msg.Content,
		msg.TokenCount,
		nullString(msg.ModelName),
		msg.ResponseTimeMs,
		msg.CreatedAt.UTC().Format(messageTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	// Maintain derived aggregates on the session row. A failure here leaves
	// the message in place; aggregates are advisory and History recomputes
	// token totals from the messages themselves.
	aggQuery := `
		UPDATE chat_sessions
		SET message_count = message_count + 1,
		    total_tokens = total_tokens + ?,
		    updated_at = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, aggQuery,
		msg.TokenCount,
		time.Now().UTC().Format(time.RFC3339),
		msg.SessionID,
	); err != nil {
		s.logger.Error("failed to update session aggregates",
			"error", err,
			"session_id", msg.SessionID,
			"message_id", msg.ID)
	}

	s.logger.Debug("saved message", "id", msg.ID, "session_id", msg.SessionID, "role", msg.Role)
	return nil
}

// GetSessionMessages retrieves messages for a session, limited to the most
// recent `limit` messages. Messages are returned in chronological order
// (oldest of the returned window first).
// If limit is 0 or negative, all messages are returned.
func (s *SQLiteStore) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		// Get the N most recent messages, but return them in chronological order
		// We use a subquery to get the most recent N, then order ascending
		query = `
			SELECT id, session_id, role, content, token_count, model_name, response_time_ms, created_at
			FROM (
				SELECT id, session_id, role, content, token_count, model_name, response_time_ms, created_at
				FROM chat_messages
				WHERE session_id = ?
				ORDER BY created_at DESC
				LIMIT ?
			)
			ORDER BY created_at ASC
		`
		args = []any{sessionID, limit}
	} else {
		query = `
			SELECT id, session_id, role, content, token_count, model_name, response_time_ms, created_at
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY created_at ASC
		`
		args = []any{sessionID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var createdAtStr string
		var modelName *string

		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content,
			&msg.TokenCount, &modelName, &msg.ResponseTimeMs, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		if modelName != nil {
			msg.ModelName = *modelName
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// SumSessionTokens returns the sum of token_count across ALL messages in a
// session, independent of any read-back window.
func (s *SQLiteStore) SumSessionTokens(ctx context.Context, sessionID string) (int, error) {
	query := `SELECT COALESCE(SUM(token_count), 0) FROM chat_messages WHERE session_id = ?`

	var total int
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing session tokens: %w", err)
	}

	return total, nil
}
