// ABOUTME: SQLite-backed rate-limit counter windows with atomic increment-and-check
// ABOUTME: One row per key; the window resets in place once its end time elapses

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IncrementAndCheck atomically increments the counter window for a key and
// reports whether the event is within the limit. If the key's window has
// elapsed the counter restarts at 1 with a fresh window.
//
// Counts 1..limit are admitted; count limit+1 onward is rejected. Rejected
// events still increment the counter, so remaining stays at zero until the
// window rolls over. The whole operation is a single UPSERT so concurrent
// callers on the same key never lose increments.
func (s *SQLiteStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time, err error) {
	if limit <= 0 {
		return false, 0, time.Time{}, fmt.Errorf("limit must be > 0, got %d", limit)
	}
	if window <= 0 {
		return false, 0, time.Time{}, fmt.Errorf("window must be > 0, got %v", window)
	}

	now := time.Now()
	nowNanos := now.UnixNano()
	newEnd := now.Add(window).UnixNano()

	query := `
		INSERT INTO rate_limit_windows (key, count, window_end, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN ? >= rate_limit_windows.window_end THEN 1 ELSE rate_limit_windows.count + 1 END,
			window_end = CASE WHEN ? >= rate_limit_windows.window_end THEN ? ELSE rate_limit_windows.window_end END,
			updated_at = excluded.updated_at
		RETURNING count, window_end
	`

	var count int
	var endNanos int64
	err = s.db.QueryRowContext(ctx, query,
		key, newEnd, now.UTC().Format(time.RFC3339),
		nowNanos,
		nowNanos, newEnd,
	).Scan(&count, &endNanos)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("incrementing rate limit window: %w", err)
	}

	resetAt = time.Unix(0, endNanos)
	remaining = limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, resetAt, nil
}

// GetWindow retrieves the current counter window for a key.
// Returns ErrNotFound if the key has never been observed.
func (s *SQLiteStore) GetWindow(ctx context.Context, key string) (count int, resetAt time.Time, err error) {
	query := `SELECT count, window_end FROM rate_limit_windows WHERE key = ?`

	var endNanos int64
	err = s.db.QueryRowContext(ctx, query, key).Scan(&count, &endNanos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, ErrNotFound
		}
		return 0, time.Time{}, fmt.Errorf("querying rate limit window: %w", err)
	}

	return count, time.Unix(0, endNanos), nil
}

// PurgeExpiredWindows removes counter rows whose window ended before now.
// Expired rows are also reset lazily by IncrementAndCheck; this keeps the
// table from accumulating one row per historical key.
func (s *SQLiteStore) PurgeExpiredWindows(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE window_end <= ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging expired windows: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if removed > 0 {
		s.logger.Debug("purged expired rate limit windows", "count", removed)
	}
	return removed, nil
}
