package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// createTestUser inserts a user and returns it.
func createTestUser(t *testing.T, store *SQLiteStore, email string) *User {
	t.Helper()
	u := &User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		DisplayName:  "Test User",
		Role:         RoleStudent,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// createTestSession inserts a session owned by the given user and returns it.
func createTestSession(t *testing.T, store *SQLiteStore, id, userID string) *Session {
	t.Helper()
	sess := &Session{
		ID:          id,
		UserID:      userID,
		SessionType: SessionTypeGeneral,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.CreateSession(context.Background(), sess))
	return sess
}
