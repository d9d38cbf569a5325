package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	retrieved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", retrieved.ID)
	assert.Equal(t, user.ID, retrieved.UserID)
	assert.Equal(t, SessionTypeGeneral, retrieved.SessionType)
	assert.Equal(t, 0, retrieved.MessageCount)
	assert.Equal(t, 0, retrieved.TotalTokens)
}

func TestStore_CreateSession_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	err := store.CreateSession(ctx, sess)
	assert.ErrorIs(t, err, ErrDuplicateSession)
}

func TestStore_GetSession_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetSession(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListUserSessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com")
	bob := createTestUser(t, store, "bob@example.com")

	createTestSession(t, store, "sess-a1", alice.ID)
	createTestSession(t, store, "sess-a2", alice.ID)
	createTestSession(t, store, "sess-b1", bob.ID)

	sessions, err := store.ListUserSessions(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.Equal(t, alice.ID, sess.UserID)
	}
}

func TestStore_SaveMessage_UpdatesAggregates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	for i, tokens := range []int{10, 25} {
		msg := &Message{
			ID:         uuidLike("msg", i),
			SessionID:  sess.ID,
			Role:       RoleUser,
			Content:    "hello",
			TokenCount: tokens,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
	}

	retrieved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, retrieved.MessageCount)
	assert.Equal(t, 35, retrieved.TotalTokens)
}
