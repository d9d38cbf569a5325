package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uuidLike builds a deterministic test id.
func uuidLike(prefix string, i int) string {
	return fmt.Sprintf("%s-%d", prefix, i)
}

// saveTestMessages stores n user messages with increasing timestamps.
func saveTestMessages(t *testing.T, store *SQLiteStore, sessionID string, contents []string) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Minute)
	for i, content := range contents {
		msg := &Message{
			ID:         uuidLike("msg", i),
			SessionID:  sessionID,
			Role:       RoleUser,
			Content:    content,
			TokenCount: 5,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveMessage(context.Background(), msg))
	}
}

func TestStore_GetSessionMessages_Order(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	saveTestMessages(t, store, sess.ID, []string{"first", "second", "third"})

	messages, err := store.GetSessionMessages(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// Should be in chronological order
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)
}

func TestStore_GetSessionMessages_SubSecondOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	// 100ms would serialize as ".1Z" under RFC3339Nano and sort after the
	// longer ".1005Z"; the fixed-width layout keeps lexicographic order.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stamps := []struct {
		content string
		at      time.Time
	}{
		{"first", base.Add(100 * time.Millisecond)},
		{"second", base.Add(100*time.Millisecond + 500*time.Microsecond)},
		{"third", base.Add(101 * time.Millisecond)},
	}
	for i, s := range stamps {
		msg := &Message{
			ID:         uuidLike("msg", i),
			SessionID:  sess.ID,
			Role:       RoleUser,
			Content:    s.content,
			TokenCount: 1,
			CreatedAt:  s.at,
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
	}

	messages, err := store.GetSessionMessages(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)

	// The most-recent-N window selects by the same ordering
	recent, err := store.GetSessionMessages(ctx, sess.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)
}

func TestStore_GetSessionMessages_LimitReturnsMostRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	saveTestMessages(t, store, sess.ID, []string{"one", "two", "three", "four", "five"})

	messages, err := store.GetSessionMessages(ctx, sess.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// The two most recent, oldest of the window first
	assert.Equal(t, "four", messages[0].Content)
	assert.Equal(t, "five", messages[1].Content)
}

func TestStore_GetSessionMessages_Empty(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	messages, err := store.GetSessionMessages(ctx, sess.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStore_SumSessionTokens(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	saveTestMessages(t, store, sess.ID, []string{"a", "b", "c", "d", "e"})

	// Sum covers all messages, not just a read-back window
	total, err := store.SumSessionTokens(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
}

func TestStore_SumSessionTokens_EmptySession(t *testing.T) {
	store := setupTestStore(t)

	total, err := store.SumSessionTokens(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestStore_SaveMessage_ModelMetadata(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "a@example.com")
	sess := createTestSession(t, store, "sess-1", user.ID)

	msg := &Message{
		ID:             "msg-1",
		SessionID:      sess.ID,
		Role:           RoleAssistant,
		Content:        "here is a hint",
		TokenCount:     42,
		ModelName:      "gpt-4o-mini",
		ResponseTimeMs: 850,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.SaveMessage(ctx, msg))

	messages, err := store.GetSessionMessages(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Equal(t, "gpt-4o-mini", messages[0].ModelName)
	assert.Equal(t, int64(850), messages[0].ResponseTimeMs)
	assert.Equal(t, 42, messages[0].TokenCount)
}
