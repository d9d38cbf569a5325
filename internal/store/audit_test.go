package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAdmissionEvent_GeneratesDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := &AdmissionEvent{
		Kind:           AdmissionAdmitted,
		Axis:           "ip",
		HashedIdentity: "abc123",
		IP:             "1.2.3.4",
		Remaining:      4,
		ResetAt:        time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.AppendAdmissionEvent(ctx, e))

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestStore_ListAdmissionEvents_FilterByKind(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, kind := range []AdmissionKind{AdmissionAdmitted, AdmissionAdmitted, AdmissionRateLimited} {
		e := &AdmissionEvent{
			ID:             uuidLike("evt", i),
			Kind:           kind,
			Axis:           "email",
			HashedIdentity: "deadbeef",
			Remaining:      0,
			ResetAt:        time.Now().Add(time.Minute),
		}
		require.NoError(t, store.AppendAdmissionEvent(ctx, e))
	}

	limited := AdmissionRateLimited
	events, err := store.ListAdmissionEvents(ctx, AdmissionFilter{Kind: &limited})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, AdmissionRateLimited, events[0].Kind)

	all, err := store.ListAdmissionEvents(ctx, AdmissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_ListAdmissionEvents_EmptyResult(t *testing.T) {
	store := setupTestStore(t)

	events, err := store.ListAdmissionEvents(context.Background(), AdmissionFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
