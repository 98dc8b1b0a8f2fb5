package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatrelay/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestEnsureRoomIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureRoom(ctx, "r1", "alpha"))

	first, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)

	// A second resolution of the same name must not touch the row.
	require.NoError(t, s.EnsureRoom(ctx, "r1", "alpha"))

	second, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.Equal(t, "alpha", second.Name)
}

func TestInsertMessageAssignsDurableID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureRoom(ctx, "r1", "alpha"))

	stored, err := s.InsertMessage(ctx, &store.Message{
		RoomID:    "r1",
		Type:      "text",
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotZero(t, stored.ID)
	require.Equal(t, "r1", stored.RoomID)
	require.Nil(t, stored.FileName)
	require.Nil(t, stored.Size)

	name := "y.png"
	size := int64(10)
	file, err := s.InsertMessage(ctx, &store.Message{
		RoomID:    "r1",
		Type:      "file",
		Content:   "http://x/y.png",
		FileName:  &name,
		Size:      &size,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Greater(t, file.ID, stored.ID)
	require.NotNil(t, file.FileName)
	require.Equal(t, "y.png", *file.FileName)
	require.NotNil(t, file.Size)
	require.Equal(t, int64(10), *file.Size)
}

func TestListMessagesChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureRoom(ctx, "r1", "alpha"))
	require.NoError(t, s.EnsureRoom(ctx, "r2", "beta"))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.InsertMessage(ctx, &store.Message{
			RoomID:    "r1",
			Type:      "text",
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	// A message in another room must not leak into r1's history.
	_, err := s.InsertMessage(ctx, &store.Message{
		RoomID:    "r2",
		Type:      "text",
		Content:   "other",
		CreatedAt: base,
	})
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 5)

	for i := 1; i < len(messages); i++ {
		require.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"created_at must be non-decreasing")
		require.Greater(t, messages[i].ID, messages[i-1].ID)
	}
}
