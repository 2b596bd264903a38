package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmp := t.TempDir()

	log, err := logger.New(tmp, "history-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	store, err := Open(context.Background(), filepath.Join(tmp, "voxly.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestGenerationLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1", "hello world", "english", "priya", "Priya")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	gen, err := store.Get(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, gen.Status)
	assert.Equal(t, "hello world", gen.Script)
	assert.Empty(t, gen.AudioKey)
	assert.False(t, gen.CreatedAt.IsZero())

	require.NoError(t, store.MarkCompleted(ctx, id, "voiceover-abc.wav", 12))

	gen, err = store.Get(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, gen.Status)
	assert.Equal(t, "voiceover-abc.wav", gen.AudioKey)
	assert.Equal(t, 12, gen.DurationSeconds)
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1", "script", "hindi", "rohan", "Rohan")
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, id, "synthesis service unavailable"))

	gen, err := store.Get(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, gen.Status)
	assert.Equal(t, "synthesis service unavailable", gen.ErrorMessage)

	require.ErrorIs(t, store.MarkCompleted(ctx, "no-such-id", "k", 1), ErrNotFound)
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1", "script", "english", "neha", "Neha")
	require.NoError(t, err)

	_, err = store.Get(ctx, id, "user-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	var ids []string

	for range 3 {
		id, err := store.Create(ctx, "user-1", "script", "english", "dev", "Dev")
		require.NoError(t, err)

		ids = append(ids, id)
		now = now.Add(time.Minute)
	}

	otherID, err := store.Create(ctx, "user-2", "script", "english", "dev", "Dev")
	require.NoError(t, err)

	list, err := store.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	for _, gen := range list {
		assert.NotEqual(t, otherID, gen.ID)
	}
}

func TestDeleteReturnsAudioKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1", "script", "english", "sunny", "Sunny")
	require.NoError(t, err)
	require.NoError(t, store.MarkCompleted(ctx, id, "voiceover-xyz.wav", 5))

	// Another user cannot delete the row.
	_, err = store.Delete(ctx, id, "user-2")
	require.ErrorIs(t, err, ErrNotFound)

	key, err := store.Delete(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "voiceover-xyz.wav", key)

	_, err = store.Get(ctx, id, "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUsageCountingAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	usage, err := store.CheckUsage(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Generations)

	require.NoError(t, store.RecordGeneration(ctx, "user-1"))
	require.NoError(t, store.RecordGeneration(ctx, "user-1"))

	usage, err = store.CheckUsage(ctx, "user-1", 2)
	require.ErrorIs(t, err, ErrLimitReached)
	assert.Equal(t, 2, usage.Generations)

	// A negative limit means unlimited.
	_, err = store.CheckUsage(ctx, "user-1", -1)
	require.NoError(t, err)
}

func TestUsageMonthRollover(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	store.clock = func() time.Time {
		return time.Date(2026, time.February, 27, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, store.RecordGeneration(ctx, "user-1"))
	require.NoError(t, store.RecordGeneration(ctx, "user-1"))

	usage, err := store.CheckUsage(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.Generations)

	// The counter resets once a new calendar month begins.
	store.clock = func() time.Time {
		return time.Date(2026, time.March, 1, 0, 30, 0, 0, time.UTC)
	}

	usage, err = store.CheckUsage(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Generations)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), usage.MonthStart)
}
