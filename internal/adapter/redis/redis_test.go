package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

// testClient connects to REDIS_TEST_ADDR and skips the test when it is unset.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func testPrefix(t *testing.T) string {
	return "goldwatch-test:" + t.Name() + ":" + time.Now().Format("150405.000000")
}

func TestRunHistory_Keys(t *testing.T) {
	h := NewRunHistory(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "goldwatch", 0)
	assert.Equal(t, "goldwatch:runs", h.key)
	assert.Equal(t, int64(1), h.limit)

	l := NewRunLock(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "goldwatch")
	assert.Equal(t, "goldwatch:lock:run", l.key)
	assert.NotEmpty(t, l.token)
}

func TestStoreImpl_RoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	store := NewStore(client, testPrefix(t), time.Minute)

	_, err := store.LoadCapture(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.CapturedAt(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	taken := time.Date(2025, 6, 7, 8, 9, 10, 123456789, time.UTC)
	require.NoError(t, store.SaveCapture(ctx, &entity.Capture{TargetID: "a", Image: []byte{0x89, 'P'}, Format: entity.FormatPNG, CapturedAt: taken}))
	capture, err := store.LoadCapture(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P'}, capture.Image)
	assert.Equal(t, entity.FormatPNG, capture.Format)
	assert.True(t, taken.Equal(capture.CapturedAt))
	capturedAt, err := store.CapturedAt(ctx, "a")
	require.NoError(t, err)
	assert.True(t, taken.Equal(capturedAt))

	require.NoError(t, store.SaveText(ctx, &entity.RecoveredText{TargetID: "a", Text: "Buy 100"}))
	text, err := store.LoadText(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Buy 100", text.Text)
	require.NoError(t, store.DeleteText(ctx, "a"))
	_, err = store.LoadText(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	schema := &entity.Schema{Fields: []entity.Field{{Name: "buy"}}}
	record := entity.NewRecord(schema, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	record.Values = []string{"100"}
	require.NoError(t, store.SaveRecord(ctx, record))
	loaded, err := store.LoadRecord(ctx, schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, loaded.Values)

	require.NoError(t, store.DeleteRecord(ctx))
	_, err = store.LoadRecord(ctx, schema)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunLock_ExcludesSecondHolder(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	prefix := testPrefix(t)
	first := NewRunLock(client, prefix)
	second := NewRunLock(client, prefix)

	ok, err := first.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Releasing someone else's lock does nothing.
	require.NoError(t, second.Release(ctx))
	ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx))
}

func TestRunHistory_CapsAndOrders(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	history := NewRunHistory(client, testPrefix(t), 2)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, history.Push(ctx, &entity.RunReport{RunID: id, State: entity.StageDone}))
	}

	reports, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r3", reports[0].RunID)
	assert.Equal(t, "r2", reports[1].RunID)
}
