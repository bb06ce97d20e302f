package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-assistant/types"
)

func newTestHistory(t *testing.T, maxTurns int, ttl time.Duration) (*RedisHistory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	h, err := NewRedisHistory("redis://"+mr.Addr(), maxTurns, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h, mr
}

func TestRedisHistory_AppendRecent(t *testing.T) {
	h, _ := newTestHistory(t, 50, 0)
	ctx := context.Background()

	turns, err := h.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: "hi"}))
	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "assistant", Content: "hello"}))

	turns, err = h.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hello", turns[1].Content)

	// sessions are independent keys
	turns, err = h.Recent(ctx, "s2", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisHistory_WindowAndTrim(t *testing.T) {
	h, _ := newTestHistory(t, 5, 0)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: fmt.Sprintf("m%d", i)}))
	}

	all, err := h.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 5, "stored window capped at maxTurns")
	assert.Equal(t, "m3", all[0].Content)

	last2, err := h.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.Equal(t, "m7", last2[1].Content)
}

func TestRedisHistory_RemoveLast(t *testing.T) {
	h, _ := newTestHistory(t, 50, 0)
	ctx := context.Background()

	require.NoError(t, h.RemoveLast(ctx, "missing"))

	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: "keep"}))
	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: "drop"}))
	require.NoError(t, h.RemoveLast(ctx, "s1"))

	turns, err := h.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "keep", turns[0].Content)
}

func TestRedisHistory_TTLRefreshes(t *testing.T) {
	h, mr := newTestHistory(t, 50, time.Minute)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: "hi"}))
	ttl := mr.TTL("conversation:s1")
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(30 * time.Second)
	require.NoError(t, h.Append(ctx, "s1", types.Turn{Role: "user", Content: "again"}))
	assert.Equal(t, time.Minute, mr.TTL("conversation:s1"))

	mr.FastForward(61 * time.Second)
	turns, err := h.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns, "idle session expires")
}

func TestRedisHistory_BadURL(t *testing.T) {
	_, err := NewRedisHistory("not-a-url", 10, 0)
	assert.Error(t, err)
}
