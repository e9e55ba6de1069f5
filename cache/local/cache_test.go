package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	t.Helper()
	c, err := NewCache(Config{GCInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestKV(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Del(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKV_TTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	_, err := c.Get(ctx, "short")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound, "expired key reads as missing before GC runs")

	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "b", 0)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	v, err := c.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "a", v, "loser does not overwrite")

	// An expired holder frees the lock.
	require.NoError(t, c.Set(ctx, "lease", "old", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	ok, err = c.SetNX(ctx, "lease", "new", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Expire(ctx, "missing", time.Minute), ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Expire(ctx, "k", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHash(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "h", "f1", "v1"))
	require.NoError(t, c.HSet(ctx, "h", "f2", "v2"))

	v, err := c.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	_, err = c.HGet(ctx, "h", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	require.NoError(t, c.HDel(ctx, "h", "f1"))
	all, err = c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f2": "v2"}, all)
}

func TestSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SAdd(ctx, "s", "a", "b", "a"))
	n, err := c.SCard(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "duplicates collapse")

	ok, err := c.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.SRem(ctx, "s", "a"))
	ok, err = c.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := c.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestZSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, "z", 3, "mid"))
	require.NoError(t, c.ZAdd(ctx, "z", 9, "top"))
	require.NoError(t, c.ZAdd(ctx, "z", 1, "low"))

	top, err := c.ZRevRange(ctx, "z", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "mid"}, top)

	v, err := c.ZIncrBy(ctx, "z", 10, "low")
	require.NoError(t, err)
	assert.Equal(t, float64(11), v)

	all, err := c.ZRevRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "top", "mid"}, all)

	score, err := c.ZScore(ctx, "z", "mid")
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	require.NoError(t, c.ZRem(ctx, "z", "mid"))
	_, err = c.ZScore(ctx, "z", "mid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestZRevRange_TiesBreakByMember(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, "tie", 5, "b"))
	require.NoError(t, c.ZAdd(ctx, "tie", 5, "a"))

	got, err := c.ZRevRange(ctx, "tie", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got, "stable order for equal scores")
}

func TestList(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.LPush(ctx, "l", "first"))
	require.NoError(t, c.LPush(ctx, "l", "second", "third"))

	got, err := c.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, got)

	require.NoError(t, c.LTrim(ctx, "l", 0, 1))
	got, err = c.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, got)

	got, err = c.LRange(ctx, "l", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
