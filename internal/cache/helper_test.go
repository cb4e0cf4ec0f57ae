package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileStub struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb, time.Minute)
}

func TestCacheAside(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *profileStub) func() error {
		return func() error {
			calls++
			*dest = profileStub{ID: 1, Name: "alice"}
			return nil
		}
	}

	var first profileStub
	require.NoError(t, c.Aside(ctx, ProfileKey(1), &first, fetch(&first)))
	assert.Equal(t, "alice", first.Name)
	assert.True(t, mr.Exists("profile:1"))

	var second profileStub
	require.NoError(t, c.Aside(ctx, ProfileKey(1), &second, fetch(&second)))
	assert.Equal(t, "alice", second.Name)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	var third profileStub
	require.NoError(t, c.Aside(ctx, ProfileKey(1), &third, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestCacheAside_FetchError(t *testing.T) {
	mr, c := newTestCache(t)
	boom := errors.New("boom")

	var dest profileStub
	err := c.Aside(context.Background(), PostKey(9), &dest, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("post:9"))
}

func TestCacheInvalidate(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, ProfileKey(1), profileStub{ID: 1}))
	require.NoError(t, c.SetJSON(ctx, ProfileKey(2), profileStub{ID: 2}))
	require.NoError(t, c.SetJSON(ctx, PostKey(3), profileStub{ID: 3}))

	c.InvalidateProfiles(ctx, 1, 2)
	c.InvalidatePosts(ctx, 3)

	assert.False(t, mr.Exists("profile:1"))
	assert.False(t, mr.Exists("profile:2"))
	assert.False(t, mr.Exists("post:3"))
}

func TestCache_NilClientIsPassThrough(t *testing.T) {
	var nilRedis *redis.Client
	c := New(nilRedis, time.Minute)
	ctx := context.Background()

	found, err := c.GetJSON(ctx, "k", &profileStub{})
	assert.NoError(t, err)
	assert.False(t, found)

	calls := 0
	var dest profileStub
	require.NoError(t, c.Aside(ctx, "k", &dest, func() error { calls++; return nil }))
	require.NoError(t, c.Aside(ctx, "k", &dest, func() error { calls++; return nil }))
	assert.Equal(t, 2, calls)

	c.Invalidate(ctx, "k")
}
