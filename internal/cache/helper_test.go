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

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupCacheRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:42", UserKey(42))
	assert.Equal(t, "group:7", GroupKey(7))
}

func TestGetSetJSON(t *testing.T) {
	mr := setupCacheRedis(t)
	ctx := context.Background()

	var missing cachedThing
	found, err := GetJSON(ctx, "user:1", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "user:1", cachedThing{ID: 1, Name: "alice"}, time.Minute))

	var got cachedThing
	found, err = GetJSON(ctx, "user:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", got.Name)

	// TTL was applied.
	mr.FastForward(2 * time.Minute)
	found, err = GetJSON(ctx, "user:1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAside(t *testing.T) {
	setupCacheRedis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			*dest = cachedThing{ID: 9, Name: "permitting"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "group:9", &first, time.Minute, fetch(&first)))
	assert.Equal(t, "permitting", first.Name)
	assert.Equal(t, 1, fetches)

	// Second read is served from the cache.
	var second cachedThing
	require.NoError(t, Aside(ctx, "group:9", &second, time.Minute, fetch(&second)))
	assert.Equal(t, "permitting", second.Name)
	assert.Equal(t, 1, fetches)

	// Invalidation forces the next read back to the source.
	InvalidateGroup(ctx, 9)
	var third cachedThing
	require.NoError(t, Aside(ctx, "group:9", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, fetches)
}

func TestAside_FetchErrorPropagates(t *testing.T) {
	setupCacheRedis(t)

	boom := errors.New("db down")
	var dest cachedThing
	err := Aside(context.Background(), "group:1", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var dest cachedThing
	found, err := GetJSON(ctx, "user:1", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, SetJSON(ctx, "user:1", dest, time.Minute))

	// Aside degrades to a plain read-through.
	fetches := 0
	require.NoError(t, Aside(ctx, "user:1", &dest, time.Minute, func() error {
		fetches++
		dest = cachedThing{ID: 1, Name: "alice"}
		return nil
	}))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "alice", dest.Name)
}
