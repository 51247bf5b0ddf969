package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisWithClient(client, DefaultConfig())
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestRedisSetGet(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestRedisMiss(t *testing.T) {
	c, _ := newTestRedis(t)

	_, err := c.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestRedisKeysCarryPrefix(t *testing.T) {
	c, srv := newTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, srv.Exists("pos:k"))
}

func TestRedisTTLExpiry(t *testing.T) {
	c, srv := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	srv.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisDefaultTTLApplied(t *testing.T) {
	c, srv := newTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	ttl := srv.TTL("pos:k")
	assert.Equal(t, DefaultConfig().DefaultTTL, ttl)
}

func TestRedisDelete(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisClearRemovesOnlyPrefixedKeys(t *testing.T) {
	c, srv := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, srv.Set("other:key", "stays"))

	require.NoError(t, c.Clear(ctx))

	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))
	assert.True(t, srv.Exists("other:key"))
}
