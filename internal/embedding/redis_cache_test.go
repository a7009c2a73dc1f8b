package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisCache(client, "text-embedding-3-small", 0, nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "hello")
	assert.False(t, ok)

	cache.Set(ctx, "hello", []float32{0.5, -1.25, 3})
	got, ok := cache.Get(ctx, "hello")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -1.25, 3}, got)
}

func TestRedisCache_NamespacedByModel(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	small := NewRedisCache(client, "small", 0, nil)
	large := NewRedisCache(client, "large", 0, nil)

	small.Set(ctx, "text", []float32{1})
	_, ok := large.Get(ctx, "text")
	assert.False(t, ok, "entries must not leak across models")
}

func TestRedisCache_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisCache(client, "m", time.Minute, nil)
	ctx := context.Background()

	cache.Set(ctx, "expiring", []float32{1, 2})
	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, "expiring")
	assert.False(t, ok)
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisCache(client, "m", 0, nil)
	mr.Close()

	cache.Set(context.Background(), "x", []float32{1})
	_, ok := cache.Get(context.Background(), "x")
	assert.False(t, ok)
}

func TestNewRedisClient(t *testing.T) {
	_, mr := setupTestRedis(t)
	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)
}
