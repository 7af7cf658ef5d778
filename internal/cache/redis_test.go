package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	c := NewRedis(client)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestRedis_SetGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "product:runner", []byte(`{"name":"Runner"}`), time.Minute))
	assert.True(t, mr.Exists("product:runner"))

	ttl := mr.TTL("product:runner")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+c.maxJitter)

	got, err := c.Get(ctx, "product:runner")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Runner"}`, string(got))
}

func TestRedis_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	c.maxJitter = 0
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedis_DeleteByPrefix(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < scanBatch+5; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("products:list:p%d", i), "x"))
	}
	require.NoError(t, mr.Set("categories:all", "x"))

	require.NoError(t, c.DeleteByPrefix(ctx, "products:list:"))

	assert.Equal(t, []string{"categories:all"}, mr.Keys())
}

func TestRedis_Delete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("b", "2"))

	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, c.Delete(ctx))
	assert.Empty(t, mr.Keys())
}

func TestRedis_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
