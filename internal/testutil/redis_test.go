package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_TEST_ADDR", "")

	options := GetTestRedisOptions()
	require.NotNil(t, options)
	assert.Equal(t, "localhost:6379", options.Addr)
	assert.Equal(t, 1, options.DB)

	t.Setenv("REDIS_TEST_ADDR", "localhost:6380")

	options = GetTestRedisOptions()
	assert.Equal(t, "localhost:6380", options.Addr)
	assert.Equal(t, 1, options.DB)
}

func TestGetTestRedisClient(t *testing.T) {
	t.Setenv("REDIS_TEST_ADDR", "redis.example.com:6379")

	client := GetTestRedisClient()
	require.NotNil(t, client)
	defer client.Close()
	assert.Equal(t, "redis.example.com:6379", client.Options().Addr)
	assert.Equal(t, 1, client.Options().DB)
}

func TestNewMiniRedis(t *testing.T) {
	client, mr := NewMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "market_sim:probe", "ok", 0).Err())

	got, err := mr.Get("market_sim:probe")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.NoError(t, client.Ping(ctx).Err())
}
