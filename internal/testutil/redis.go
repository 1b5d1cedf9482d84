package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// GetTestRedisOptions returns Redis options for testing with configurable address
func GetTestRedisOptions() *redis.Options {
	redisAddr := os.Getenv("REDIS_TEST_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379" // fallback for local development
	}

	return &redis.Options{
		Addr: redisAddr,
		DB:   1, // Use test database
	}
}

// GetTestRedisClient returns a Redis client configured for testing
func GetTestRedisClient() *redis.Client {
	return redis.NewClient(GetTestRedisOptions())
}

// NewMiniRedis starts an in-process Redis and a client bound to it. Both are
// closed when the test finishes.
func NewMiniRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}
