package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/claw-quants/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisClient owns the connection backing the snapshot store.
type RedisClient struct {
	Client *redis.Client
	logger *logrus.Logger
}

// RetryFunc runs op under a retry policy. It keeps this package free of a
// dependency on the services layer.
type RetryFunc func(ctx context.Context, operationName string, op func(context.Context) error) error

// NewRedisConnectionWithRetry pings Redis through retry when it is set and
// with a single attempt otherwise.
func NewRedisConnectionWithRetry(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger, retry RetryFunc) (*RedisClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ping := func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}

	var connectionErr error
	if retry != nil {
		connectionErr = retry(ctx, "redis_connect", ping)
	} else {
		connectionErr = ping(ctx)
	}
	if connectionErr != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", connectionErr)
	}

	logger.WithField("addr", cfg.Addr()).Info("Successfully connected to Redis")

	return &RedisClient{Client: rdb, logger: logger}, nil
}

func (r *RedisClient) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
		r.logger.Info("Redis connection closed")
	}
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
