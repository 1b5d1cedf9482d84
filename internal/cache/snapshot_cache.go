package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SnapshotKeyPrefix namespaces every persisted series.
const SnapshotKeyPrefix = "market_sim:"

// SnapshotCache is a simulator.SnapshotStore with operational helpers.
type SnapshotCache interface {
	simulator.SnapshotStore
	Backend() string
	HealthCheck(ctx context.Context) error
	GetStats() SnapshotCacheStats
	LogStats()
	Clear(ctx context.Context) error
	GetCachedIDs(ctx context.Context) ([]string, error)
}

var (
	_ SnapshotCache = (*RedisSnapshotCache)(nil)
	_ SnapshotCache = (*InMemorySnapshotCache)(nil)
)

// SnapshotCacheStats tracks cache performance metrics
type SnapshotCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// HitRate returns hits as a percentage of all reads.
func (s SnapshotCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type statsCounter struct {
	mu    sync.RWMutex
	stats SnapshotCacheStats
}

func (c *statsCounter) hit()  { c.mu.Lock(); c.stats.Hits++; c.mu.Unlock() }
func (c *statsCounter) miss() { c.mu.Lock(); c.stats.Misses++; c.mu.Unlock() }
func (c *statsCounter) set()  { c.mu.Lock(); c.stats.Sets++; c.mu.Unlock() }

func (c *statsCounter) snapshot() SnapshotCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// RedisSnapshotCache stores serialized series snapshots in Redis. Entries
// have no TTL and live until overwritten or cleared.
type RedisSnapshotCache struct {
	redis  *redis.Client
	stats  *statsCounter
	prefix string
	logger *logrus.Logger
	events *logging.StandardLogger
}

// NewRedisSnapshotCache creates a new Redis-based snapshot cache
func NewRedisSnapshotCache(redisClient *redis.Client, logger *logrus.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		redis:  redisClient,
		stats:  &statsCounter{},
		prefix: SnapshotKeyPrefix,
		logger: logger,
	}
}

// SetEventLogger routes per-operation cache events to events.
func (c *RedisSnapshotCache) SetEventLogger(events *logging.StandardLogger) {
	c.events = events
}

// Get retrieves the raw snapshot stored for id. Any Redis failure is a miss.
func (c *RedisSnapshotCache) Get(ctx context.Context, id string) ([]byte, bool) {
	ctx, op := startOp(ctx, c.events, c.Backend(), "get", id)
	data, err := c.redis.Get(ctx, c.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.miss()
		op.end(false, 0, nil)
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("series_id", id).Warn("Redis error reading snapshot")
		c.stats.miss()
		op.end(false, 0, err)
		return nil, false
	}

	c.stats.hit()
	op.end(true, len(data), nil)
	return data, true
}

// Set overwrites the snapshot stored for id.
func (c *RedisSnapshotCache) Set(ctx context.Context, id string, data []byte) error {
	ctx, op := startOp(ctx, c.events, c.Backend(), "set", id)
	if err := c.redis.Set(ctx, c.prefix+id, data, 0).Err(); err != nil {
		err = fmt.Errorf("redis set %s: %w", id, err)
		op.end(false, len(data), err)
		return err
	}
	c.stats.set()
	op.end(false, len(data), nil)
	return nil
}

// Backend names the storage for health reporting.
func (c *RedisSnapshotCache) Backend() string {
	return "redis"
}

// HealthCheck pings Redis.
func (c *RedisSnapshotCache) HealthCheck(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// GetStats returns current cache statistics
func (c *RedisSnapshotCache) GetStats() SnapshotCacheStats {
	return c.stats.snapshot()
}

// LogStats logs current cache performance statistics
func (c *RedisSnapshotCache) LogStats() {
	logStats(c.logger, c.Backend(), c.GetStats())
}

// Clear removes all cached snapshots
func (c *RedisSnapshotCache) Clear(ctx context.Context) error {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("count", len(keys)).Info("Cleared snapshot cache entries")
	return nil
}

// GetCachedIDs returns the ids that currently have a stored snapshot, sorted.
func (c *RedisSnapshotCache) GetCachedIDs(ctx context.Context) ([]string, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := strings.TrimPrefix(key, c.prefix); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *RedisSnapshotCache) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}
	return keys, nil
}

// InMemorySnapshotCache keeps snapshots in process memory. It is used when
// Redis is disabled; contents are lost on restart.
type InMemorySnapshotCache struct {
	mu     sync.RWMutex
	data   map[string][]byte
	stats  *statsCounter
	logger *logrus.Logger
	events *logging.StandardLogger
}

// NewInMemorySnapshotCache creates an empty in-memory snapshot cache
func NewInMemorySnapshotCache(logger *logrus.Logger) *InMemorySnapshotCache {
	return &InMemorySnapshotCache{
		data:   make(map[string][]byte),
		stats:  &statsCounter{},
		logger: logger,
	}
}

func (c *InMemorySnapshotCache) SetEventLogger(events *logging.StandardLogger) {
	c.events = events
}

func (c *InMemorySnapshotCache) Get(ctx context.Context, id string) ([]byte, bool) {
	_, op := startOp(ctx, c.events, c.Backend(), "get", id)
	c.mu.RLock()
	data, ok := c.data[id]
	c.mu.RUnlock()

	if !ok {
		c.stats.miss()
		op.end(false, 0, nil)
		return nil, false
	}
	c.stats.hit()

	out := make([]byte, len(data))
	copy(out, data)
	op.end(true, len(out), nil)
	return out, true
}

func (c *InMemorySnapshotCache) Set(ctx context.Context, id string, data []byte) error {
	_, op := startOp(ctx, c.events, c.Backend(), "set", id)
	stored := make([]byte, len(data))
	copy(stored, data)

	c.mu.Lock()
	c.data[id] = stored
	c.mu.Unlock()

	c.stats.set()
	op.end(false, len(stored), nil)
	return nil
}

func (c *InMemorySnapshotCache) Backend() string {
	return "memory"
}

func (c *InMemorySnapshotCache) HealthCheck(context.Context) error {
	return nil
}

func (c *InMemorySnapshotCache) GetStats() SnapshotCacheStats {
	return c.stats.snapshot()
}

func (c *InMemorySnapshotCache) LogStats() {
	logStats(c.logger, c.Backend(), c.GetStats())
}

func (c *InMemorySnapshotCache) Clear(context.Context) error {
	c.mu.Lock()
	c.data = make(map[string][]byte)
	c.mu.Unlock()
	return nil
}

func (c *InMemorySnapshotCache) GetCachedIDs(context.Context) ([]string, error) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.data))
	for id := range c.data {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

func logStats(logger *logrus.Logger, backend string, stats SnapshotCacheStats) {
	logger.WithFields(logrus.Fields{
		"backend":  backend,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()),
	}).Info("Snapshot cache stats")
}
