package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/claw-quants/internal/cache"
)

// GuardedSnapshotCache puts a circuit breaker in front of snapshot writes so
// that every live feed stops hammering an unavailable store. While the
// breaker is open reads are treated as misses and writes fail fast.
type GuardedSnapshotCache struct {
	cache.SnapshotCache
	breaker *CircuitBreaker
}

var _ cache.SnapshotCache = (*GuardedSnapshotCache)(nil)

// NewGuardedSnapshotCache wraps store with a breaker named after its backend.
func NewGuardedSnapshotCache(store cache.SnapshotCache, config CircuitBreakerConfig, logger *logrus.Logger) *GuardedSnapshotCache {
	return &GuardedSnapshotCache{
		SnapshotCache: store,
		breaker:       NewCircuitBreaker("snapshot_store_"+store.Backend(), config, logger),
	}
}

func (g *GuardedSnapshotCache) Get(ctx context.Context, id string) ([]byte, bool) {
	if !g.breaker.Allow() {
		return nil, false
	}
	return g.SnapshotCache.Get(ctx, id)
}

func (g *GuardedSnapshotCache) Set(ctx context.Context, id string, data []byte) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.SnapshotCache.Set(ctx, id, data)
	})
}

// Breaker exposes the breaker for status reporting.
func (g *GuardedSnapshotCache) Breaker() *CircuitBreaker {
	return g.breaker
}
