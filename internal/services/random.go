package services

import (
	"math/rand"
	"sync"
	"time"
)

// Random is the source of draws used by the services.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// LockedRand is a math/rand source that is safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedRand creates a LockedRand. A zero seed derives one from the clock.
func NewLockedRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// Int63 returns a non-negative seed for a child source.
func (r *LockedRand) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63()
}
