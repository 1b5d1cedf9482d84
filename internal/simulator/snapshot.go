package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Snapshot is the persisted form of a live series.
type Snapshot struct {
	Data        Series  `json:"data"`
	Trend       float64 `json:"trend"`
	LastUpdated int64   `json:"lastUpdated"`
}

// SnapshotStore is a key/value slot per series identifier.
type SnapshotStore interface {
	Get(ctx context.Context, id string) ([]byte, bool)
	Set(ctx context.Context, id string, data []byte) error
}

// Valid reports whether the snapshot can be resumed as a window of count samples.
func (s *Snapshot) Valid(count int) bool {
	if s == nil || len(s.Data) == 0 || len(s.Data) != count {
		return false
	}
	if math.IsNaN(s.Trend) || math.IsInf(s.Trend, 0) {
		return false
	}
	for i, p := range s.Data {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value <= 0 {
			return false
		}
		if i > 0 && p.Time < s.Data[i-1].Time {
			return false
		}
	}
	return true
}

// Load reads and decodes the snapshot stored for id. Any failure, including
// a snapshot that does not fit a window of count samples, yields false.
func Load(ctx context.Context, store SnapshotStore, id string, count int) (*Snapshot, bool) {
	if store == nil || id == "" {
		return nil, false
	}
	raw, ok := store.Get(ctx, id)
	if !ok {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	if !snap.Valid(count) {
		return nil, false
	}
	return &snap, true
}

// Resume rebuilds a state from a snapshot. When the newest stored sample is
// more than ResumeGapThreshold old every timestamp is shifted forward by the
// gap; values are never touched.
func Resume(snap Snapshot, now time.Time) State {
	window := make(Series, len(snap.Data))
	copy(window, snap.Data)

	gap := millis(now) - window.Last().Time
	if gap > ResumeGapThreshold.Milliseconds() {
		for i := range window {
			window[i].Time += gap
		}
	}
	return State{Window: window, Trend: snap.Trend}
}

// Initialize resumes the series stored for id, or generates a fresh one.
// The boolean reports whether a stored snapshot was resumed.
func Initialize(ctx context.Context, store SnapshotStore, id string, p Params, rnd Rand, now time.Time) (State, bool) {
	if snap, ok := Load(ctx, store, id, p.Count); ok {
		return Resume(*snap, now), true
	}
	return State{Window: Generate(p, rnd, now), Trend: 0}, false
}

// Persist writes the state to the slot for id. It is a no-op without an id.
func Persist(ctx context.Context, store SnapshotStore, id string, s State, now time.Time) error {
	if store == nil || id == "" {
		return nil
	}
	data, err := json.Marshal(Snapshot{Data: s.Window, Trend: s.Trend, LastUpdated: millis(now)})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", id, err)
	}
	if err := store.Set(ctx, id, data); err != nil {
		return fmt.Errorf("store snapshot %s: %w", id, err)
	}
	return nil
}
