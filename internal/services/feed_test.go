package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/claw-quants/internal/cache"
	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/irfndi/claw-quants/internal/utils"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestFeed(t *testing.T, id string, store simulator.SnapshotStore, opts ...func(*FeedConfig)) *Feed {
	t.Helper()
	cfg := FeedConfig{
		ID:           id,
		Params:       simulator.DefaultParams(),
		Store:        store,
		Rand:         rand.New(rand.NewSource(7)),
		TickInterval: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	feed, err := NewFeed(context.Background(), cfg)
	require.NoError(t, err)
	return feed
}

func TestNewFeed_InvalidParams(t *testing.T) {
	params := simulator.DefaultParams()
	params.StartValue = 0

	_, err := NewFeed(context.Background(), FeedConfig{ID: "card-1", Params: params})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestFeed_ColdStartAndTick(t *testing.T) {
	store := cache.NewInMemorySnapshotCache(quietLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := newTestFeed(t, "card-1", store, func(c *FeedConfig) { c.Clock = fixedClock(now) })

	assert.False(t, feed.Resumed())
	assert.Equal(t, "card-1", feed.ID())
	initial := feed.State()
	require.Len(t, initial.Window, simulator.DefaultWindow)
	assert.Equal(t, now.Add(-simulator.SampleInterval).UnixMilli(), initial.Window.Last().Time)

	_, ok := store.Get(context.Background(), "card-1")
	assert.False(t, ok, "initialization alone must not write a snapshot")

	state := feed.Tick(context.Background())
	require.Len(t, state.Window, simulator.DefaultWindow)
	assert.Equal(t, initial.Window[1], state.Window[0])
	assert.Equal(t, now.UnixMilli(), state.Window.Last().Time)
	assert.Equal(t, int64(1), feed.Ticks())

	snap, ok := simulator.Load(context.Background(), store, "card-1", simulator.DefaultWindow)
	require.True(t, ok)
	assert.Equal(t, state.Window, snap.Data)
	assert.Equal(t, now.UnixMilli(), snap.LastUpdated)
}

func TestFeed_ResumesFromStore(t *testing.T) {
	store := cache.NewInMemorySnapshotCache(quietLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newTestFeed(t, "card-2", store, func(c *FeedConfig) { c.Clock = fixedClock(now) })
	for i := 0; i < 3; i++ {
		first.Tick(context.Background())
	}
	want := first.State()

	second := newTestFeed(t, "card-2", store, func(c *FeedConfig) {
		c.Clock = fixedClock(now.Add(10 * time.Second))
	})
	assert.True(t, second.Resumed())
	assert.Equal(t, want.Window, second.State().Window)
	assert.Equal(t, want.Trend, second.State().Trend)

	third := newTestFeed(t, "card-2", store, func(c *FeedConfig) {
		c.Clock = fixedClock(now.Add(time.Hour))
	})
	assert.True(t, third.Resumed())
	assert.Equal(t, want.Window.Last().Time+time.Hour.Milliseconds(), third.State().Window.Last().Time)
	assert.Equal(t, want.Window.Last().Value, third.State().Window.Last().Value)
}

func TestFeed_WithoutIDDoesNotPersist(t *testing.T) {
	store := cache.NewInMemorySnapshotCache(quietLogger())
	feed := newTestFeed(t, "", store)
	feed.Tick(context.Background())

	ids, err := store.GetCachedIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFeed_StateIsACopy(t *testing.T) {
	feed := newTestFeed(t, "card-3", nil)
	state := feed.State()
	state.Window[0].Value = -1

	assert.Greater(t, feed.State().Window[0].Value, 0.0)
}

func TestFeed_StartPublishesUpdates(t *testing.T) {
	feed := newTestFeed(t, "card-4", cache.NewInMemorySnapshotCache(quietLogger()))
	feed.Start(context.Background())
	feed.Start(context.Background())

	select {
	case state, ok := <-feed.Updates():
		require.True(t, ok)
		assert.Len(t, state.Window, simulator.DefaultWindow)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	feed.Stop()
	feed.Stop()

	for range feed.Updates() {
	}
	ticks := feed.Ticks()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ticks, feed.Ticks(), "no ticks after Stop")
}

func TestFeed_StopWithoutStart(t *testing.T) {
	feed := newTestFeed(t, "card-5", nil)
	feed.Stop()

	_, ok := <-feed.Updates()
	assert.False(t, ok)

	feed.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), feed.Ticks())
}

func TestFeed_ContextCancelStopsLoop(t *testing.T) {
	feed := newTestFeed(t, "card-6", nil)
	ctx, cancel := context.WithCancel(context.Background())
	feed.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-feed.Updates():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	feed.Stop()
}

func TestFeed_DropsWhenConsumerLags(t *testing.T) {
	feed := newTestFeed(t, "card-7", nil, func(c *FeedConfig) {
		c.BufferSize = 1
		c.TickInterval = time.Millisecond
	})
	feed.Start(context.Background())

	assert.Eventually(t, func() bool { return feed.Ticks() >= 5 }, 2*time.Second, time.Millisecond)
	feed.Stop()

	received := 0
	for range feed.Updates() {
		received++
	}
	assert.LessOrEqual(t, received, 1)
	assert.Len(t, feed.State().Window, simulator.DefaultWindow)
}

func TestFeed_IndependentSeries(t *testing.T) {
	store := cache.NewInMemorySnapshotCache(quietLogger())
	a := newTestFeed(t, "card-a", store)
	b := newTestFeed(t, "card-b", store, func(c *FeedConfig) {
		c.Params.Personality = simulator.Volatile
		c.Rand = rand.New(rand.NewSource(99))
	})

	a.Tick(context.Background())
	assert.Equal(t, int64(0), b.Ticks())

	ids, err := store.GetCachedIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"card-a"}, ids)
}

func TestFeed_LogsLifecycleEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	events := logging.NewStandardLoggerWithWriter(buf, "info", "test")
	store := cache.NewInMemorySnapshotCache(quietLogger())
	withEvents := func(c *FeedConfig) { c.Events = events }

	feed := newTestFeed(t, "card-9", store, withEvents)
	feed.Tick(context.Background())
	feed.Stop()

	resumedFeed := newTestFeed(t, "card-9", store, withEvents)
	resumedFeed.Stop()

	var entries []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 4)

	var got []string
	for _, entry := range entries {
		assert.Equal(t, "card-9", entry["series_id"])
		got = append(got, entry["simulation_event"].(string))
	}
	assert.Equal(t, []string{"cold_start", "stopped", "resumed", "stopped"}, got)
	assert.Equal(t, float64(1), entries[1]["ticks"])
}
