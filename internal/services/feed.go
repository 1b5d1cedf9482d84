package services

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/irfndi/claw-quants/internal/telemetry"
)

const defaultUpdateBuffer = 16

// FeedConfig configures a live series.
type FeedConfig struct {
	ID           string
	Params       simulator.Params
	Store        simulator.SnapshotStore
	Rand         simulator.Rand
	Clock        func() time.Time
	TickInterval time.Duration
	Events       *logging.StandardLogger
	Tracer       *telemetry.BusinessTracer
	BufferSize   int
}

// Feed owns one live series and the single ticker that advances it.
// A Feed is started at most once and stopped at most once.
type Feed struct {
	id       string
	params   simulator.Params
	store    simulator.SnapshotStore
	rnd      simulator.Rand
	clock    func() time.Time
	interval time.Duration
	events   *logging.StandardLogger
	tracer   *telemetry.BusinessTracer

	mu      sync.Mutex
	state   simulator.State
	resumed bool
	ticks   int64
	dropped int64

	updates      chan simulator.State
	done         chan struct{}
	cancel       context.CancelFunc
	startOnce    sync.Once
	stopOnce     sync.Once
	neverStarted bool
}

// NewFeed validates the parameters and initializes the series, resuming from
// the store when a usable snapshot exists.
func NewFeed(ctx context.Context, cfg FeedConfig) (*Feed, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	f := &Feed{
		id:       cfg.ID,
		params:   cfg.Params,
		store:    cfg.Store,
		rnd:      cfg.Rand,
		clock:    cfg.Clock,
		interval: cfg.TickInterval,
		events:   cfg.Events,
		tracer:   cfg.Tracer,
		done:     make(chan struct{}),
	}
	if f.rnd == nil {
		f.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if f.clock == nil {
		f.clock = time.Now
	}
	if f.interval <= 0 {
		f.interval = simulator.TickInterval
	}
	if f.events == nil {
		f.events = logging.NewStandardLoggerWithWriter(io.Discard, "error", "")
	}
	if f.tracer == nil {
		f.tracer = telemetry.NewBusinessTracer()
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = defaultUpdateBuffer
	}
	f.updates = make(chan simulator.State, buffer)

	f.state, f.resumed = simulator.Initialize(ctx, f.store, f.id, f.params, f.rnd, f.clock())

	f.tracer.TraceSeriesInit(ctx, f.id, f.resumed, len(f.state.Window))
	event := "cold_start"
	if f.resumed {
		event = "resumed"
	}
	f.events.LogSimulationEvent(f.id, event, map[string]interface{}{
		"samples":     len(f.state.Window),
		"personality": string(f.params.Personality),
	})

	return f, nil
}

// ID returns the series identifier.
func (f *Feed) ID() string {
	return f.id
}

// Resumed reports whether the series was restored from a snapshot.
func (f *Feed) Resumed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumed
}

// State returns a copy of the current state.
func (f *Feed) State() simulator.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyState(f.state)
}

// Ticks returns how many steps have been applied.
func (f *Feed) Ticks() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

// Updates delivers the state after every timer-driven tick. Updates are
// dropped while the buffer is full. The channel is closed by Stop.
func (f *Feed) Updates() <-chan simulator.State {
	return f.updates
}

// Tick applies one step and writes the result through to the store.
// Store failures are logged and otherwise ignored.
func (f *Feed) Tick(ctx context.Context) simulator.State {
	f.mu.Lock()
	now := f.clock()
	f.state = simulator.Step(f.state, f.params, f.rnd, now)
	f.ticks++
	state := copyState(f.state)
	f.mu.Unlock()

	if err := simulator.Persist(ctx, f.store, f.id, state, now); err != nil {
		f.events.WithSeries(f.id).Debug("Failed to persist series snapshot", "error", err.Error())
	}
	return state
}

// Start launches the ticker goroutine. Calls after the first, or after Stop,
// do nothing.
func (f *Feed) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		f.cancel = cancel
		go f.run(runCtx)
	})
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	defer close(f.updates)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.publish(f.Tick(ctx))
		}
	}
}

func (f *Feed) publish(state simulator.State) {
	select {
	case f.updates <- state:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
	}
}

// Stop cancels the ticker and waits for the goroutine to exit.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		f.startOnce.Do(func() { f.neverStarted = true })
		if f.neverStarted {
			close(f.updates)
			close(f.done)
		} else {
			f.cancel()
			<-f.done
		}

		f.mu.Lock()
		ticks, dropped := f.ticks, f.dropped
		f.mu.Unlock()

		f.tracer.TraceSeriesStop(context.Background(), f.id, ticks)
		f.events.LogSimulationEvent(f.id, "stopped", map[string]interface{}{
			"ticks":   ticks,
			"dropped": dropped,
		})
	})
}

func copyState(s simulator.State) simulator.State {
	window := make(simulator.Series, len(s.Window))
	copy(window, s.Window)
	return simulator.State{Window: window, Trend: s.Trend}
}
