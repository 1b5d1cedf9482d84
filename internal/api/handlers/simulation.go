package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/middleware"
	"github.com/irfndi/claw-quants/internal/services"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/irfndi/claw-quants/internal/telemetry"
	"github.com/irfndi/claw-quants/internal/utils"
)

// MaxSeriesCount caps the window a request may ask for.
const MaxSeriesCount = 1000

// StreamCounter tracks open live streams.
type StreamCounter interface {
	StreamOpened()
	StreamClosed()
}

// SimulationHandler serves synthetic market series over JSON and SSE.
type SimulationHandler struct {
	store        simulator.SnapshotStore
	defaults     simulator.Params
	tickInterval time.Duration
	streams      StreamCounter
	events       *logging.StandardLogger
	tracer       *telemetry.BusinessTracer
	clock        func() time.Time
	newRand      func() simulator.Rand
}

// SimulationConfig holds the values used when a request omits a parameter.
type SimulationConfig struct {
	Defaults     simulator.Params
	TickInterval time.Duration
}

// StatePayload is the wire form of a series state.
type StatePayload struct {
	ID           string           `json:"id"`
	Data         simulator.Series `json:"data"`
	Trend        float64          `json:"trend"`
	CurrentPrice string           `json:"current_price"`
	PnL          string           `json:"pnl"`
	PnLPercent   float64          `json:"pnl_percent"`
	LiveWinRate  string           `json:"live_win_rate"`
	Direction    string           `json:"direction"`
}

// SimulationResponse is returned by GetSimulation.
type SimulationResponse struct {
	StatePayload
	Resumed     bool                     `json:"resumed"`
	Personality simulator.Personality    `json:"personality"`
	StartValue  float64                  `json:"start_value"`
	Volatility  float64                  `json:"volatility"`
	Analytics   services.SeriesAnalytics `json:"analytics"`
}

func NewSimulationHandler(store simulator.SnapshotStore, config SimulationConfig, streams StreamCounter, events *logging.StandardLogger) *SimulationHandler {
	if config.Defaults.Count == 0 {
		config.Defaults = simulator.DefaultParams()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = simulator.TickInterval
	}
	return &SimulationHandler{
		store:        store,
		defaults:     config.Defaults,
		tickInterval: config.TickInterval,
		streams:      streams,
		events:       events,
		tracer:       telemetry.NewBusinessTracer(),
		clock:        time.Now,
	}
}

// NewStatePayload converts a state into its wire form.
func NewStatePayload(id string, s simulator.State) StatePayload {
	pnl := s.PnLPercent()
	return StatePayload{
		ID:           id,
		Data:         s.Window,
		Trend:        s.Trend,
		CurrentPrice: services.FormatPrice(s.CurrentPrice()),
		PnL:          services.FormatSignedPercent(pnl, 2),
		PnLPercent:   pnl,
		LiveWinRate:  services.FormatPercent(services.LiveWinRate(pnl)),
		Direction:    s.Direction(),
	}
}

// GetSimulation resumes or cold-starts a series without starting its timer.
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	id := c.Param("id")
	params, err := h.parseParams(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	var rnd simulator.Rand
	if h.newRand != nil {
		rnd = h.newRand()
	} else {
		rnd = services.NewLockedRand(0)
	}
	state, resumed := simulator.Initialize(c.Request.Context(), h.store, id, params, rnd, h.clock())
	middleware.AddSpanAttribute(c, "simulation.resumed", resumed)

	c.JSON(http.StatusOK, SimulationResponse{
		StatePayload: NewStatePayload(id, state),
		Resumed:      resumed,
		Personality:  params.Personality,
		StartValue:   params.StartValue,
		Volatility:   params.Volatility,
		Analytics:    services.AnalyzeSeries(state.Window),
	})
}

// StreamSimulation sends the series as server-sent events: one "snapshot"
// event with the initial state, then one "tick" event per tick. The feed is
// stopped when the client goes away.
func (h *SimulationHandler) StreamSimulation(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	params, err := h.parseParams(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	cfg := services.FeedConfig{
		ID:           id,
		Params:       params,
		Store:        h.store,
		Clock:        h.clock,
		TickInterval: h.tickInterval,
		Events:       h.events,
		Tracer:       h.tracer,
	}
	if h.newRand != nil {
		cfg.Rand = h.newRand()
	}
	feed, err := services.NewFeed(ctx, cfg)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer feed.Stop()

	if h.streams != nil {
		h.streams.StreamOpened()
		defer h.streams.StreamClosed()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("snapshot", NewStatePayload(id, feed.State()))
	c.Writer.Flush()

	feed.Start(ctx)
	updates := feed.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("tick", NewStatePayload(id, state))
			c.Writer.Flush()
		}
	}
}

func (h *SimulationHandler) parseParams(c *gin.Context) (simulator.Params, error) {
	params := h.defaults

	var errs []error
	if raw := c.Query("start"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, utils.NewFieldError("start", "must be a number, got %q", raw))
		}
		params.StartValue = v
	}
	if raw := c.Query("volatility"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, utils.NewFieldError("volatility", "must be a number, got %q", raw))
		}
		params.Volatility = v
	}
	if raw := c.Query("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, utils.NewFieldError("count", "must be an integer, got %q", raw))
		}
		if err == nil && v > MaxSeriesCount {
			errs = append(errs, utils.NewFieldError("count", "must be at most %d, got %d", MaxSeriesCount, v))
		}
		params.Count = v
	}
	if raw, ok := c.GetQuery("personality"); ok {
		personality, err := simulator.ParsePersonality(raw)
		if err != nil {
			errs = append(errs, err)
		}
		params.Personality = personality
	}
	if len(errs) > 0 {
		return params, errors.Join(errs...)
	}

	if strings.TrimSpace(c.Param("id")) == "" {
		return params, utils.NewFieldError("id", "must not be empty")
	}
	return params, params.Validate()
}

func (h *SimulationHandler) badRequest(c *gin.Context, err error) {
	if !utils.IsValidationError(err) {
		middleware.RecordError(c, err, "simulation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
