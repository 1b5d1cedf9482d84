package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer records simulation and leaderboard activity as spans.
type BusinessTracer struct {
	simulation  trace.Tracer
	leaderboard trace.Tracer
}

// NewBusinessTracer creates a BusinessTracer bound to the global provider.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{
		simulation:  GetSimulationTracer(),
		leaderboard: GetLeaderboardTracer(),
	}
}

// TraceSeriesInit records how a live series obtained its first window.
func (bt *BusinessTracer) TraceSeriesInit(ctx context.Context, seriesID string, resumed bool, samples int) {
	_, span := bt.simulation.Start(ctx, "series.init", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.Bool("series.resumed", resumed),
		attribute.Int("series.samples", samples),
	))
	if resumed {
		span.AddEvent("resumed from snapshot")
	} else {
		span.AddEvent("cold start")
	}
	span.End()
}

// TraceSeriesStop records the end of a live series.
func (bt *BusinessTracer) TraceSeriesStop(ctx context.Context, seriesID string, ticks int64) {
	_, span := bt.simulation.Start(ctx, "series.stop", trace.WithAttributes(
		attribute.String("series.id", seriesID),
		attribute.Int64("series.ticks", ticks),
	))
	span.End()
}

// TraceTraderDeployment records a new trader joining the leaderboard.
func (bt *BusinessTracer) TraceTraderDeployment(ctx context.Context, traderID, name string, rosterSize int) {
	_, span := bt.leaderboard.Start(ctx, "leaderboard.deploy", trace.WithAttributes(
		attribute.String("trader.id", traderID),
		attribute.String("trader.name", name),
		attribute.Int("leaderboard.size", rosterSize),
	))
	span.End()
}
