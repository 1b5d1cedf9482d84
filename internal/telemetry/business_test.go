package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessTracer_NoopProvider(t *testing.T) {
	_, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{}, nil)
	require.NoError(t, err)

	bt := NewBusinessTracer()
	assert.NotPanics(t, func() {
		bt.TraceSeriesInit(context.Background(), "card-1", true, 50)
		bt.TraceSeriesStop(context.Background(), "card-1", 12)
		bt.TraceTraderDeployment(context.Background(), "t-1", "AlphaBot 7", 4)
	})
}

func TestBusinessTracer_ExportsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	provider, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{
		Enabled:  true,
		Exporter: ExporterStdout,
		Writer:   buf,
	}, nil)
	require.NoError(t, err)

	bt := NewBusinessTracer()
	bt.TraceSeriesInit(context.Background(), "card-1", false, 50)
	bt.TraceTraderDeployment(context.Background(), "t-1", "AlphaBot 7", 4)

	require.NoError(t, provider.Shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "series.init")
	assert.Contains(t, out, "cold start")
	assert.Contains(t, out, "leaderboard.deploy")
	assert.Contains(t, out, "AlphaBot 7")

	_, err = InitTelemetryWithProvider(context.Background(), &TelemetryConfig{}, nil)
	require.NoError(t, err)
}
