package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestNormalizeOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hostport string
		urlPath  string
		insecure bool
		resolved string
		wantErr  bool
	}{
		{"default localhost", "http://localhost:4318", "localhost:4318", "/v1/traces", true, "http://localhost:4318/v1/traces", false},
		{"trailing slash base", "http://collector:4318/", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"already traces path", "http://collector:4318/v1/traces", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"custom base path", "https://otlp.example.com:4318/otlp", "otlp.example.com:4318", "/otlp/v1/traces", false, "https://otlp.example.com:4318/otlp/v1/traces", false},
		{"invalid no scheme", "collector:4318", "", "", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp, path, insecure, resolved, err := normalizeOTLPEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hostport, hp)
			assert.Equal(t, tt.urlPath, path)
			assert.Equal(t, tt.insecure, insecure)
			assert.Equal(t, tt.resolved, resolved)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.NotNil(t, config)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterOTLP, config.Exporter)
	assert.Equal(t, "http://localhost:4318", config.OTLPEndpoint)
	assert.Equal(t, ServiceName, config.ServiceName)
	assert.Equal(t, ServiceVersion, config.ServiceVersion)
	assert.Equal(t, 1.0, config.SampleRate)
	assert.Equal(t, 5*time.Second, config.BatchTimeout)
	assert.Equal(t, 512, config.MaxExportBatch)
	assert.Equal(t, 2048, config.MaxQueueSize)
}

func TestTracerGetters(t *testing.T) {
	assert.NotNil(t, GetTracer("test-tracer"))
	assert.NotNil(t, GetHTTPTracer())
	assert.NotNil(t, GetSimulationTracer())
	assert.NotNil(t, GetLeaderboardTracer())
	assert.NotNil(t, GetCacheTracer())
}

func TestSpanHelpers(t *testing.T) {
	ctx := context.Background()
	tracer := GetTracer("test")

	newCtx, span := StartSpan(ctx, tracer, "test-span", StringAttribute("k", "v"))
	assert.NotNil(t, newCtx)
	assert.NotNil(t, span)

	SetSpanAttributes(span, Int64Attribute("test-int", 42))
	RecordError(span, assert.AnError)
	RecordError(span, nil)
	SetSpanStatus(span, codes.Ok, "success")
	span.End()
}

func TestAttributeHelpers(t *testing.T) {
	strAttr := StringAttribute("key", "value")
	assert.Equal(t, attribute.Key("key"), strAttr.Key)
	assert.Equal(t, "value", strAttr.Value.AsString())

	assert.Equal(t, int64(42), Int64Attribute("key", 42).Value.AsInt64())
	assert.True(t, BoolAttribute("key", true).Value.AsBool())
}

func TestInitTelemetryWithProvider_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := InitTelemetryWithProvider(context.Background(), config, nil)
	require.NoError(t, err)
	assert.Nil(t, provider.tracer)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTelemetryWithProvider_NoneExporter(t *testing.T) {
	provider, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{Enabled: true, Exporter: ExporterNone}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.TracerProvider())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTelemetryWithProvider_Stdout(t *testing.T) {
	buf := &bytes.Buffer{}
	config := &TelemetryConfig{
		Enabled:        true,
		Exporter:       ExporterStdout,
		ServiceName:    "claw-quants-test",
		ServiceVersion: "test",
		Environment:    "test",
		Writer:         buf,
	}

	provider, err := InitTelemetryWithProvider(context.Background(), config, slog.Default())
	require.NoError(t, err)

	_, span := GetSimulationTracer().Start(context.Background(), "series.tick")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "series.tick")
	assert.Contains(t, buf.String(), "claw-quants-test")

	// Leave a no-op provider installed for other tests.
	_, err = InitTelemetryWithProvider(context.Background(), &TelemetryConfig{}, nil)
	require.NoError(t, err)
}

func TestInitTelemetryWithProvider_OTLP(t *testing.T) {
	config := DefaultConfig()
	config.Environment = "test"

	// Exporter construction does not dial the collector.
	provider, err := InitTelemetryWithProvider(context.Background(), config, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = provider.Shutdown(ctx)

	_, err = InitTelemetryWithProvider(context.Background(), &TelemetryConfig{}, nil)
	require.NoError(t, err)
}

func TestInitTelemetryWithProviderInvalidEndpoint(t *testing.T) {
	config := &TelemetryConfig{
		Enabled:      true,
		Exporter:     ExporterOTLP,
		OTLPEndpoint: "invalid-url://[invalid",
	}

	provider, err := InitTelemetryWithProvider(context.Background(), config, slog.Default())
	assert.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "invalid OTLPEndpoint")
}

func TestInitTelemetryWithProviderUnknownExporter(t *testing.T) {
	provider, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{Enabled: true, Exporter: "zipkin"}, nil)
	assert.Error(t, err)
	assert.Nil(t, provider)
}
