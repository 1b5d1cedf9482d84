package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// Service information
	ServiceName    = "claw-quants"
	ServiceVersion = "1.0.0"

	tracesPath = "/v1/traces"
)

// Exporter names accepted in TelemetryConfig.Exporter.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	Exporter       string
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
	LogLevel       string
	// Writer receives spans from the stdout exporter. Defaults to os.Stdout.
	Writer io.Writer
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:        true,
		Exporter:       ExporterOTLP,
		OTLPEndpoint:   "http://localhost:4318",
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		MaxExportBatch: 512,
		MaxQueueSize:   2048,
		LogLevel:       "info",
	}
}

// Provider holds the telemetry provider
type Provider struct {
	Shutdown func(context.Context) error
	logger   *slog.Logger
	tracer   *sdktrace.TracerProvider
}

// TracerProvider returns the SDK provider, or the global one when disabled.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.tracer == nil {
		return otel.GetTracerProvider()
	}
	return p.tracer
}

// InitTelemetryWithProvider builds and installs a tracer provider for config.
// A disabled config, or the "none" exporter, installs a no-op provider.
func InitTelemetryWithProvider(ctx context.Context, config *TelemetryConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exporterName := strings.ToLower(config.Exporter)
	if !config.Enabled || exporterName == ExporterNone {
		otel.SetTracerProvider(noop.NewTracerProvider())
		logger.Info("Telemetry disabled")
		return &Provider{
			Shutdown: func(context.Context) error { return nil },
			logger:   logger,
		}, nil
	}

	exporter, err := newExporter(ctx, config, exporterName)
	if err != nil {
		return nil, err
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampleRate := config.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	batchOpts := []sdktrace.BatchSpanProcessorOption{}
	if config.BatchTimeout > 0 {
		batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(config.BatchTimeout))
	}
	if config.MaxExportBatch > 0 {
		batchOpts = append(batchOpts, sdktrace.WithMaxExportBatchSize(config.MaxExportBatch))
	}
	if config.MaxQueueSize > 0 {
		batchOpts = append(batchOpts, sdktrace.WithMaxQueueSize(config.MaxQueueSize))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, batchOpts...),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		"exporter", exporterName,
		"service", serviceName,
		"sample_rate", sampleRate,
	)

	return &Provider{
		Shutdown: tp.Shutdown,
		logger:   logger,
		tracer:   tp,
	}, nil
}

func newExporter(ctx context.Context, config *TelemetryConfig, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout, "":
		w := config.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	case ExporterOTLP:
		hostport, urlPath, insecure, _, err := normalizeOTLPEndpoint(config.OTLPEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(urlPath),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", name)
	}
}

// normalizeOTLPEndpoint splits a collector base URL into the pieces the OTLP
// HTTP exporter wants. The traces path is appended unless already present.
func normalizeOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, parseErr := url.Parse(strings.TrimSpace(raw))
	if parseErr != nil {
		return "", "", false, "", fmt.Errorf("invalid OTLPEndpoint %q: %w", raw, parseErr)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", false, "", fmt.Errorf("invalid OTLPEndpoint %q: scheme and host are required", raw)
	}

	urlPath = strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(urlPath, tracesPath) {
		urlPath += tracesPath
	}
	insecure = u.Scheme == "http"
	resolved = u.Scheme + "://" + u.Host + urlPath
	return u.Host, urlPath, insecure, resolved, nil
}

// GetTracer returns a named tracer from the global provider
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetHTTPTracer returns the tracer used for inbound HTTP requests
func GetHTTPTracer() trace.Tracer {
	return GetTracer(ServiceName + "/http")
}

// GetSimulationTracer returns the tracer used by live feeds
func GetSimulationTracer() trace.Tracer {
	return GetTracer(ServiceName + "/simulation")
}

// GetLeaderboardTracer returns the tracer used by the leaderboard
func GetLeaderboardTracer() trace.Tracer {
	return GetTracer(ServiceName + "/leaderboard")
}

// GetCacheTracer returns the tracer used by the snapshot store
func GetCacheTracer() trace.Tracer {
	return GetTracer(ServiceName + "/cache")
}

// StartSpan starts an internal span on tracer
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on a recording span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// RecordError records err on span and marks it failed
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanStatus sets the span status
func SetSpanStatus(span trace.Span, code codes.Code, description string) {
	span.SetStatus(code, description)
}

func StringAttribute(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func Int64Attribute(key string, value int64) attribute.KeyValue {
	return attribute.Int64(key, value)
}

func BoolAttribute(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}
