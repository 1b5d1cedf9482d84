package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the structured logging methods shared by the stdout and
// OTLP-backed implementations.
type Logger interface {
	WithComponent(componentName string) *slog.Logger
	WithRequestID(requestID string) *slog.Logger
	WithSeries(seriesID string) *slog.Logger
	WithError(err error) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogResourceStats(serviceName string, stats map[string]interface{})
	LogCacheOperation(operation string, key string, hit bool, duration int64)
	LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string)
	LogSimulationEvent(seriesID string, event string, details map[string]interface{})
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface
type StandardLogger struct {
	logger Logger
}

// NewStandardLogger creates a JSON logger on stdout.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewStandardLoggerWithWriter(os.Stdout, logLevel, environment)
}

// NewStandardLoggerWithWriter creates a JSON logger writing to w.
func NewStandardLoggerWithWriter(w io.Writer, logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	if environment != "" {
		logger = logger.With("environment", environment)
	}

	return &StandardLogger{
		logger: &slogLogger{logger: logger},
	}
}

// NewStandardOTLPLogger creates a logger that ships records through the OTLP
// log bridge. It falls back to stdout JSON when the exporter cannot be built.
func NewStandardOTLPLogger(config OTLPConfig) (*StandardLogger, *OTLPLogger) {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		fallback := NewStandardLogger(config.LogLevel, config.Environment)
		fallback.WithError(err).Warn("OTLP logging unavailable, using stdout")
		return fallback, nil
	}
	return &StandardLogger{logger: &slogLogger{logger: otlpLogger.Logger()}}, otlpLogger
}

// WithComponent creates a logger with component context
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

// WithRequestID creates a logger with request ID context
func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.WithRequestID(requestID)
}

// WithSeries creates a logger scoped to one simulated series
func (l *StandardLogger) WithSeries(seriesID string) *slog.Logger {
	return l.logger.WithSeries(seriesID)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

// LogResourceStats logs resource statistics in a standardized format
func (l *StandardLogger) LogResourceStats(serviceName string, stats map[string]interface{}) {
	l.logger.LogResourceStats(serviceName, stats)
}

// LogCacheOperation logs cache operations in a standardized format
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	l.logger.LogCacheOperation(operation, key, hit, duration)
}

// LogAPIRequest logs API requests in a standardized format
func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string) {
	l.logger.LogAPIRequest(method, path, statusCode, duration, requestID)
}

// LogSimulationEvent logs feed lifecycle events (resume, cold start, stop)
func (l *StandardLogger) LogSimulationEvent(seriesID string, event string, details map[string]interface{}) {
	l.logger.LogSimulationEvent(seriesID, event, details)
}

// Logger returns the underlying *slog.Logger
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogrusLogger builds the JSON logrus logger handed to services.
func NewLogrusLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLogrusLevel(level))
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

// slogLogger implements Logger over any *slog.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (s *slogLogger) WithComponent(componentName string) *slog.Logger {
	return s.logger.With("component", componentName)
}

func (s *slogLogger) WithRequestID(requestID string) *slog.Logger {
	return s.logger.With("request_id", requestID)
}

func (s *slogLogger) WithSeries(seriesID string) *slog.Logger {
	return s.logger.With("series_id", seriesID)
}

func (s *slogLogger) WithError(err error) *slog.Logger {
	if err == nil {
		return s.logger
	}
	return s.logger.With("error", err.Error())
}

func (s *slogLogger) LogStartup(serviceName string, version string, port int) {
	s.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (s *slogLogger) LogShutdown(serviceName string, reason string) {
	s.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (s *slogLogger) LogResourceStats(serviceName string, stats map[string]interface{}) {
	s.logger.Info("Resource statistics",
		"service", serviceName,
		"stats", stats,
		"event", "resource",
	)
}

func (s *slogLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	s.logger.Debug("Cache operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", duration,
		"event", "cache",
	)
}

func (s *slogLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string) {
	s.logger.Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", duration,
		"request_id", requestID,
		"event", "api",
	)
}

func (s *slogLogger) LogSimulationEvent(seriesID string, event string, details map[string]interface{}) {
	fields := []interface{}{
		"series_id", seriesID,
		"simulation_event", event,
		"event", "simulation",
	}
	for k, v := range details {
		fields = append(fields, k, v)
	}
	s.logger.Info("Simulation event", fields...)
}

func (s *slogLogger) Logger() *slog.Logger {
	return s.logger
}
