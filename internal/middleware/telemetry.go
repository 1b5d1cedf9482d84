// Package middleware provides gin middleware for tracing, request logging
// and request identification.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/telemetry"
)

// RequestIDHeader carries the request identifier in and out.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/live":   true,
}

// TelemetryMiddleware creates a Gin middleware for OpenTelemetry tracing.
// Probe endpoints are not traced.
func TelemetryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if probePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		tracer := telemetry.GetHTTPTracer()
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.url", c.Request.URL.String()),
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		if routePath := c.FullPath(); routePath != "" {
			attrs = append(attrs, attribute.String("http.route", routePath))
		}

		ctx, span := tracer.Start(
			ctx,
			fmt.Sprintf("HTTP %s %s", c.Request.Method, c.Request.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.Int64("http.response.time_ms", time.Since(start).Milliseconds()),
			attribute.Int64("http.response.size_bytes", int64(c.Writer.Size())),
		)
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("http.request_id", id))
		}

		if statusCode >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
			span.RecordError(fmt.Errorf("HTTP %d", statusCode))
		} else {
			span.SetStatus(codes.Ok, fmt.Sprintf("HTTP %d", statusCode))
		}
	}
}

// RequestID assigns every request an identifier, reusing an inbound one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the identifier assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs one structured line per request. Probe endpoints are skipped.
func RequestLogger(logger *logging.StandardLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if probePaths[c.Request.URL.Path] {
			return
		}
		requestID := GetRequestID(c)
		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			requestID,
		)
		if len(c.Errors) > 0 {
			logger.WithRequestID(requestID).Error("Request failed",
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"errors", c.Errors.String(),
			)
		}
	}
}

// RecordError records an error on the current span and on the gin context,
// where RequestLogger picks it up.
func RecordError(c *gin.Context, err error, description string) {
	_ = c.Error(err)
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
	}
}
