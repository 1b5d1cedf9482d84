package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/irfndi/claw-quants/internal/logging"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTelemetryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("regular request tracing", func(t *testing.T) {
		recorder := withSpanRecorder(t)
		router := gin.New()
		router.Use(RequestID(), TelemetryMiddleware())
		router.GET("/api/v1/leaderboard", func(c *gin.Context) {
			AddSpanAttribute(c, "leaderboard.size", 6)
			c.JSON(http.StatusOK, gin.H{"message": "test"})
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "HTTP GET /api/v1/leaderboard", spans[0].Name())
		assert.Equal(t, codes.Ok, spans[0].Status().Code)

		status, ok := spanAttr(spans[0], "http.status_code")
		require.True(t, ok)
		assert.Equal(t, int64(200), status.AsInt64())
		route, ok := spanAttr(spans[0], "http.route")
		require.True(t, ok)
		assert.Equal(t, "/api/v1/leaderboard", route.AsString())
		size, ok := spanAttr(spans[0], "leaderboard.size")
		require.True(t, ok)
		assert.Equal(t, int64(6), size.AsInt64())
		_, ok = spanAttr(spans[0], "http.request_id")
		assert.True(t, ok)
	})

	t.Run("probe endpoints are not traced", func(t *testing.T) {
		recorder := withSpanRecorder(t)
		router := gin.New()
		router.Use(TelemetryMiddleware())
		for _, path := range []string{"/health", "/ready", "/live"} {
			router.GET(path, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		}

		for _, path := range []string{"/health", "/ready", "/live"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
		assert.Empty(t, recorder.Ended())
	})

	t.Run("server errors mark the span", func(t *testing.T) {
		recorder := withSpanRecorder(t)
		router := gin.New()
		router.Use(TelemetryMiddleware())
		router.GET("/error", func(c *gin.Context) {
			RecordError(c, assert.AnError, "handler failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/error", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.NotEmpty(t, spans[0].Events())
	})

	t.Run("client errors stay ok", func(t *testing.T) {
		recorder := withSpanRecorder(t)
		router := gin.New()
		router.Use(TelemetryMiddleware())
		router.GET("/bad", func(c *gin.Context) { c.JSON(http.StatusBadRequest, gin.H{"error": "bad"}) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status().Code)
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "upstream-id", w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &bytes.Buffer{}
	logger := logging.NewStandardLoggerWithWriter(buf, "info", "test")

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/docs", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "/docs", entry["path"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestRequestLogger_LogsRecordedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &bytes.Buffer{}
	logger := logging.NewStandardLoggerWithWriter(buf, "info", "test")

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/v1/fail", func(c *gin.Context) {
		RecordError(c, errors.New("store exploded"), "store failure")
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fail", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	router.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Contains(t, entry["errors"], "store exploded")
}

func TestRecordErrorWithoutSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	assert.NotPanics(t, func() {
		RecordError(c, assert.AnError, "no span")
		AddSpanAttribute(c, "key", struct{}{})
	})
}
