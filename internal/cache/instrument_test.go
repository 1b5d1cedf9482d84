package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/telemetry"
	"github.com/irfndi/claw-quants/internal/testutil"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSnapshotCache_LogsCacheEvents(t *testing.T) {
	client, _ := testutil.NewMiniRedis(t)
	stores := map[string]interface {
		SnapshotCache
		SetEventLogger(*logging.StandardLogger)
	}{
		"redis":  NewRedisSnapshotCache(client, quietLogger()),
		"memory": NewInMemorySnapshotCache(quietLogger()),
	}

	for backend, store := range stores {
		t.Run(backend, func(t *testing.T) {
			buf := &bytes.Buffer{}
			store.SetEventLogger(logging.NewStandardLoggerWithWriter(buf, "debug", "test"))
			ctx := context.Background()

			_, found := store.Get(ctx, "card-1")
			require.False(t, found)
			require.NoError(t, store.Set(ctx, "card-1", []byte(`{"data":[]}`)))
			_, found = store.Get(ctx, "card-1")
			require.True(t, found)

			entries := decodeLines(t, buf)
			require.Len(t, entries, 3)
			for _, entry := range entries {
				assert.Equal(t, "cache", entry["event"])
				assert.Equal(t, "card-1", entry["key"])
			}
			assert.Equal(t, "get", entries[0]["operation"])
			assert.Equal(t, false, entries[0]["hit"])
			assert.Equal(t, "set", entries[1]["operation"])
			assert.Equal(t, "get", entries[2]["operation"])
			assert.Equal(t, true, entries[2]["hit"])
		})
	}
}

func TestSnapshotCache_WithoutEventLoggerIsSilent(t *testing.T) {
	store := NewInMemorySnapshotCache(quietLogger())
	assert.NotPanics(t, func() {
		_, _ = store.Get(context.Background(), "card-1")
		_ = store.Set(context.Background(), "card-1", []byte("x"))
	})
}

func TestSnapshotCache_ExportsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	provider, err := telemetry.InitTelemetryWithProvider(context.Background(), &telemetry.TelemetryConfig{
		Enabled:  true,
		Exporter: telemetry.ExporterStdout,
		Writer:   buf,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = telemetry.InitTelemetryWithProvider(context.Background(), &telemetry.TelemetryConfig{}, nil)
	})

	client, mr := testutil.NewMiniRedis(t)
	store := NewRedisSnapshotCache(client, quietLogger())
	require.NoError(t, store.Set(context.Background(), "card-2", []byte("payload")))
	mr.Close()
	_, found := store.Get(context.Background(), "card-2")
	assert.False(t, found)

	require.NoError(t, provider.Shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "snapshot.set")
	assert.Contains(t, out, "snapshot.get")
	assert.Contains(t, out, "card-2")
	assert.Contains(t, out, "cache.backend")
	assert.Contains(t, out, `"Code":"Error"`)
}
