package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/claw-quants/internal/logging"
)

func newTestMonitor(config ResourceMonitorConfig, cpuUsage, memUsage float64) *ResourceMonitor {
	rm := NewResourceMonitor(config, logging.NewStandardLoggerWithWriter(io.Discard, "error", "test"))
	rm.sample = func(context.Context) (float64, float64, error) {
		return cpuUsage, memUsage, nil
	}
	return rm
}

func TestNewResourceMonitor_WithDefaults(t *testing.T) {
	rm := NewResourceMonitor(ResourceMonitorConfig{}, nil)

	assert.Equal(t, 30*time.Second, rm.config.SampleInterval)
	assert.Equal(t, 20, rm.config.MaxHistorySize)
	assert.Equal(t, 90.0, rm.config.CPUThreshold)
	assert.Equal(t, 90.0, rm.config.MemoryThreshold)
	assert.Greater(t, rm.cpuCores, 0)
	assert.NotNil(t, rm.logger)
}

func TestResourceMonitor_SampleAndHistory(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{MaxHistorySize: 3}, 12.5, 40)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rm.Sample(ctx)
		require.NoError(t, err)
	}

	assert.Len(t, rm.History(0), 3)
	assert.Len(t, rm.History(2), 2)

	current, err := rm.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, current.CPUUsage)
	assert.Equal(t, 40.0, current.MemoryUsage)
	assert.Greater(t, current.Goroutines, 0)
}

func TestResourceMonitor_CurrentSamplesLazily(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{}, 1, 2)
	assert.Empty(t, rm.History(0))

	current, err := rm.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, current.Timestamp.IsZero())
	assert.Len(t, rm.History(0), 1)
}

func TestResourceMonitor_SampleError(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{}, 0, 0)
	rm.sample = func(context.Context) (float64, float64, error) {
		return 0, 0, errors.New("no procfs")
	}

	_, err := rm.Current(context.Background())
	assert.Error(t, err)
	assert.Empty(t, rm.History(0))
}

func TestResourceMonitor_Overloaded(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{CPUThreshold: 80, MemoryThreshold: 85}, 0, 0)

	assert.False(t, rm.Overloaded(ResourceSnapshot{CPUUsage: 50, MemoryUsage: 60}))
	assert.True(t, rm.Overloaded(ResourceSnapshot{CPUUsage: 81, MemoryUsage: 60}))
	assert.True(t, rm.Overloaded(ResourceSnapshot{CPUUsage: 10, MemoryUsage: 86}))
}

func TestResourceMonitor_ActiveStreams(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{}, 0, 0)

	rm.StreamOpened()
	rm.StreamOpened()
	rm.StreamClosed()
	assert.Equal(t, int64(1), rm.ActiveStreams())

	current, err := rm.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.ActiveStreams)
	assert.Equal(t, int64(1), rm.GetSystemInfo()["active_streams"])
}

func TestResourceMonitor_StartStop(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{SampleInterval: 5 * time.Millisecond}, 5, 5)

	rm.Start(context.Background())
	rm.Start(context.Background())

	assert.Eventually(t, func() bool {
		return len(rm.History(0)) >= 2
	}, time.Second, 5*time.Millisecond)

	rm.Stop()
	rm.Stop()
	count := len(rm.History(0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(rm.History(0)))
}

func TestResourceMonitor_StopWithoutStart(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{}, 0, 0)
	assert.NotPanics(t, rm.Stop)
}
