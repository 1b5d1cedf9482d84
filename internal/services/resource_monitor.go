package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/irfndi/claw-quants/internal/logging"
)

// ResourceSnapshot captures system load at a point in time
type ResourceSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUUsage      float64   `json:"cpu_usage"`
	MemoryUsage   float64   `json:"memory_usage"`
	Goroutines    int       `json:"goroutines"`
	ActiveStreams int64     `json:"active_streams"`
}

// ResourceMonitorConfig holds configuration for the resource monitor
type ResourceMonitorConfig struct {
	SampleInterval  time.Duration `yaml:"sample_interval" default:"30s"`
	MaxHistorySize  int           `yaml:"max_history_size" default:"20"`
	CPUThreshold    float64       `yaml:"cpu_threshold" default:"90.0"`
	MemoryThreshold float64       `yaml:"memory_threshold" default:"90.0"`
}

type usageSampler func(ctx context.Context) (cpuPercent, memPercent float64, err error)

// ResourceMonitor samples CPU and memory usage for the health endpoint and
// counts open live streams.
type ResourceMonitor struct {
	mu            sync.RWMutex
	config        ResourceMonitorConfig
	cpuCores      int
	memoryGB      float64
	current       ResourceSnapshot
	history       []ResourceSnapshot
	activeStreams atomic.Int64
	sample        usageSampler
	logger        *logging.StandardLogger

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewResourceMonitor creates a new resource monitor
func NewResourceMonitor(config ResourceMonitorConfig, logger *logging.StandardLogger) *ResourceMonitor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 30 * time.Second
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 20
	}
	if config.CPUThreshold == 0 {
		config.CPUThreshold = 90.0
	}
	if config.MemoryThreshold == 0 {
		config.MemoryThreshold = 90.0
	}
	if logger == nil {
		logger = logging.NewStandardLogger("info", "production")
	}

	rm := &ResourceMonitor{
		config:   config,
		cpuCores: runtime.NumCPU(),
		sample:   systemUsage,
		logger:   logger,
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		rm.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		rm.logger.WithComponent("resource-monitor").Warn("Could not get memory info", "error", err)
	}

	return rm
}

// systemUsage reads CPU usage since the previous call, so it never blocks.
func systemUsage(ctx context.Context) (float64, float64, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get memory usage: %w", err)
	}

	var cpuUsage float64
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}
	return cpuUsage, memInfo.UsedPercent, nil
}

// Sample reads current usage and appends it to the history.
func (rm *ResourceMonitor) Sample(ctx context.Context) (ResourceSnapshot, error) {
	cpuUsage, memUsage, err := rm.sample(ctx)
	if err != nil {
		return ResourceSnapshot{}, err
	}

	snapshot := ResourceSnapshot{
		Timestamp:     time.Now(),
		CPUUsage:      cpuUsage,
		MemoryUsage:   memUsage,
		Goroutines:    runtime.NumGoroutine(),
		ActiveStreams: rm.activeStreams.Load(),
	}

	rm.mu.Lock()
	rm.current = snapshot
	rm.history = append(rm.history, snapshot)
	if len(rm.history) > rm.config.MaxHistorySize {
		rm.history = rm.history[len(rm.history)-rm.config.MaxHistorySize:]
	}
	rm.mu.Unlock()

	return snapshot, nil
}

// Current returns the latest sample, taking one if none exists yet.
func (rm *ResourceMonitor) Current(ctx context.Context) (ResourceSnapshot, error) {
	rm.mu.RLock()
	current := rm.current
	rm.mu.RUnlock()

	if current.Timestamp.IsZero() {
		return rm.Sample(ctx)
	}
	current.ActiveStreams = rm.activeStreams.Load()
	return current, nil
}

// History returns up to limit of the most recent samples.
func (rm *ResourceMonitor) History(limit int) []ResourceSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if limit <= 0 || limit > len(rm.history) {
		limit = len(rm.history)
	}
	out := make([]ResourceSnapshot, limit)
	copy(out, rm.history[len(rm.history)-limit:])
	return out
}

// Overloaded reports whether a sample crosses the configured thresholds.
func (rm *ResourceMonitor) Overloaded(s ResourceSnapshot) bool {
	return s.CPUUsage > rm.config.CPUThreshold || s.MemoryUsage > rm.config.MemoryThreshold
}

// StreamOpened and StreamClosed track live stream subscribers.
func (rm *ResourceMonitor) StreamOpened() { rm.activeStreams.Add(1) }

func (rm *ResourceMonitor) StreamClosed() { rm.activeStreams.Add(-1) }

// ActiveStreams returns the number of open live streams.
func (rm *ResourceMonitor) ActiveStreams() int64 {
	return rm.activeStreams.Load()
}

// GetSystemInfo returns current system information
func (rm *ResourceMonitor) GetSystemInfo() map[string]interface{} {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return map[string]interface{}{
		"cpu_cores":      rm.cpuCores,
		"memory_gb":      rm.memoryGB,
		"current_cpu":    rm.current.CPUUsage,
		"current_memory": rm.current.MemoryUsage,
		"goroutines":     runtime.NumGoroutine(),
		"active_streams": rm.activeStreams.Load(),
	}
}

// Start samples periodically until ctx is cancelled or Stop is called.
func (rm *ResourceMonitor) Start(ctx context.Context) {
	rm.mu.Lock()
	if rm.done != nil {
		rm.mu.Unlock()
		return
	}
	ctx, rm.cancel = context.WithCancel(ctx)
	rm.done = make(chan struct{})
	done := rm.done
	rm.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(rm.config.SampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := rm.Sample(ctx); err != nil {
					rm.logger.WithComponent("resource-monitor").Warn("Resource sample failed", "error", err)
					continue
				}
				rm.logger.LogResourceStats("resource-monitor", rm.GetSystemInfo())
			}
		}
	}()
}

// Stop halts periodic sampling.
func (rm *ResourceMonitor) Stop() {
	rm.stopOnce.Do(func() {
		rm.mu.RLock()
		cancel, done := rm.cancel, rm.done
		rm.mu.RUnlock()
		if cancel == nil {
			return
		}
		cancel()
		<-done
	})
}
