package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/irfndi/claw-quants/internal/services"
)

var startTime = time.Now()

// healthHistoryLimit caps the recent samples included in /health.
const healthHistoryLimit = 5

// StoreHealth is the part of the snapshot cache the probes need.
type StoreHealth interface {
	Backend() string
	HealthCheck(ctx context.Context) error
}

// SystemMonitor reports host load.
type SystemMonitor interface {
	Current(ctx context.Context) (services.ResourceSnapshot, error)
	Overloaded(s services.ResourceSnapshot) bool
	History(limit int) []services.ResourceSnapshot
}

type HealthHandler struct {
	store   StoreHealth
	monitor SystemMonitor
	version string
}

type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Services  map[string]string          `json:"services"`
	System    *services.ResourceSnapshot `json:"system,omitempty"`
	History   []services.ResourceSnapshot `json:"history,omitempty"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
}

func NewHealthHandler(store StoreHealth, monitor SystemMonitor, version string) *HealthHandler {
	return &HealthHandler{
		store:   store,
		monitor: monitor,
		version: version,
	}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string)

	// Check snapshot store
	if h.store != nil {
		if err := h.store.HealthCheck(r.Context()); err != nil {
			services["snapshot_store"] = "unhealthy: " + err.Error()
		} else {
			services["snapshot_store"] = "healthy"
		}
		services["snapshot_backend"] = h.store.Backend()
	} else {
		services["snapshot_store"] = "unhealthy: not configured"
	}

	response := HealthResponse{
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	}

	// Check host load
	if h.monitor != nil {
		if snapshot, err := h.monitor.Current(r.Context()); err != nil {
			services["system"] = "unknown: " + err.Error()
		} else {
			response.System = &snapshot
			if h.monitor.Overloaded(snapshot) {
				services["system"] = "overloaded"
			} else {
				services["system"] = "healthy"
			}
		}
		response.History = h.monitor.History(healthHistoryLimit)
	}

	// Determine overall status
	overallStatus := "healthy"
	if services["snapshot_store"] != "healthy" || services["system"] == "overloaded" {
		overallStatus = "degraded"
	}
	response.Status = overallStatus

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Readiness check for Kubernetes-style deployments
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string)
	w.Header().Set("Content-Type", "application/json")

	if h.store == nil || h.store.HealthCheck(r.Context()) != nil {
		services["snapshot_store"] = "not ready"
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"ready":    false,
			"services": services,
		}); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
		return
	}
	services["snapshot_store"] = "ready"

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":    true,
		"services": services,
	}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Liveness check for container restarts
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
