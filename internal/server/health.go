package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a new HealthChecker. The server starts ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness only confirms the process is serving requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}
