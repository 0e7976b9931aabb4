package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-proxy/internal/startup"
)

const statusHealthy = "healthy"

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	CacheSize         int    `json:"cacheSize"`
	CacheMaxSize      int    `json:"cacheMaxSize"`
	ActiveGenerations int    `json:"activeGenerations"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.gen.Stats()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            statusHealthy,
		Version:           startup.Version,
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		CacheSize:         stats.Size,
		CacheMaxSize:      stats.MaxSize,
		ActiveGenerations: stats.ActiveGenerations,
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	})
}

// LivenessCheck is a simple liveness probe (always returns 200 if the server
// is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	}
}

// GetVersion returns build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, startup.GetBuildInfo())
}
