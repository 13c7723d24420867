package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness for load balancers and local smoke checks.
type HealthHandler struct {
	Version string
	Started time.Time
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type healthResp struct {
		Status        string  `json:"status"`
		Version       string  `json:"version"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}

	writeJSON(w, http.StatusOK, healthResp{
		Status:        "ok",
		Version:       h.Version,
		UptimeSeconds: time.Since(h.Started).Seconds(),
	})
}
