package handlers

import (
	"log/slog"
	"net/http"

	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

// ServiceMetricsResponse wraps service metrics with the known service list.
type ServiceMetricsResponse struct {
	Services      map[string]*metrics.Snapshot `json:"services"`
	KnownServices []string                     `json:"known_services"`
}

// GetServiceMetrics returns process metrics from Redis.
// GET /api/v1/services/metrics[?service=<name>]
func (h *Handlers) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.Error(w, "Metrics are not configured", http.StatusServiceUnavailable)
		return
	}

	if name := r.URL.Query().Get("service"); name != "" {
		snap, err := h.metrics.Get(r.Context(), name)
		if err != nil {
			slog.Warn("Failed to get service metrics", "service", name, "error", err)
			snap = &metrics.Snapshot{ServiceName: name, Status: "offline"}
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	writeJSON(w, http.StatusOK, ServiceMetricsResponse{
		Services:      h.metrics.All(r.Context()),
		KnownServices: metrics.ServiceNames,
	})
}
