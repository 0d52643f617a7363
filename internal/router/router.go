// Package router provides HTTP routing configuration for the trigger dispatcher API.
package router

import (
	"net/http"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/handlers"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux       *http.ServeMux
	handlers  *handlers.Handlers
	collector *metrics.Collector
}

// NewRouter creates a new router with all routes configured. A nil
// collector disables request metrics.
func NewRouter(h *handlers.Handlers, collector *metrics.Collector) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		handlers:  h,
		collector: collector,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/api/v1/events", r.handlers.EmitEvent)

	r.mux.HandleFunc("/api/v1/delivery-logs", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if req.URL.Query().Get("id") != "" {
			r.handlers.GetDeliveryLog(w, req)
		} else {
			r.handlers.ListDeliveryLogs(w, req)
		}
	})
	r.mux.HandleFunc("/api/v1/delivery-logs/stats", methodOnly(http.MethodGet, r.handlers.GetDeliveryStats))

	r.mux.HandleFunc("/api/v1/pool-values", methodOnly(http.MethodPost, r.handlers.AddPoolValue))

	r.mux.HandleFunc("/api/v1/services/metrics", methodOnly(http.MethodGet, r.handlers.GetServiceMetrics))

	// Health check endpoint
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// Handler returns the HTTP handler with CORS and metrics middleware applied.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(metricsMiddleware(r.collector)(r.mux))
}

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *handlers.Handlers, collector *metrics.Collector) *http.Server {
	router := NewRouter(h, collector)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
