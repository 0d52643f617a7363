package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

// Custom counters written to the API collector. Dispatch itself is counted
// by the orchestrator; these describe the HTTP surface only.
const (
	counterRequestPrefix = "http_requests_"
	counterStatusPrefix  = "http_status_"
	counterLatencyMs     = "http_latency_ms"
	counterAsyncEmits    = "http_events_async"
)

// routeNames maps API paths to their counter suffix. Anything else is "other".
var routeNames = map[string]string{
	"/api/v1/events":              "events",
	"/api/v1/delivery-logs":       "delivery_logs",
	"/api/v1/delivery-logs/stats": "delivery_stats",
	"/api/v1/pool-values":         "pool_values",
}

// untracked paths would otherwise count their own polling.
var untracked = map[string]bool{
	"/health":                  true,
	"/api/v1/services/metrics": true,
}

func routeName(path string) string {
	if name, ok := routeNames[path]; ok {
		return name
	}
	return "other"
}

// corsMiddleware lets browser dashboards call the API. Preflights are
// answered directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the first status code a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// metricsMiddleware counts requests per route and per status class, sums
// latency and counts events handed to the async intake.
func metricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if collector == nil || untracked[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)
			status := rec.code()

			route := routeName(r.URL.Path)
			collector.IncrementCustom(counterRequestPrefix + route)
			collector.IncrementCustom(fmt.Sprintf("%s%dxx", counterStatusPrefix, status/100))
			collector.AddCustom(counterLatencyMs, uint64(elapsed.Milliseconds()))
			if route == "events" && status == http.StatusAccepted {
				collector.IncrementCustom(counterAsyncEmits)
			}

			slog.Debug("HTTP request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}
