package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/handlers"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/intake"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

type stubEmitter struct{}

func (stubEmitter) EmitEvent(context.Context, string, domain.Actor, any) int { return 1 }

type stubRepository struct{}

func (stubRepository) GetDeliveryLog(context.Context, string) (*domain.DeliveryLogEntry, error) {
	return &domain.DeliveryLogEntry{ID: "log-1"}, nil
}

func (stubRepository) ListDeliveryLogs(context.Context, database.DeliveryLogFilter) (*database.DeliveryLogListResult, error) {
	return &database.DeliveryLogListResult{}, nil
}

func (stubRepository) GetDeliveryStats(context.Context) (*database.DeliveryStats, error) {
	return &database.DeliveryStats{}, nil
}

func (stubRepository) AddConsumableValue(context.Context, string, string, string) (string, error) {
	return "1", nil
}

func newTestRouter(collector *metrics.Collector) *Router {
	return NewRouter(handlers.NewHandlers(stubEmitter{}, stubRepository{}), collector)
}

func TestNewRouter(t *testing.T) {
	r := newTestRouter(nil)
	if r.mux == nil || r.handlers == nil {
		t.Fatal("NewRouter() left fields unset")
	}
}

func TestRouter_CORS(t *testing.T) {
	handler := newTestRouter(nil).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("CORS OPTIONS request status = %v, want %v", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Max-Age") != "600" {
		t.Error("preflight should set Access-Control-Max-Age")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header Access-Control-Allow-Origin not set")
	}
}

func TestRouter_Routes(t *testing.T) {
	handler := newTestRouter(nil).Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"emit event", http.MethodPost, "/api/v1/events", `{"event_name":"OrderPaid"}`, http.StatusOK},
		{"emit wrong method", http.MethodPut, "/api/v1/events", "", http.StatusMethodNotAllowed},
		{"list logs", http.MethodGet, "/api/v1/delivery-logs", "", http.StatusOK},
		{"get log", http.MethodGet, "/api/v1/delivery-logs?id=log-1", "", http.StatusOK},
		{"logs wrong method", http.MethodPost, "/api/v1/delivery-logs", "", http.StatusMethodNotAllowed},
		{"stats", http.MethodGet, "/api/v1/delivery-logs/stats", "", http.StatusOK},
		{"add pool value", http.MethodPost, "/api/v1/pool-values", `{"code":"V","key":"K","value":"X"}`, http.StatusCreated},
		{"pool wrong method", http.MethodGet, "/api/v1/pool-values", "", http.StatusMethodNotAllowed},
		{"metrics without reader", http.MethodGet, "/api/v1/services/metrics", "", http.StatusServiceUnavailable},
		{"unknown path", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, *intake.Event) error { return nil }

func TestRouter_MetricsMiddleware(t *testing.T) {
	collector := metrics.NewCollector(metrics.ServiceAPI, nil)
	h := handlers.NewHandlers(stubEmitter{}, stubRepository{}, handlers.WithPublisher(stubPublisher{}))
	handler := NewRouter(h, collector).Handler()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/delivery-logs", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/delivery-logs/stats", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil),
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/services/metrics", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"event_name":"OrderPaid"}`)),
		httptest.NewRequest(http.MethodPost, "/api/v1/events?async=true", strings.NewReader(`{"event_name":"OrderPaid"}`)),
	}
	for _, req := range requests {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	tests := []struct {
		counter string
		want    uint64
	}{
		{"http_requests_delivery_logs", 1},
		{"http_requests_delivery_stats", 1},
		{"http_requests_other", 1},
		{"http_requests_events", 2},
		{"http_status_2xx", 4},
		{"http_status_4xx", 1},
		{"http_status_5xx", 0},
		{"http_events_async", 1},
	}
	for _, tt := range tests {
		if got := collector.Custom(tt.counter); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.counter, got, tt.want)
		}
	}
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if rec.code() != http.StatusOK {
		t.Errorf("code() before write = %d, want 200", rec.code())
	}
	rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusTeapot)
	if rec.code() != http.StatusOK {
		t.Errorf("code() = %d, want first status 200", rec.code())
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer("8080", handlers.NewHandlers(stubEmitter{}, stubRepository{}), nil)
	if srv.Addr != ":8080" || srv.Handler == nil {
		t.Errorf("NewServer() = %+v", srv)
	}
}
