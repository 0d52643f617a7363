package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

func TestHandlers_EmitEvent(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		body       string
		publisher  *mockPublisher
		wantStatus int
		wantEmit   bool
	}{
		{
			name:       "synchronous emit",
			method:     http.MethodPost,
			url:        "/api/v1/events",
			body:       `{"event_name":"OrderPaid","actor":{"phone":"0901234567"},"payload":{"amount":150000}}`,
			wantStatus: http.StatusOK,
			wantEmit:   true,
		},
		{
			name:       "asynchronous emit",
			method:     http.MethodPost,
			url:        "/api/v1/events?async=true",
			body:       `{"event_name":"OrderPaid","payload":{"amount":1}}`,
			publisher:  &mockPublisher{},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "async without publisher",
			method:     http.MethodPost,
			url:        "/api/v1/events?async=true",
			body:       `{"event_name":"OrderPaid"}`,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "publish failure",
			method:     http.MethodPost,
			url:        "/api/v1/events?async=true",
			body:       `{"event_name":"OrderPaid"}`,
			publisher:  &mockPublisher{err: errors.New("broker down")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "missing event name",
			method:     http.MethodPost,
			url:        "/api/v1/events",
			body:       `{"payload":{}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid body",
			method:     http.MethodPost,
			url:        "/api/v1/events",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			url:        "/api/v1/events",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := &mockEmitter{result: 2}
			var opts []Option
			if tt.publisher != nil {
				opts = append(opts, WithPublisher(tt.publisher))
			}
			h := NewHandlers(emitter, &mockRepository{}, opts...)

			req := httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.EmitEvent(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("EmitEvent() status = %v, want %v (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if (emitter.name != "") != tt.wantEmit {
				t.Errorf("emitter called = %v, want %v", emitter.name != "", tt.wantEmit)
			}
			if !tt.wantEmit || w.Code != http.StatusOK {
				return
			}

			var resp EmitEventResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Dispatched != 2 || resp.EventName != "OrderPaid" || resp.EventID == "" {
				t.Errorf("EmitEvent() response = %+v", resp)
			}
			if emitter.actor.Phone != "0901234567" {
				t.Errorf("actor = %+v", emitter.actor)
			}
		})
	}
}

func TestHandlers_GetDeliveryLog(t *testing.T) {
	repo := &mockRepository{logs: map[string]*domain.DeliveryLogEntry{
		"log-1": {ID: "log-1", Type: "aggregator_sms", Success: true},
	}}
	h := NewHandlers(&mockEmitter{}, repo)

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"found", "/api/v1/delivery-logs?id=log-1", http.StatusOK},
		{"not found", "/api/v1/delivery-logs?id=log-2", http.StatusNotFound},
		{"missing id", "/api/v1/delivery-logs", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.GetDeliveryLog(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("GetDeliveryLog() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlers_ListDeliveryLogs(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		listErr    error
		wantStatus int
		check      func(t *testing.T, f database.DeliveryLogFilter)
	}{
		{
			name:       "all filters",
			url:        "/api/v1/delivery-logs?type=aggregator_sms&rule_id=r1&recipient=%2B84901234567&success=false&limit=20&offset=40",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f database.DeliveryLogFilter) {
				if f.Type != "aggregator_sms" || f.RuleID != "r1" || f.Recipient != "+84901234567" {
					t.Errorf("filter = %+v", f)
				}
				if f.Success == nil || *f.Success {
					t.Errorf("filter.Success = %v, want false", f.Success)
				}
				if f.Limit != 20 || f.Offset != 40 {
					t.Errorf("filter paging = %d/%d, want 20/40", f.Limit, f.Offset)
				}
			},
		},
		{
			name:       "no filters",
			url:        "/api/v1/delivery-logs",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f database.DeliveryLogFilter) {
				if f.Success != nil || f.Limit != 0 {
					t.Errorf("filter = %+v, want zero value", f)
				}
			},
		},
		{"unknown type", "/api/v1/delivery-logs?type=email", nil, http.StatusBadRequest, nil},
		{"bad success", "/api/v1/delivery-logs?success=maybe", nil, http.StatusBadRequest, nil},
		{"negative limit", "/api/v1/delivery-logs?limit=-1", nil, http.StatusBadRequest, nil},
		{"bad offset", "/api/v1/delivery-logs?offset=x", nil, http.StatusBadRequest, nil},
		{"database error", "/api/v1/delivery-logs", errors.New("db down"), http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{listErr: tt.listErr}
			h := NewHandlers(&mockEmitter{}, repo)

			w := httptest.NewRecorder()
			h.ListDeliveryLogs(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("ListDeliveryLogs() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, repo.lastFilter)
			}
		})
	}
}

func TestHandlers_GetDeliveryStats(t *testing.T) {
	h := NewHandlers(&mockEmitter{}, &mockRepository{stats: &database.DeliveryStats{Total: 3}})
	w := httptest.NewRecorder()
	h.GetDeliveryStats(w, httptest.NewRequest(http.MethodGet, "/api/v1/delivery-logs/stats", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":3`) {
		t.Errorf("GetDeliveryStats() = %v %s", w.Code, w.Body.String())
	}

	h = NewHandlers(&mockEmitter{}, &mockRepository{})
	w = httptest.NewRecorder()
	h.GetDeliveryStats(w, httptest.NewRequest(http.MethodGet, "/api/v1/delivery-logs/stats", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("GetDeliveryStats() status = %v, want 500", w.Code)
	}
}

func TestHandlers_AddPoolValue(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		addErr     error
		wantStatus int
	}{
		{"created", `{"code":"VOUCHER","key":"SPRING","value":"SPR-001"}`, nil, http.StatusCreated},
		{"missing value", `{"code":"VOUCHER","key":"SPRING"}`, nil, http.StatusBadRequest},
		{"invalid body", `nope`, nil, http.StatusBadRequest},
		{"database error", `{"code":"VOUCHER","key":"SPRING","value":"SPR-001"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockEmitter{}, &mockRepository{nextID: "7", addErr: tt.addErr})
			w := httptest.NewRecorder()
			h.AddPoolValue(w, httptest.NewRequest(http.MethodPost, "/api/v1/pool-values", strings.NewReader(tt.body)))
			if w.Code != tt.wantStatus {
				t.Fatalf("AddPoolValue() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusCreated && !strings.Contains(w.Body.String(), `"id":"7"`) {
				t.Errorf("AddPoolValue() body = %s", w.Body.String())
			}
		})
	}
}

func TestHandlers_GetServiceMetrics(t *testing.T) {
	reader := &mockMetricsReader{snaps: map[string]*metrics.Snapshot{
		metrics.ServiceAPI: {ServiceName: metrics.ServiceAPI, Status: "healthy", EventsReceived: 4},
	}}
	h := NewHandlers(&mockEmitter{}, &mockRepository{}, WithMetricsReader(reader))

	tests := []struct {
		name     string
		url      string
		contains string
	}{
		{"all services", "/api/v1/services/metrics", `"known_services"`},
		{"one service", "/api/v1/services/metrics?service=" + metrics.ServiceAPI, `"events_received":4`},
		{"offline service", "/api/v1/services/metrics?service=" + metrics.ServiceWorker, `"status":"offline"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.GetServiceMetrics(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("GetServiceMetrics() = %v %s, want body containing %s", w.Code, w.Body.String(), tt.contains)
			}
		})
	}

	w := httptest.NewRecorder()
	NewHandlers(&mockEmitter{}, &mockRepository{}).GetServiceMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/services/metrics", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("GetServiceMetrics() without reader status = %v, want 503", w.Code)
	}
}
