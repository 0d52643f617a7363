// Package handlers provides HTTP handlers for the trigger dispatcher API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	emitter   EventEmitter
	db        Repository
	publisher EventPublisher
	metrics   MetricsReader
}

// Option is a functional option for configuring Handlers.
type Option func(*Handlers)

// WithPublisher enables asynchronous event intake.
func WithPublisher(p EventPublisher) Option {
	return func(h *Handlers) {
		h.publisher = p
	}
}

// WithMetricsReader enables the service metrics endpoint.
func WithMetricsReader(r MetricsReader) Option {
	return func(h *Handlers) {
		h.metrics = r
	}
}

// NewHandlers creates a new handlers instance.
func NewHandlers(emitter EventEmitter, db Repository, opts ...Option) *Handlers {
	h := &Handlers{
		emitter: emitter,
		db:      db,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
