package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/intake"
)

// maxEventBytes caps an emitted event body.
const maxEventBytes = 1 << 20

// EmitEventRequest represents a request to emit an event.
type EmitEventRequest struct {
	EventName string          `json:"event_name"`
	Actor     domain.Actor    `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
}

// EmitEventResponse reports the outcome of a synchronous emit.
type EmitEventResponse struct {
	EventID    string `json:"event_id"`
	EventName  string `json:"event_name"`
	Dispatched int    `json:"dispatched"`
	Queued     bool   `json:"queued"`
}

// EmitEvent runs an event through the trigger rules.
// POST /api/v1/events[?async=true]
//
// Synchronous emits return once the event's jobs are enqueued. With
// async=true the event is published to the intake topic instead.
func (h *Handlers) EmitEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EmitEventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event := intake.NewEvent(req.EventName, req.Actor, req.Payload)
	if err := event.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		if h.publisher == nil {
			http.Error(w, "Asynchronous intake is not configured", http.StatusServiceUnavailable)
			return
		}
		if err := h.publisher.Publish(r.Context(), event); err != nil {
			slog.Error("Failed to publish event", "event_name", event.EventName, "error", err)
			http.Error(w, "Failed to queue event", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, EmitEventResponse{
			EventID:   event.EventID,
			EventName: event.EventName,
			Queued:    true,
		})
		return
	}

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}
	n := h.emitter.EmitEvent(r.Context(), event.EventName, event.Actor, payload)

	writeJSON(w, http.StatusOK, EmitEventResponse{
		EventID:    event.EventID,
		EventName:  event.EventName,
		Dispatched: n,
	})
}
