package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// GetDeliveryLog retrieves one delivery log entry.
// GET /api/v1/delivery-logs?id=<id>
func (h *Handlers) GetDeliveryLog(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	entry, err := h.db.GetDeliveryLog(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Delivery log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get delivery log", "id", id, "error", err)
		http.Error(w, "Failed to retrieve delivery log", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// ListDeliveryLogs lists delivery logs, newest first.
// GET /api/v1/delivery-logs?type=&rule_id=&recipient=&success=&limit=&offset=
func (h *Handlers) ListDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.DeliveryLogFilter{
		Type:      q.Get("type"),
		RuleID:    q.Get("rule_id"),
		Recipient: q.Get("recipient"),
	}

	if filter.Type != "" {
		if _, ok := domain.ParseChannelTag(filter.Type); !ok {
			http.Error(w, "type must be one of: chat_template, aggregator_sms, generic_http", http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("success"); s != "" {
		success, err := strconv.ParseBool(s)
		if err != nil {
			http.Error(w, "success must be true or false", http.StatusBadRequest)
			return
		}
		filter.Success = &success
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := h.db.ListDeliveryLogs(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list delivery logs", "error", err)
		http.Error(w, "Failed to list delivery logs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetDeliveryStats returns aggregated delivery outcomes.
// GET /api/v1/delivery-logs/stats
func (h *Handlers) GetDeliveryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetDeliveryStats(r.Context())
	if err != nil {
		slog.Error("Failed to get delivery stats", "error", err)
		http.Error(w, "Failed to retrieve delivery stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		http.Error(w, name+" must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
