package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// AddPoolValueRequest represents a request to add a consumable value.
type AddPoolValueRequest struct {
	Code  string `json:"code"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AddPoolValue adds one unused value to the consumable pool.
// POST /api/v1/pool-values
func (h *Handlers) AddPoolValue(w http.ResponseWriter, r *http.Request) {
	var req AddPoolValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.Key == "" || req.Value == "" {
		http.Error(w, "code, key and value are required", http.StatusBadRequest)
		return
	}

	id, err := h.db.AddConsumableValue(r.Context(), req.Code, req.Key, req.Value)
	if err != nil {
		slog.Error("Failed to add pool value", "code", req.Code, "key", req.Key, "error", err)
		http.Error(w, "Failed to add pool value", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
