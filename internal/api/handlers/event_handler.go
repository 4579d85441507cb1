package handlers

import (
	"encoding/json"
	"net/http"

	"hookline/internal/engine/webhooks"
	"hookline/internal/pkg/errors"
	"hookline/internal/workers"
)

// EventHandler is the ingest point for the platform's domain mutation
// handlers. It enqueues fan-out and returns immediately: the triggering
// action never waits on webhook delivery.
type EventHandler struct {
	queue *workers.DispatchQueue
}

func NewEventHandler(queue *workers.DispatchQueue) *EventHandler {
	return &EventHandler{queue: queue}
}

type ingestEventRequest struct {
	WorkspaceID string      `json:"workspace_id"`
	EventType   string      `json:"event_type"`
	Data        interface{} `json:"data"`
}

func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.WorkspaceID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "workspace_id is required", nil)
		return
	}
	if !webhooks.IsValidEvent(req.EventType) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown event type", []string{req.EventType})
		return
	}

	accepted := h.queue.Enqueue(workers.Event{
		WorkspaceID: req.WorkspaceID,
		EventType:   req.EventType,
		Data:        req.Data,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]bool{"accepted": accepted})
}
