package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"redline/internal/handler/sse"
	"redline/internal/httputil"
	"redline/internal/notify"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams document change events over Server-Sent Events.
type EventsHandler struct {
	hub    *notify.Hub
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *notify.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger,
	}
}

// Stream handles GET /api/documents/{id}/events
// Streams change events for one document until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.hub.Subscribe(documentID)
	defer cancel()

	h.logger.Info("event stream opened", "document_id", documentID)

	heartbeat := sse.NewHeartbeat(keepAliveInterval)
	writer := sse.NewFeedWriter(w, flusher, documentID)
	stopped := heartbeat.Start(writer, h.logger)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("event stream closed by client", "document_id", documentID)
			return
		case <-stopped:
			h.logger.Info("event stream connection lost", "document_id", documentID)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode change event",
					"document_id", documentID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload); err != nil {
				h.logger.Info("event stream write failed", "document_id", documentID)
				return
			}
			flusher.Flush()
		}
	}
}
