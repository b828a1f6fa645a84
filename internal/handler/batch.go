package handler

import (
	"log/slog"
	"net/http"

	"redline/internal/domain/services"
	"redline/internal/httputil"
)

// BatchHandler handles upload-batch HTTP requests
type BatchHandler struct {
	batchService services.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batchService services.BatchService, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// Get returns the batch with its completion latch refreshed
// GET /api/batches/{id}
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	batch, err := h.batchService.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batch)
}

// PurgeInvalid hard-deletes failed ingestions
// DELETE /api/batches/{id}/invalid
func (h *BatchHandler) PurgeInvalid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	purged, err := h.batchService.PurgeInvalid(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

// Delete removes an emptied batch
// DELETE /api/batches/{id}
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Batch ID is required")
		return
	}

	if err := h.batchService.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
