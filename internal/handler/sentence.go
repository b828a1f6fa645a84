package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"redline/internal/domain/models"
	"redline/internal/domain/services"
	"redline/internal/httputil"
)

// SentenceHandler handles per-sentence HTTP requests: the revision state
// machine, metadata mutations, and the edit lock.
type SentenceHandler struct {
	sentences services.SentenceService
	locks     services.LockService
	logger    *slog.Logger
}

// NewSentenceHandler creates a new sentence handler
func NewSentenceHandler(sentences services.SentenceService, locks services.LockService, logger *slog.Logger) *SentenceHandler {
	return &SentenceHandler{
		sentences: sentences,
		locks:     locks,
		logger:    logger,
	}
}

// slot extracts the document id and sentence index from the request path.
func slot(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return "", 0, false
	}
	index, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil || index < 0 {
		httputil.RespondError(w, http.StatusBadRequest, "Sentence index must be a non-negative integer")
		return "", 0, false
	}
	return id, index, true
}

// Get returns the current revision at the slot
// GET /api/documents/{id}/sentences/{idx}
func (h *SentenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	rev, err := h.sentences.Get(r.Context(), id, index)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rev)
}

// History walks the revision chain newest-first
// GET /api/documents/{id}/sentences/{idx}/history
func (h *SentenceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	revs, err := h.sentences.History(r.Context(), id, index)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, revs)
}

// editSentenceRequest distinguishes an absent text field from an explicit
// empty string; editing a sentence down to "" is legal, dropping the field
// is not.
type editSentenceRequest struct {
	Text        httputil.OptionalString `json:"text"`
	Annotations []models.Annotation     `json:"annotations,omitempty"`
	Reanalyze   bool                    `json:"reanalyze,omitempty"`
}

// Edit appends a new revision with the given text
// POST /api/documents/{id}/sentences/{idx}/edit
func (h *SentenceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	var req editSentenceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Text.Present || req.Text.Value == nil {
		httputil.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	rev, err := h.sentences.Edit(r.Context(), id, index, &services.EditRequest{
		Editor:      httputil.GetUserID(r),
		Text:        *req.Text.Value,
		Annotations: req.Annotations,
		Reanalyze:   req.Reanalyze,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rev)
}

func (h *SentenceHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error),
) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	rev, err := fn(r.Context(), id, index, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rev)
}

// Accept appends an accepted revision
// POST /api/documents/{id}/sentences/{idx}/accept
func (h *SentenceHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Accept)
}

// Reject marks the current revision rejected and reverts to the latest
// non-rejected ancestor
// POST /api/documents/{id}/sentences/{idx}/reject
func (h *SentenceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Reject)
}

// Undo reverts exactly one revision step
// POST /api/documents/{id}/sentences/{idx}/undo
func (h *SentenceHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Undo)
}

// Delete appends a deleted revision
// POST /api/documents/{id}/sentences/{idx}/delete
func (h *SentenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Delete)
}

// Like records the caller's like vote
// POST /api/documents/{id}/sentences/{idx}/like
func (h *SentenceHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Like)
}

// Dislike records the caller's dislike vote
// POST /api/documents/{id}/sentences/{idx}/dislike
func (h *SentenceHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sentences.Dislike)
}

// Unlike removes the caller's like vote
// DELETE /api/documents/{id}/sentences/{idx}/like
func (h *SentenceHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}
	if err := h.sentences.RemoveLike(r.Context(), id, index, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Undislike removes the caller's dislike vote
// DELETE /api/documents/{id}/sentences/{idx}/dislike
func (h *SentenceHandler) Undislike(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}
	if err := h.sentences.RemoveDislike(r.Context(), id, index, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTag attaches an annotation to the current revision
// POST /api/documents/{id}/sentences/{idx}/tags
func (h *SentenceHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	var ann models.Annotation
	if err := httputil.ParseJSON(w, r, &ann); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ann.User = httputil.GetUserID(r)

	rev, err := h.sentences.AddTag(r.Context(), id, index, ann)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rev)
}

// RemoveTag removes the annotation matching (label, sublabel)
// DELETE /api/documents/{id}/sentences/{idx}/tags?label=...&sublabel=...
func (h *SentenceHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		httputil.RespondError(w, http.StatusBadRequest, "label query parameter is required")
		return
	}
	sublabel := r.URL.Query().Get("sublabel")

	removed, err := h.sentences.RemoveTag(r.Context(), id, index, label, sublabel)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, removed)
}

// AddComment adds a comment to the current revision
// POST /api/documents/{id}/sentences/{idx}/comments
func (h *SentenceHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	var req services.CommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Author = httputil.GetUserID(r)

	comment, err := h.sentences.AddComment(r.Context(), id, index, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// RemoveComment removes a comment by uuid
// DELETE /api/documents/{id}/sentences/{idx}/comments/{uuid}
func (h *SentenceHandler) RemoveComment(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}
	commentUUID := r.PathValue("uuid")
	if commentUUID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Comment UUID is required")
		return
	}

	if err := h.sentences.RemoveComment(r.Context(), id, index, commentUUID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// acquireLockRequest carries an optional lifetime override in seconds.
type acquireLockRequest struct {
	LifetimeSecs int `json:"lifetime_secs,omitempty"`
}

// AcquireLock takes the sentence edit lock for the caller
// POST /api/documents/{id}/sentences/{idx}/lock
func (h *SentenceHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	var req acquireLockRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.LifetimeSecs < 0 {
		httputil.RespondError(w, http.StatusBadRequest, "lifetime_secs cannot be negative")
		return
	}

	lock, err := h.locks.Acquire(r.Context(), id, index, httputil.GetUserID(r),
		time.Duration(req.LifetimeSecs)*time.Second)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, lock)
}

// ReleaseLock drops the caller's sentence edit lock
// DELETE /api/documents/{id}/sentences/{idx}/lock
func (h *SentenceHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	if err := h.locks.Release(r.Context(), id, index, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockStatus reports the current lock holder, if any
// GET /api/documents/{id}/sentences/{idx}/lock
func (h *SentenceHandler) LockStatus(w http.ResponseWriter, r *http.Request) {
	id, index, ok := slot(w, r)
	if !ok {
		return
	}

	lock, err := h.locks.Status(r.Context(), id, index)
	if err != nil {
		handleError(w, err)
		return
	}
	if lock == nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]bool{"locked": false})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, lock)
}
