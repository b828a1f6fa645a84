package handler

import (
	"errors"
	"net/http"

	"redline/internal/domain"
	"redline/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var lockErr *domain.LockConflictError

	switch {
	case errors.As(err, &lockErr):
		// 423 with the holder so the UI can say who has the sentence
		httputil.RespondErrorWithExtras(w, lockErr.StatusCode(), lockErr.Error(), map[string]interface{}{
			"holder": lockErr.Owner,
		})
	case errors.Is(err, domain.ErrLockBusy):
		httputil.RespondError(w, http.StatusConflict, "sentence is being modified, retry")
	case errors.Is(err, domain.ErrInvalidTransition):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDuplicateAnnotation):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	default:
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
