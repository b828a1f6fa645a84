package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// HTTP layer without switch statements over concrete types.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrLockHeld means a sentence lock operation lost to an existing,
	// unexpired lock (acquire-when-held) or found nothing to release.
	ErrLockHeld = errors.New("sentence lock held")

	// ErrLockBusy means the backing revision row itself was contended and
	// the non-blocking row lock could not be taken. Distinct from
	// ErrLockHeld: the caller retries rather than reporting a holder.
	ErrLockBusy = errors.New("could not acquire row lock")

	// ErrCapacityExceeded means a bounded collection (comments) is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrDuplicateAnnotation means a (label, sublabel) pair already exists
	// on the revision for a type that does not allow duplicates.
	ErrDuplicateAnnotation = errors.New("annotation already present")

	// ErrInvalidTransition means reject/undo was attempted on a revision
	// with no predecessor. The revision is returned unchanged alongside
	// this error so callers can tell "reverted" from "nothing to revert".
	ErrInvalidTransition = errors.New("no predecessor revision")
)

// LockConflictError reports an acquire that lost to an unexpired lock.
// It carries the current holder so the UI can say who has the sentence.
type LockConflictError struct {
	Owner string
}

func (e *LockConflictError) Error() string {
	return "sentence is locked by " + e.Owner
}

func (e *LockConflictError) StatusCode() int { return http.StatusLocked }

// Is allows errors.Is() to match against ErrLockHeld
func (e *LockConflictError) Is(target error) bool {
	return target == ErrLockHeld
}

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, batch, annotation)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
