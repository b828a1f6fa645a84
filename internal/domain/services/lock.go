package services

import (
	"context"
	"time"

	"redline/internal/domain/models"
)

// LockService manages the time-boxed exclusive edit lock per sentence.
//
// The lock is advisory by default: it is surfaced to collaborators but does
// not gate content mutations unless strict locking is configured. Lock reads
// lazily clear an expired lock as a side effect; there is no background
// sweep.
type LockService interface {
	// Acquire takes the sentence lock for owner. Fails with a
	// *domain.LockConflictError when an unexpired lock is held by someone
	// else, and with domain.ErrLockBusy when the backing row is contended.
	// A zero lifetime means the configured default.
	Acquire(ctx context.Context, documentID string, index int, owner string, lifetime time.Duration) (*models.Lock, error)

	// Release drops the sentence lock. Fails with domain.ErrLockHeld when
	// no lock is held.
	Release(ctx context.Context, documentID string, index int, owner string) error

	// Status reports the current holder, or nil when unlocked. Clears an
	// expired lock as a side effect.
	Status(ctx context.Context, documentID string, index int) (*models.Lock, error)
}
