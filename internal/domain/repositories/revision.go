package repositories

import (
	"context"

	"redline/internal/domain/models"
)

// RevisionRepository defines data access operations for sentence revisions.
// Rows are only ever created (append-only chain) or updated in place for
// metadata, lock movement, and the reject flag.
type RevisionRepository interface {
	// Create persists a new revision and fills in its generated id.
	Create(ctx context.Context, rev *models.Revision) error

	// GetByID retrieves a revision by id.
	GetByID(ctx context.Context, id string) (*models.Revision, error)

	// GetByIDs retrieves several revisions at once, keyed by id. Missing
	// ids are simply absent from the map (dangling document slots are a
	// caller-level not-found, not a repository error).
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Revision, error)

	// Update persists every mutable column of an existing revision.
	Update(ctx context.Context, rev *models.Revision) error

	// GetForUpdate retrieves a revision under a row-exclusive, non-blocking
	// lock (FOR UPDATE NOWAIT). Must be called inside a transaction started
	// via TransactionManager; returns domain.ErrLockBusy when the row is
	// contended.
	GetForUpdate(ctx context.Context, id string) (*models.Revision, error)

	// DeleteChains removes every revision of the given logical sentences.
	// Used when a document is destroyed outright.
	DeleteChains(ctx context.Context, uuids []string) error
}
