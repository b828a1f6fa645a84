package repositories

import (
	"context"

	"redline/internal/domain/models"
)

// DocumentRepository defines data access operations for documents.
type DocumentRepository interface {
	// Create persists a new document and fills in its generated id.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a non-trashed document by id.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Update persists every mutable column of an existing document.
	Update(ctx context.Context, doc *models.Document) error

	// InvalidateCache clears the cached composite analysis. Cheap-tier
	// invalidation: sentence text is unchanged, only metadata moved.
	InvalidateCache(ctx context.Context, id string) error

	// MarkDirty flags the document for full reanalysis on next read and
	// clears the cached composite analysis.
	MarkDirty(ctx context.Context, id string) error

	// SetAnalysis stores the doc-level fields and cached composite view
	// after an analysis pass, clearing dirty and pending.
	SetAnalysis(ctx context.Context, doc *models.Document) error

	// Trash soft-deletes the document. It stays referenced by its batch.
	Trash(ctx context.Context, id string) error

	// Delete removes the document row outright (invalid-member purge).
	Delete(ctx context.Context, id string) error

	// CountPending returns how many of the given documents are still
	// pending analysis. Trashed members count as settled.
	CountPending(ctx context.Context, ids []string) (int, error)
}
