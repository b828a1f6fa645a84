package repositories

import (
	"context"

	"redline/internal/domain/models"
)

// BatchRepository defines data access operations for upload batches.
type BatchRepository interface {
	// Create persists a new batch and fills in its generated id.
	Create(ctx context.Context, batch *models.Batch) error

	// GetByID retrieves a batch by id.
	GetByID(ctx context.Context, id string) (*models.Batch, error)

	// Update persists membership lists and the pending latch.
	Update(ctx context.Context, batch *models.Batch) error

	// Delete removes an emptied batch.
	Delete(ctx context.Context, id string) error
}
