package services

import (
	"context"

	"redline/internal/domain/models"
)

// BatchService owns aggregate completion tracking for upload batches.
type BatchService interface {
	// Get retrieves the batch with its completion flag refreshed: while
	// pending, membership is live-checked and the batch latches to done
	// once no valid member is pending.
	Get(ctx context.Context, id string) (*models.Batch, error)

	// IsAnalyzed reports the one-way completion latch.
	IsAnalyzed(ctx context.Context, id string) (bool, error)

	// AddDocument attaches a document to the batch. Idempotent.
	AddDocument(ctx context.Context, batchID, documentID string) error

	// RemoveDocument detaches a document. Idempotent.
	RemoveDocument(ctx context.Context, batchID, documentID string) error

	// MarkInvalid records an ingestion failure for later cleanup.
	MarkInvalid(ctx context.Context, batchID, documentID string) error

	// PurgeInvalid hard-deletes every invalid member document and clears
	// the invalid list, leaving valid members untouched.
	PurgeInvalid(ctx context.Context, batchID string) (int, error)

	// Delete removes a batch once emptied of valid and invalid members.
	Delete(ctx context.Context, id string) error
}
