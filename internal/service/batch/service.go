// Package batch implements upload-batch completion tracking: the one-way
// pending latch plus membership and invalid-member cleanup.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/repositories"
	"redline/internal/domain/services"
)

// batchService implements the BatchService interface
type batchService struct {
	batches   repositories.BatchRepository
	documents repositories.DocumentRepository
	revisions repositories.RevisionRepository
	logger    *slog.Logger
}

// NewBatchService creates a new batch service.
func NewBatchService(
	batches repositories.BatchRepository,
	documents repositories.DocumentRepository,
	revisions repositories.RevisionRepository,
	logger *slog.Logger,
) services.BatchService {
	return &batchService{
		batches:   batches,
		documents: documents,
		revisions: revisions,
		logger:    logger,
	}
}

// Get retrieves the batch with its completion latch refreshed. While pending,
// the valid members are live-checked; once none is pending the batch latches
// done and is never re-opened, whatever happens to members afterwards.
func (s *batchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !batch.Pending {
		return batch, nil
	}

	pending, err := s.documents.CountPending(ctx, batch.DocumentIDs)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		batch.Pending = false
		if err := s.batches.Update(ctx, batch); err != nil {
			return nil, err
		}
		s.logger.Info("batch analysis complete",
			"batch_id", batch.ID,
			"documents", len(batch.DocumentIDs),
			"invalid", len(batch.InvalidDocumentIDs))
	}
	return batch, nil
}

// IsAnalyzed reports the completion latch.
func (s *batchService) IsAnalyzed(ctx context.Context, id string) (bool, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return !batch.Pending, nil
}

// AddDocument attaches a document to the batch.
func (s *batchService) AddDocument(ctx context.Context, batchID, documentID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.AddDocument(documentID) {
		return nil
	}
	return s.batches.Update(ctx, batch)
}

// RemoveDocument detaches a document from the batch.
func (s *batchService) RemoveDocument(ctx context.Context, batchID, documentID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.RemoveDocument(documentID) {
		return nil
	}
	return s.batches.Update(ctx, batch)
}

// MarkInvalid records documentID as an ingestion failure.
func (s *batchService) MarkInvalid(ctx context.Context, batchID, documentID string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	batch.MarkInvalid(documentID)
	return s.batches.Update(ctx, batch)
}

// PurgeInvalid hard-deletes every invalid member document together with its
// revision chains and clears the invalid list. Valid members are untouched.
func (s *batchService) PurgeInvalid(ctx context.Context, batchID string) (int, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return 0, err
	}

	purged := 0
	var remaining []string
	for _, docID := range batch.InvalidDocumentIDs {
		if err := s.destroyDocument(ctx, docID); err != nil {
			s.logger.Error("failed to purge invalid document",
				"batch_id", batchID,
				"document_id", docID,
				"error", err)
			remaining = append(remaining, docID)
			continue
		}
		purged++
	}
	batch.InvalidDocumentIDs = remaining
	if err := s.batches.Update(ctx, batch); err != nil {
		return purged, err
	}
	return purged, nil
}

// destroyDocument removes a document row and the full revision chain of each
// of its sentences. A document that is already gone counts as destroyed.
func (s *batchService) destroyDocument(ctx context.Context, docID string) error {
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if len(doc.Sentences) > 0 {
		revs, err := s.revisions.GetByIDs(ctx, doc.Sentences)
		if err != nil {
			return err
		}
		uuids := make([]string, 0, len(revs))
		seen := make(map[string]bool, len(revs))
		for _, rev := range revs {
			if !seen[rev.UUID] {
				seen[rev.UUID] = true
				uuids = append(uuids, rev.UUID)
			}
		}
		if err := s.revisions.DeleteChains(ctx, uuids); err != nil {
			return err
		}
	}
	return s.documents.Delete(ctx, docID)
}

// Delete removes a batch once emptied of members.
func (s *batchService) Delete(ctx context.Context, id string) error {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !batch.Empty() {
		return fmt.Errorf("%w: batch %s still has members", domain.ErrConflict, id)
	}
	return s.batches.Delete(ctx, id)
}
