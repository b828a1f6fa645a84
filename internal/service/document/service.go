// Package document implements the document aggregate service: ingestion of
// pre-split sentences, slot maintenance, the two-tier analysis cache, and
// the derived digest.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"redline/internal/config"
	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/repositories"
	"redline/internal/domain/services"
)

// Dispatcher schedules fire-and-forget background jobs.
type Dispatcher interface {
	Dispatch(name string, fn func(ctx context.Context) error)
}

// DigestCache caches derived digests with a TTL. A nil cache disables
// caching; every digest is then derived on demand.
type DigestCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, key string) error
}

// documentService implements the DocumentService interface
type documentService struct {
	documents  repositories.DocumentRepository
	revisions  repositories.RevisionRepository
	batches    repositories.BatchRepository
	analyzer   services.Analyzer
	notifier   services.Notifier
	dispatcher Dispatcher
	digests    DigestCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewDocumentService creates a new document service. digests may be nil.
func NewDocumentService(
	documents repositories.DocumentRepository,
	revisions repositories.RevisionRepository,
	batches repositories.BatchRepository,
	analyzer services.Analyzer,
	notifier services.Notifier,
	dispatcher Dispatcher,
	digests DigestCache,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		documents:  documents,
		revisions:  revisions,
		batches:    batches,
		analyzer:   analyzer,
		notifier:   notifier,
		dispatcher: dispatcher,
		digests:    digests,
		logger:     logger,
		now:        time.Now,
	}
}

func validateIngest(req *services.IngestRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&req.Sentences, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	n := len(req.Sentences)
	for name, l := range map[string]int{
		"formatting": len(req.Formatting),
		"styles":     len(req.Styles),
		"newlines":   len(req.Newlines),
		"comments":   len(req.Comments),
	} {
		if l != 0 && l != n {
			return fmt.Errorf("%w: %s has %d entries for %d sentences", domain.ErrValidation, name, l, n)
		}
	}
	for i, text := range req.Sentences {
		if len(text) > config.MaxSentenceLength {
			return fmt.Errorf("%w: sentence %d exceeds %d characters", domain.ErrValidation, i, config.MaxSentenceLength)
		}
	}
	return nil
}

// Ingest creates the document, one accepted first revision per sentence, and
// attaches it to a batch. When revision creation fails partway the document
// is recorded as an invalid batch member instead of being half-born.
func (s *documentService) Ingest(ctx context.Context, req *services.IngestRequest) (*models.Document, error) {
	if err := validateIngest(req); err != nil {
		return nil, err
	}

	batch, err := s.resolveBatch(ctx, req)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		BatchID: &batch.ID,
		Owner:   req.Owner,
		Title:   req.Title,
		Pending: true,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	batch.AddDocument(doc.ID)
	if err := s.batches.Update(ctx, batch); err != nil {
		return nil, err
	}

	if err := s.createFirstRevisions(ctx, doc, req); err != nil {
		s.logger.Error("ingestion failed, marking document invalid",
			"document_id", doc.ID,
			"batch_id", batch.ID,
			"error", err)
		batch.MarkInvalid(doc.ID)
		if berr := s.batches.Update(ctx, batch); berr != nil {
			s.logger.Error("failed to record invalid batch member",
				"document_id", doc.ID, "error", berr)
		}
		doc.Failed = true
		doc.Pending = false
		if derr := s.documents.Update(ctx, doc); derr != nil {
			s.logger.Error("failed to mark document failed",
				"document_id", doc.ID, "error", derr)
		}
		return nil, err
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID,
		"batch_id", batch.ID,
		"sentences", len(doc.Sentences))

	docID := doc.ID
	s.dispatcher.Dispatch("initial-analysis:"+docID, func(jobCtx context.Context) error {
		return s.backgroundAnalysis(jobCtx, docID)
	})

	return doc, nil
}

func (s *documentService) resolveBatch(ctx context.Context, req *services.IngestRequest) (*models.Batch, error) {
	if req.BatchID != nil {
		return s.batches.GetByID(ctx, *req.BatchID)
	}
	batch := &models.Batch{
		Owner:   req.Owner,
		Name:    req.Title,
		Pending: true,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// createFirstRevisions populates one accepted revision per sentence slot.
// First revisions are accepted so an immediate edit-then-reject lands back
// on accepted original text.
func (s *documentService) createFirstRevisions(ctx context.Context, doc *models.Document, req *services.IngestRequest) error {
	doc.Sentences = make([]string, 0, len(req.Sentences))
	for i, text := range req.Sentences {
		rev := &models.Revision{
			UUID:       uuid.New().String(),
			Text:       text,
			Accepted:   true,
			ModifiedBy: req.Owner,
		}
		if len(req.Formatting) > 0 {
			rev.Formatting = req.Formatting[i]
		}
		if len(req.Styles) > 0 {
			rev.Style = req.Styles[i]
		}
		if len(req.Newlines) > 0 {
			rev.Newlines = req.Newlines[i]
		}
		if len(req.Comments) > 0 {
			for _, c := range req.Comments[i] {
				imported := c
				imported.IsImported = true
				if imported.UUID == "" {
					imported.UUID = uuid.New().String()
				}
				if imported.Timestamp.IsZero() {
					imported.Timestamp = s.now()
				}
				if !rev.AddComment(imported) {
					return fmt.Errorf("import comment on sentence %d: %w", i, domain.ErrCapacityExceeded)
				}
			}
		}
		if err := s.revisions.Create(ctx, rev); err != nil {
			return fmt.Errorf("create revision for sentence %d: %w", i, err)
		}
		doc.Sentences = append(doc.Sentences, rev.ID)
	}
	return nil
}

// Get retrieves a document without touching the analysis cache.
func (s *documentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// UpdateSentence swaps slots pointing at oldID to newID. Metadata-grade
// changes clear only the composite cache; content-grade changes mark the
// document dirty and schedule a full analysis pass.
func (s *documentService) UpdateSentence(ctx context.Context, documentID, oldID, newID string, reanalyze bool) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.ReplaceSentence(oldID, newID) == 0 {
		return fmt.Errorf("revision %s in document %s: %w", oldID, documentID, domain.ErrNotFound)
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return err
	}
	if reanalyze {
		return s.Reanalyze(ctx, documentID)
	}
	return s.InvalidateCache(ctx, documentID)
}

// InvalidateCache clears the composite cache and the derived digest. The
// stored doc-level analysis and per-revision annotations stay put.
func (s *documentService) InvalidateCache(ctx context.Context, id string) error {
	s.invalidateDigest(ctx, id)
	return s.documents.InvalidateCache(ctx, id)
}

// Reanalyze marks the document dirty and dispatches a background analysis
// pass. Safe to call repeatedly.
func (s *documentService) Reanalyze(ctx context.Context, id string) error {
	if err := s.documents.MarkDirty(ctx, id); err != nil {
		return err
	}
	s.invalidateDigest(ctx, id)
	s.dispatcher.Dispatch("reanalysis:"+id, func(jobCtx context.Context) error {
		return s.backgroundAnalysis(jobCtx, id)
	})
	return nil
}

// Trash soft-deletes the document and rechecks its batch latch: a trashed
// member counts as settled, so trashing the last pending member completes
// the batch.
func (s *documentService) Trash(ctx context.Context, id string) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documents.Trash(ctx, id); err != nil {
		return err
	}
	s.invalidateDigest(ctx, id)

	if doc.BatchID == nil {
		return nil
	}
	batch, err := s.batches.GetByID(ctx, *doc.BatchID)
	if err != nil {
		s.logger.Warn("failed to recheck batch after trash",
			"document_id", id, "batch_id", *doc.BatchID, "error", err)
		return nil
	}
	if !batch.Pending {
		return nil
	}
	pending, err := s.documents.CountPending(ctx, batch.DocumentIDs)
	if err != nil {
		s.logger.Warn("failed to count pending batch members",
			"batch_id", batch.ID, "error", err)
		return nil
	}
	if pending == 0 {
		batch.Pending = false
		if err := s.batches.Update(ctx, batch); err != nil {
			s.logger.Warn("failed to latch batch completion",
				"batch_id", batch.ID, "error", err)
		}
	}
	return nil
}

func (s *documentService) invalidateDigest(ctx context.Context, id string) {
	if s.digests == nil {
		return
	}
	if err := s.digests.Invalidate(ctx, digestKey(id)); err != nil {
		s.logger.Warn("failed to invalidate digest cache", "document_id", id, "error", err)
	}
}

func digestKey(id string) string {
	return "digest:" + id
}
