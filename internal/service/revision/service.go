// Package revision implements the sentence revision engine: the append-only
// revision chain, the accept/reject/undo state machine, in-place metadata
// mutation, and the advisory edit lock.
package revision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/repositories"
	"redline/internal/domain/services"
)

// sentenceService implements the SentenceService interface
type sentenceService struct {
	revisions     repositories.RevisionRepository
	documents     services.DocumentService
	txManager     repositories.TransactionManager
	notifier      services.Notifier
	strictLocking bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewSentenceService creates a new sentence service. With strictLocking the
// sentence lock becomes a hard gate: versioning mutations run under the same
// row lock as lock operations and fail against a foreign unexpired lock.
// Without it (the default) the lock is advisory and concurrent content edits
// resolve last-write-wins.
func NewSentenceService(
	revisions repositories.RevisionRepository,
	documents services.DocumentService,
	txManager repositories.TransactionManager,
	notifier services.Notifier,
	strictLocking bool,
	logger *slog.Logger,
) services.SentenceService {
	return &sentenceService{
		revisions:     revisions,
		documents:     documents,
		txManager:     txManager,
		notifier:      notifier,
		strictLocking: strictLocking,
		logger:        logger,
		now:           time.Now,
	}
}

// resolve maps (document, slot index) to the current revision. Out-of-range
// indices and dangling slot pointers are not-found, never panics.
func (s *sentenceService) resolve(ctx context.Context, documentID string, index int) (*models.Document, *models.Revision, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(doc.Sentences) {
		return nil, nil, fmt.Errorf("sentence %d of document %s: %w", index, documentID, domain.ErrNotFound)
	}
	rev, err := s.revisions.GetByID(ctx, doc.Sentences[index])
	if err != nil {
		return nil, nil, err
	}
	return doc, rev, nil
}

// Get resolves the current revision at the given slot. Reading lock state
// lazily clears an expired lock, so Get may write.
func (s *sentenceService) Get(ctx context.Context, documentID string, index int) (*models.Revision, error) {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}
	if _, cleared := rev.IsLocked(s.now()); cleared {
		if err := s.revisions.Update(ctx, rev); err != nil {
			s.logger.Warn("failed to persist expired lock clear",
				"revision_id", rev.ID,
				"error", err,
			)
		}
	}
	return rev, nil
}

// History walks the revision chain newest-first down to the first revision.
func (s *sentenceService) History(ctx context.Context, documentID string, index int) ([]*models.Revision, error) {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	history := []*models.Revision{rev}
	for rev.PrevRevisionID != nil {
		prev, err := s.revisions.GetByID(ctx, *rev.PrevRevisionID)
		if err != nil {
			return nil, fmt.Errorf("walk revision chain: %w", err)
		}
		history = append(history, prev)
		rev = prev
	}

	return history, nil
}

// withEditGuard runs a versioning mutation, under the sentence's row lock
// when strict locking is on. The guarded callback receives the re-read
// revision so lock checks and the mutation see the same row.
func (s *sentenceService) withEditGuard(ctx context.Context, current *models.Revision, editor string, fn func(ctx context.Context, current *models.Revision) error) error {
	if !s.strictLocking {
		return fn(ctx, current)
	}
	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		rev, err := s.revisions.GetForUpdate(txCtx, current.ID)
		if err != nil {
			return err
		}
		if locked, _ := rev.IsLocked(s.now()); locked && rev.Lock.Owner != editor {
			return &domain.LockConflictError{Owner: rev.Lock.Owner}
		}
		return fn(txCtx, rev)
	})
}

func (s *sentenceService) publish(ctx context.Context, kind models.ChangeKind, documentID string, index int, revisionID, user string) {
	s.notifier.Publish(ctx, models.ChangeEvent{
		Kind:       kind,
		DocumentID: documentID,
		Index:      index,
		RevisionID: revisionID,
		User:       user,
		At:         s.now(),
	})
}
