package revision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redline/internal/config"
	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/repositories"
	"redline/internal/domain/services"
)

// lockService implements the LockService interface. Every lock mutation runs
// under a non-blocking row-exclusive read of the sentence's current revision
// so that two concurrent acquires serialize: one wins, the other observes the
// winner's lock and fails with its identity.
type lockService struct {
	revisions repositories.RevisionRepository
	documents services.DocumentService
	txManager repositories.TransactionManager
	notifier  services.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewLockService creates a new lock service
func NewLockService(
	revisions repositories.RevisionRepository,
	documents services.DocumentService,
	txManager repositories.TransactionManager,
	notifier services.Notifier,
	logger *slog.Logger,
) services.LockService {
	return &lockService{
		revisions: revisions,
		documents: documents,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// currentRevisionID resolves (document, index) to the current revision id.
func (s *lockService) currentRevisionID(ctx context.Context, documentID string, index int) (string, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(doc.Sentences) {
		return "", fmt.Errorf("sentence %d of document %s: %w", index, documentID, domain.ErrNotFound)
	}
	return doc.Sentences[index], nil
}

// Acquire takes the sentence lock for owner. An expired lock counts as
// absent, so acquiring right after expiry succeeds without an explicit
// release.
func (s *lockService) Acquire(ctx context.Context, documentID string, index int, owner string, lifetime time.Duration) (*models.Lock, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: lock owner is required", domain.ErrValidation)
	}
	if lifetime <= 0 {
		lifetime = config.DefaultLockLifetime
	}

	revID, err := s.currentRevisionID(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	var lock *models.Lock
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		rev, err := s.revisions.GetForUpdate(txCtx, revID)
		if err != nil {
			return err
		}
		if locked, _ := rev.IsLocked(s.now()); locked {
			return &domain.LockConflictError{Owner: rev.Lock.Owner}
		}
		rev.Lock = &models.Lock{
			Owner:     owner,
			Lifetime:  lifetime,
			CreatedAt: s.now(),
		}
		lock = rev.Lock
		return s.revisions.Update(txCtx, rev)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sentence locked",
		"document_id", documentID,
		"index", index,
		"owner", owner,
		"lifetime", lifetime,
	)
	s.notifier.Publish(ctx, models.ChangeEvent{
		Kind:       models.ChangeLocked,
		DocumentID: documentID,
		Index:      index,
		RevisionID: revID,
		User:       owner,
		At:         s.now(),
	})

	return lock, nil
}

// Release drops the sentence lock. Only the holder may release; a missing or
// expired lock fails with ErrLockHeld ("nothing to release").
func (s *lockService) Release(ctx context.Context, documentID string, index int, owner string) error {
	revID, err := s.currentRevisionID(ctx, documentID, index)
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		rev, err := s.revisions.GetForUpdate(txCtx, revID)
		if err != nil {
			return err
		}
		locked, cleared := rev.IsLocked(s.now())
		if !locked {
			if cleared {
				// Persist the lazy clear even though the release
				// itself fails.
				if err := s.revisions.Update(txCtx, rev); err != nil {
					return err
				}
			}
			return fmt.Errorf("release: %w", domain.ErrLockHeld)
		}
		if rev.Lock.Owner != owner {
			return &domain.LockConflictError{Owner: rev.Lock.Owner}
		}
		rev.Lock = nil
		return s.revisions.Update(txCtx, rev)
	})
	if err != nil {
		return err
	}

	s.logger.Info("sentence unlocked",
		"document_id", documentID,
		"index", index,
		"owner", owner,
	)
	s.notifier.Publish(ctx, models.ChangeEvent{
		Kind:       models.ChangeUnlocked,
		DocumentID: documentID,
		Index:      index,
		RevisionID: revID,
		User:       owner,
		At:         s.now(),
	})

	return nil
}

// Status reports the current holder, or nil when unlocked. An expired lock
// is cleared and persisted as a side effect of being observed.
func (s *lockService) Status(ctx context.Context, documentID string, index int) (*models.Lock, error) {
	revID, err := s.currentRevisionID(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	rev, err := s.revisions.GetByID(ctx, revID)
	if err != nil {
		return nil, err
	}

	locked, cleared := rev.IsLocked(s.now())
	if cleared {
		if err := s.revisions.Update(ctx, rev); err != nil {
			s.logger.Warn("failed to persist expired lock clear",
				"revision_id", rev.ID,
				"error", err,
			)
		}
	}
	if !locked {
		return nil, nil
	}
	return rev.Lock, nil
}
