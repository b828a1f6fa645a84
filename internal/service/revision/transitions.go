package revision

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"redline/internal/config"
	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/services"
)

// Edit appends a new revision with the given text. Editing to the identical
// text returns the current revision with no new history entry.
func (s *sentenceService) Edit(ctx context.Context, documentID string, index int, req *services.EditRequest) (*models.Revision, error) {
	if err := validateEditRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	_, current, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	var next *models.Revision
	var created bool
	err = s.withEditGuard(ctx, current, req.Editor, func(txCtx context.Context, current *models.Revision) error {
		next, created, err = s.newRevision(txCtx, req.Editor, current, revisionOptions{
			text:        &req.Text,
			annotations: req.Annotations,
			reanalyze:   req.Reanalyze,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// No-op edit: same text, nothing to record. Return the revision the
		// guard handed back, which under strict locking is the re-read inside
		// the transaction rather than the pre-transaction snapshot.
		return next, nil
	}

	if err := s.documents.UpdateSentence(ctx, documentID, current.ID, next.ID, req.Reanalyze); err != nil {
		return nil, err
	}
	if req.Reanalyze {
		// Analysis may have retagged the new revision through its own
		// write path; hand back what is actually stored.
		if refreshed, err := s.revisions.GetByID(ctx, next.ID); err == nil {
			next = refreshed
		}
	}

	s.logger.Info("sentence edited",
		"document_id", documentID,
		"index", index,
		"revision_id", next.ID,
		"editor", req.Editor,
		"reanalyze", req.Reanalyze,
	)
	s.publish(ctx, models.ChangeEdited, documentID, index, next.ID, req.Editor)

	return next, nil
}

// Accept appends a new revision with accepted=true.
func (s *sentenceService) Accept(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error) {
	_, current, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	var next *models.Revision
	err = s.withEditGuard(ctx, current, editor, func(txCtx context.Context, current *models.Revision) error {
		next, _, err = s.newRevision(txCtx, editor, current, revisionOptions{accepted: true})
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.documents.UpdateSentence(ctx, documentID, current.ID, next.ID, false); err != nil {
		return nil, err
	}

	s.logger.Info("sentence accepted",
		"document_id", documentID,
		"index", index,
		"revision_id", next.ID,
		"editor", editor,
	)
	s.publish(ctx, models.ChangeAccepted, documentID, index, next.ID, editor)

	return next, nil
}

// Reject marks the current revision rejected in place, the single exception
// to append-only history, then reverts the slot to the latest non-rejected
// ancestor. The search walks the chain skipping every already-rejected
// ancestor; the reverted clone links back to the rejected revision and
// carries the rejected revision's annotations and comments forward.
func (s *sentenceService) Reject(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error) {
	_, current, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	if current.PrevRevisionID == nil {
		s.logger.Error("reject on first revision",
			"document_id", documentID,
			"index", index,
			"revision_id", current.ID,
		)
		return current, fmt.Errorf("reject revision %s: %w", current.ID, domain.ErrInvalidTransition)
	}

	var reverted *models.Revision
	err = s.withEditGuard(ctx, current, editor, func(txCtx context.Context, current *models.Revision) error {
		fallback, err := s.latestUnrejectedAncestor(txCtx, current)
		if err != nil {
			return err
		}
		if fallback == nil {
			// Every ancestor is rejected. Should not occur in normal
			// operation; surface it rather than fabricating a revert.
			s.logger.Error("reject found no unrejected ancestor",
				"document_id", documentID,
				"index", index,
				"revision_id", current.ID,
			)
			reverted = current
			return fmt.Errorf("reject revision %s: %w", current.ID, domain.ErrInvalidTransition)
		}

		reverted = fallback.Clone()
		currentID := current.ID
		reverted.PrevRevisionID = &currentID
		reverted.ModifiedBy = editor
		reverted.CreatedAt = s.now()
		// Port back: discussion and tags belong to the sentence, not to
		// the revision being thrown away.
		reverted.Annotations = models.CloneAnnotations(current.Annotations)
		reverted.Comments = append([]models.Comment(nil), current.Comments...)
		reverted.Lock = current.Lock

		current.Rejected = true
		current.Lock = nil

		if err := s.revisions.Create(txCtx, reverted); err != nil {
			return err
		}
		return s.revisions.Update(txCtx, current)
	})
	if err != nil {
		return reverted, err
	}

	if err := s.documents.UpdateSentence(ctx, documentID, current.ID, reverted.ID, false); err != nil {
		return nil, err
	}

	s.logger.Info("sentence rejected",
		"document_id", documentID,
		"index", index,
		"rejected_revision_id", current.ID,
		"reverted_revision_id", reverted.ID,
		"editor", editor,
	)
	s.publish(ctx, models.ChangeRejected, documentID, index, reverted.ID, editor)

	return reverted, nil
}

// latestUnrejectedAncestor walks prev pointers from current, skipping
// rejected ancestors. Returns nil when the whole chain is rejected.
func (s *sentenceService) latestUnrejectedAncestor(ctx context.Context, current *models.Revision) (*models.Revision, error) {
	prevID := current.PrevRevisionID
	for prevID != nil {
		prev, err := s.revisions.GetByID(ctx, *prevID)
		if err != nil {
			return nil, fmt.Errorf("walk revision chain: %w", err)
		}
		if !prev.Rejected {
			return prev, nil
		}
		prevID = prev.PrevRevisionID
	}
	return nil, nil
}

// Undo reverts exactly one step back, regardless of the predecessor's
// rejection state. The asymmetry with Reject's skip-rejected walk is
// intentional and preserved.
func (s *sentenceService) Undo(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error) {
	_, current, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	if current.PrevRevisionID == nil {
		s.logger.Error("undo on first revision",
			"document_id", documentID,
			"index", index,
			"revision_id", current.ID,
		)
		return current, fmt.Errorf("undo revision %s: %w", current.ID, domain.ErrInvalidTransition)
	}

	var reverted *models.Revision
	err = s.withEditGuard(ctx, current, editor, func(txCtx context.Context, current *models.Revision) error {
		prev, err := s.revisions.GetByID(txCtx, *current.PrevRevisionID)
		if err != nil {
			return fmt.Errorf("walk revision chain: %w", err)
		}

		reverted = prev.Clone()
		currentID := current.ID
		reverted.PrevRevisionID = &currentID
		reverted.ModifiedBy = editor
		reverted.CreatedAt = s.now()
		reverted.Lock = current.Lock
		current.Lock = nil

		if err := s.revisions.Create(txCtx, reverted); err != nil {
			return err
		}
		return s.revisions.Update(txCtx, current)
	})
	if err != nil {
		return reverted, err
	}

	if err := s.documents.UpdateSentence(ctx, documentID, current.ID, reverted.ID, false); err != nil {
		return nil, err
	}

	s.logger.Info("sentence undone",
		"document_id", documentID,
		"index", index,
		"revision_id", reverted.ID,
		"editor", editor,
	)
	s.publish(ctx, models.ChangeUndone, documentID, index, reverted.ID, editor)

	return reverted, nil
}

// Delete appends a new revision with deleted=true. The sentence keeps its
// slot so history and undo remain available.
func (s *sentenceService) Delete(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error) {
	_, current, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	var next *models.Revision
	err = s.withEditGuard(ctx, current, editor, func(txCtx context.Context, current *models.Revision) error {
		next, _, err = s.newRevision(txCtx, editor, current, revisionOptions{deleted: true})
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.documents.UpdateSentence(ctx, documentID, current.ID, next.ID, false); err != nil {
		return nil, err
	}

	s.logger.Info("sentence deleted",
		"document_id", documentID,
		"index", index,
		"revision_id", next.ID,
		"editor", editor,
	)
	s.publish(ctx, models.ChangeDeleted, documentID, index, next.ID, editor)

	return next, nil
}

func validateEditRequest(req *services.EditRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Editor, validation.Required),
		validation.Field(&req.Text, validation.Length(0, config.MaxSentenceLength)),
	)
}
