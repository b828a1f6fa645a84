package revision

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"redline/internal/config"
	"redline/internal/domain"
	"redline/internal/domain/models"
	"redline/internal/domain/services"
)

// Metadata mutations: likes, tags, and comments change the current revision
// in place rather than versioning the sentence, and invalidate only the
// document's cheap composite cache.

// Like records user's like on the current revision, dropping any standing
// dislike by the same user.
func (s *sentenceService) Like(ctx context.Context, documentID string, index int, user string) (*models.Revision, error) {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	rev.Like(user)
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ChangeLiked, documentID, index, rev.ID, user)
	return rev, nil
}

// Dislike records user's dislike on the current revision, dropping any
// standing like by the same user.
func (s *sentenceService) Dislike(ctx context.Context, documentID string, index int, user string) (*models.Revision, error) {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	rev.Dislike(user)
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ChangeDisliked, documentID, index, rev.ID, user)
	return rev, nil
}

// RemoveLike removes user's like, failing with not-found when absent.
func (s *sentenceService) RemoveLike(ctx context.Context, documentID string, index int, user string) error {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return err
	}

	if !rev.RemoveLike(user) {
		return fmt.Errorf("like by %s: %w", user, domain.ErrNotFound)
	}
	return s.saveMetadata(ctx, documentID, rev)
}

// RemoveDislike removes user's dislike, failing with not-found when absent.
func (s *sentenceService) RemoveDislike(ctx context.Context, documentID string, index int, user string) error {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return err
	}

	if !rev.RemoveDislike(user) {
		return fmt.Errorf("dislike by %s: %w", user, domain.ErrNotFound)
	}
	return s.saveMetadata(ctx, documentID, rev)
}

// AddTag attaches an annotation to the current revision. For non-grammar
// types a duplicate (label, sublabel) pair fails with ErrDuplicateAnnotation.
func (s *sentenceService) AddTag(ctx context.Context, documentID string, index int, ann models.Annotation) (*models.Revision, error) {
	if ann.Party == "" {
		ann.Party = models.PartyNone
	}
	if err := validateAnnotation(&ann); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	if !rev.AddAnnotation(ann) {
		return nil, fmt.Errorf("tag (%s, %s): %w", ann.Label, ann.Sublabel, domain.ErrDuplicateAnnotation)
	}
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return nil, err
	}

	s.logger.Debug("tag added",
		"document_id", documentID,
		"index", index,
		"label", ann.Label,
		"sublabel", ann.Sublabel,
		"type", ann.Type,
	)
	s.publish(ctx, models.ChangeTagged, documentID, index, rev.ID, ann.User)

	return rev, nil
}

// RemoveTag removes the annotation matching (label, sublabel), returning it.
func (s *sentenceService) RemoveTag(ctx context.Context, documentID string, index int, label, sublabel string) (*models.Annotation, error) {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	removed := rev.RemoveAnnotation(label, sublabel)
	if removed == nil {
		return nil, fmt.Errorf("tag (%s, %s): %w", label, sublabel, domain.ErrNotFound)
	}
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ChangeUntagged, documentID, index, rev.ID, "")
	return removed, nil
}

// AddComment adds a comment at the head of the current revision's list.
func (s *sentenceService) AddComment(ctx context.Context, documentID string, index int, req *services.CommentRequest) (*models.Comment, error) {
	if err := validateCommentRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		UUID:       uuid.New().String(),
		Message:    req.Message,
		Author:     req.Author,
		Timestamp:  s.now(),
		IsImported: req.IsImported,
	}
	if !rev.AddComment(comment) {
		return nil, fmt.Errorf("revision %s holds %d comments: %w",
			rev.ID, config.MaxCommentsPerRevision, domain.ErrCapacityExceeded)
	}
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ChangeCommented, documentID, index, rev.ID, req.Author)
	// AddComment truncated the stored copy; report what was kept.
	stored := rev.Comments[0]
	return &stored, nil
}

// RemoveComment removes the comment with the given uuid.
func (s *sentenceService) RemoveComment(ctx context.Context, documentID string, index int, commentUUID string) error {
	_, rev, err := s.resolve(ctx, documentID, index)
	if err != nil {
		return err
	}

	if !rev.RemoveComment(commentUUID) {
		return fmt.Errorf("comment %s: %w", commentUUID, domain.ErrNotFound)
	}
	if err := s.saveMetadata(ctx, documentID, rev); err != nil {
		return err
	}

	s.publish(ctx, models.ChangeUncommented, documentID, index, rev.ID, "")
	return nil
}

// saveMetadata persists an in-place revision mutation and blows the cheap
// composite cache. The sentence text is unchanged, so no reanalysis.
func (s *sentenceService) saveMetadata(ctx context.Context, documentID string, rev *models.Revision) error {
	if err := s.revisions.Update(ctx, rev); err != nil {
		return err
	}
	return s.documents.InvalidateCache(ctx, documentID)
}

func validateAnnotation(ann *models.Annotation) error {
	return validation.ValidateStruct(ann,
		validation.Field(&ann.Type, validation.Required, validation.In(
			models.AnnotationManual,
			models.AnnotationSuggested,
			models.AnnotationGrammar,
			models.AnnotationKeyword,
		)),
		validation.Field(&ann.Label, validation.Required, validation.Length(1, config.MaxTagLabelLength)),
		validation.Field(&ann.Sublabel, validation.Length(0, config.MaxTagLabelLength)),
	)
}

func validateCommentRequest(req *services.CommentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Author, validation.Required),
		validation.Field(&req.Message, validation.Required),
	)
}
