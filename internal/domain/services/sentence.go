package services

import (
	"context"

	"redline/internal/domain/models"
)

// SentenceService is the state machine over one sentence of a document.
//
// Versioning operations (Edit, Accept, Reject, Undo, Delete) append a new
// revision to the sentence's chain and swap the document's slot pointer.
// Metadata operations (likes, tags, comments) mutate the current revision in
// place and only invalidate the document's cheap composite cache. The split
// is deliberate: only content and acceptance-state changes are history.
type SentenceService interface {
	// Get resolves the current revision at the given slot.
	Get(ctx context.Context, documentID string, index int) (*models.Revision, error)

	// History walks the revision chain newest-first, ending at the first
	// revision of the sentence.
	History(ctx context.Context, documentID string, index int) ([]*models.Revision, error)

	// Edit appends a new revision with the given text. Editing to the
	// identical text is a no-op returning the current revision unchanged.
	Edit(ctx context.Context, documentID string, index int, req *EditRequest) (*models.Revision, error)

	// Accept appends a new revision with accepted=true.
	Accept(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error)

	// Reject marks the current revision rejected and reverts to the latest
	// non-rejected ancestor, porting current annotations and comments onto
	// the reverted clone. Returns the current revision unchanged together
	// with domain.ErrInvalidTransition when no predecessor exists.
	Reject(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error)

	// Undo reverts exactly one step, regardless of the predecessor's
	// rejection state. Same ErrInvalidTransition contract as Reject.
	Undo(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error)

	// Delete appends a new revision with deleted=true.
	Delete(ctx context.Context, documentID string, index int, editor string) (*models.Revision, error)

	// Like / Dislike toggle membership in the mutually exclusive vote sets
	// on the current revision.
	Like(ctx context.Context, documentID string, index int, user string) (*models.Revision, error)
	Dislike(ctx context.Context, documentID string, index int, user string) (*models.Revision, error)
	RemoveLike(ctx context.Context, documentID string, index int, user string) error
	RemoveDislike(ctx context.Context, documentID string, index int, user string) error

	// AddTag attaches an annotation to the current revision. Duplicate
	// (label, sublabel) pairs fail with domain.ErrDuplicateAnnotation for
	// non-grammar types.
	AddTag(ctx context.Context, documentID string, index int, ann models.Annotation) (*models.Revision, error)

	// RemoveTag removes the annotation matching (label, sublabel) and
	// returns it, or domain.ErrNotFound when nothing matched.
	RemoveTag(ctx context.Context, documentID string, index int, label, sublabel string) (*models.Annotation, error)

	// AddComment adds a comment (newest first). Fails with
	// domain.ErrCapacityExceeded at the per-revision cap.
	AddComment(ctx context.Context, documentID string, index int, req *CommentRequest) (*models.Comment, error)

	// RemoveComment removes the comment with the given uuid.
	RemoveComment(ctx context.Context, documentID string, index int, commentUUID string) error
}

// EditRequest carries an edit mutation's inputs.
type EditRequest struct {
	Editor string `json:"-"`
	Text   string `json:"text"`
	// Annotations, when non-nil, overwrite the new revision's annotation
	// list outright.
	Annotations []models.Annotation `json:"annotations,omitempty"`
	// Reanalyze requests a full document reanalysis after the edit. The
	// new revision's grammar annotations are stripped so the pipeline can
	// regenerate them.
	Reanalyze bool `json:"reanalyze,omitempty"`
}

// CommentRequest carries a comment addition's inputs.
type CommentRequest struct {
	Author     string `json:"-"`
	Message    string `json:"message"`
	IsImported bool   `json:"is_imported,omitempty"`
}
