package revision

import (
	"context"

	"redline/internal/domain/models"
	"redline/internal/service/formatting"
)

// revisionOptions carries the per-transition overrides applied on top of a
// plain clone when appending to the chain.
type revisionOptions struct {
	text        *string
	annotations []models.Annotation
	reanalyze   bool
	accepted    bool
	deleted     bool
}

// newRevision appends a new revision after current: clone, reset review
// state, link backwards, and move the lock so an in-progress edit keeps it
// across the version bump. The no-op edit check runs before anything is
// persisted, so editing a sentence to its identical text creates no row and
// no history entry.
func (s *sentenceService) newRevision(ctx context.Context, editor string, current *models.Revision, opts revisionOptions) (*models.Revision, bool, error) {
	if opts.text != nil && *opts.text == current.Text {
		return current, false, nil
	}

	next := current.Clone()
	next.ModifiedBy = editor
	next.Accepted = opts.accepted
	next.Rejected = false
	next.Deleted = opts.deleted
	next.CreatedAt = s.now()
	prevID := current.ID
	next.PrevRevisionID = &prevID

	if opts.text != nil {
		if next.Formatting != nil {
			next.Formatting = formatting.Rebase(next.Formatting, current.Text, *opts.text)
		}
		next.Text = *opts.text
	}

	switch {
	case opts.annotations != nil:
		next.Annotations = opts.annotations
	case opts.reanalyze && len(next.Annotations) > 0:
		// The pipeline regenerates grammar annotations; user-applied
		// tags survive the reanalysis.
		next.Annotations = models.StripGrammar(next.Annotations)
	}

	// Lock moves, never copies: the predecessor is left unlocked.
	next.Lock = current.Lock
	current.Lock = nil

	if err := s.revisions.Create(ctx, next); err != nil {
		return nil, false, err
	}
	if err := s.revisions.Update(ctx, current); err != nil {
		return nil, false, err
	}

	return next, true, nil
}
