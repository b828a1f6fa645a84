package document

import (
	"context"
	"fmt"

	"redline/internal/domain"
	"redline/internal/domain/models"
)

// AnalysisResult returns the composite view, rebuilding whichever tier is
// stale. Dirty or never-analyzed runs the full pipeline synchronously; a
// cleared cache is recomposed from stored revisions; otherwise the cache is
// served as-is. The never-analyzed check is what makes a lost initial
// analysis job recoverable: the first read runs the pipeline itself instead
// of serving an empty composite and settling the document as analyzed.
func (s *documentService) AnalysisResult(ctx context.Context, id string) (*models.DocumentAnalysis, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Dirty || (len(doc.Sentences) > 0 && !doc.HasDoclevelAnalysis()) {
		return s.analyze(ctx, doc)
	}
	if doc.CachedAnalysis != nil {
		return doc.CachedAnalysis, nil
	}
	analysis, err := s.compose(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.CachedAnalysis = analysis
	if err := s.documents.SetAnalysis(ctx, doc); err != nil {
		return nil, err
	}
	return analysis, nil
}

// analyze runs both pipeline passes, merges the resulting annotations into
// the current revisions and stores the fresh composite view.
func (s *documentService) analyze(ctx context.Context, doc *models.Document) (*models.DocumentAnalysis, error) {
	revs, err := s.currentRevisions(ctx, doc)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(revs))
	for i, rev := range revs {
		texts[i] = rev.Text
	}

	docResult, err := s.analyzer.DoclevelProcess(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("doclevel analysis of document %s: %w", doc.ID, err)
	}
	sentResult, err := s.analyzer.SentlevelProcess(ctx, texts, docResult.Parties)
	if err != nil {
		return nil, fmt.Errorf("sentlevel analysis of document %s: %w", doc.ID, err)
	}
	if len(sentResult.Sentences) != len(revs) {
		return nil, fmt.Errorf("sentlevel analysis of document %s: got %d results for %d sentences",
			doc.ID, len(sentResult.Sentences), len(revs))
	}

	for i, rev := range revs {
		rev.Annotations = models.StripGrammar(rev.Annotations)
		for _, a := range sentResult.Sentences[i].Annotations {
			rev.AddAnnotation(a)
		}
		if err := s.revisions.Update(ctx, rev); err != nil {
			return nil, fmt.Errorf("store annotations for sentence %d: %w", i, err)
		}
	}

	doc.Parties = docResult.Parties
	doc.AgreementType = docResult.AgreementType

	analysis := s.composeFromRevisions(doc, revs)
	doc.CachedAnalysis = analysis
	if err := s.documents.SetAnalysis(ctx, doc); err != nil {
		return nil, err
	}
	s.invalidateDigest(ctx, doc.ID)

	s.notifier.Publish(ctx, models.ChangeEvent{
		Kind:       models.ChangeAnalyzed,
		DocumentID: doc.ID,
		Index:      -1,
		At:         s.now(),
	})

	return analysis, nil
}

// compose rebuilds the composite view from stored revisions without running
// the pipeline. Used when only metadata moved since the last analysis.
func (s *documentService) compose(ctx context.Context, doc *models.Document) (*models.DocumentAnalysis, error) {
	revs, err := s.currentRevisions(ctx, doc)
	if err != nil {
		return nil, err
	}
	return s.composeFromRevisions(doc, revs), nil
}

func (s *documentService) currentRevisions(ctx context.Context, doc *models.Document) ([]*models.Revision, error) {
	byID, err := s.revisions.GetByIDs(ctx, doc.Sentences)
	if err != nil {
		return nil, err
	}
	revs := make([]*models.Revision, len(doc.Sentences))
	for i, id := range doc.Sentences {
		rev, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("sentence %d of document %s points at missing revision %s: %w",
				i, doc.ID, id, domain.ErrNotFound)
		}
		revs[i] = rev
	}
	return revs, nil
}

func (s *documentService) composeFromRevisions(doc *models.Document, revs []*models.Revision) *models.DocumentAnalysis {
	now := s.now()
	sentences := make([]models.SentenceAnalysis, len(revs))
	for i, rev := range revs {
		owner, _ := rev.LockOwner(now)
		sentences[i] = models.SentenceAnalysis{
			Index:       i,
			RevisionID:  rev.ID,
			UUID:        rev.UUID,
			Text:        rev.Text,
			Newlines:    rev.Newlines,
			Accepted:    rev.Accepted,
			Rejected:    rev.Rejected,
			Deleted:     rev.Deleted,
			Annotations: rev.Annotations,
			Comments:    rev.Comments,
			Likes:       rev.Likes,
			Dislikes:    rev.Dislikes,
			LockOwner:   owner,
		}
	}
	return &models.DocumentAnalysis{
		DocumentID:    doc.ID,
		Parties:       doc.Parties,
		AgreementType: doc.AgreementType,
		Sentences:     sentences,
		ComputedAt:    now,
	}
}

// backgroundAnalysis is the dispatcher entry point. A failure marks the
// document failed and settles its pending flag so batch completion is not
// held hostage by a broken pipeline.
func (s *documentService) backgroundAnalysis(ctx context.Context, id string) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.analyze(ctx, doc); err != nil {
		doc.Failed = true
		doc.Pending = false
		doc.Dirty = false
		if uerr := s.documents.Update(ctx, doc); uerr != nil {
			s.logger.Error("failed to mark document failed",
				"document_id", id, "error", uerr)
		}
		s.notifier.Publish(ctx, models.ChangeEvent{
			Kind:       models.ChangeAnalysisError,
			DocumentID: id,
			Index:      -1,
			At:         s.now(),
		})
		return err
	}
	return nil
}
