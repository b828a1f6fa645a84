package document

import (
	"context"

	"redline/internal/domain/models"
)

// Digest derives the read-only summary from the analysis result, serving a
// cached copy when one is fresh. The digest is pure derivation; every
// mutation path invalidates it alongside the composite cache.
func (s *documentService) Digest(ctx context.Context, id string) (*models.Digest, error) {
	if s.digests != nil {
		var cached models.Digest
		hit, err := s.digests.Get(ctx, digestKey(id), &cached)
		if err != nil {
			return nil, err
		}
		if hit {
			return &cached, nil
		}
	}

	analysis, err := s.AnalysisResult(ctx, id)
	if err != nil {
		return nil, err
	}

	digest := deriveDigest(analysis)

	if s.digests != nil {
		if err := s.digests.Set(ctx, digestKey(id), digest); err != nil {
			s.logger.Warn("failed to cache digest", "document_id", id, "error", err)
		}
	}
	return digest, nil
}

func deriveDigest(analysis *models.DocumentAnalysis) *models.Digest {
	digest := &models.Digest{
		DocumentID:    analysis.DocumentID,
		SentenceCount: len(analysis.Sentences),
		ClauseCounts:  make(map[string]int),
		KeywordHits:   make(map[string]int),
		ByClassifier:  make(map[string]int),
		ByExperiment:  make(map[string]int),
	}
	for _, sentence := range analysis.Sentences {
		for _, a := range sentence.Annotations {
			switch a.Type {
			case models.AnnotationKeyword:
				digest.KeywordHits[a.Label]++
			case models.AnnotationManual, models.AnnotationSuggested:
				digest.ClauseCounts[a.Label]++
			}
			if a.ClassifierID != "" {
				digest.ByClassifier[a.ClassifierID]++
			}
			if a.ExperimentID != "" {
				digest.ByExperiment[a.ExperimentID]++
			}
		}
	}
	return digest
}
