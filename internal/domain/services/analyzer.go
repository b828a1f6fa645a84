package services

import (
	"context"

	"redline/internal/domain/models"
)

// Analyzer is the NLP pipeline contract. Both passes are pure functions of
// sentence text; the engine merges their output into revisions itself.
// Implementations range from the in-process keyword analyzer used in dev to
// a remote pipeline in production.
type Analyzer interface {
	// DoclevelProcess detects parties and an agreement-type signal from
	// the full ordered sentence list.
	DoclevelProcess(ctx context.Context, sentences []string) (*models.DoclevelResult, error)

	// SentlevelProcess produces annotations per sentence, index-aligned
	// with the input, given the already-detected parties.
	SentlevelProcess(ctx context.Context, sentences []string, parties []models.Party) (*models.SentlevelResult, error)
}
