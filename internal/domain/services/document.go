package services

import (
	"context"

	"redline/internal/domain/models"
)

// DocumentService owns the document aggregate: ingestion, slot resolution,
// the two-tier analysis cache, and the derived digest.
type DocumentService interface {
	// Ingest creates a document from pre-split sentence texts, populating
	// one first revision per slot, attaching the document to its batch
	// (creating one when absent) and dispatching initial analysis.
	Ingest(ctx context.Context, req *IngestRequest) (*models.Document, error)

	// Get retrieves a document without touching the analysis cache.
	Get(ctx context.Context, id string) (*models.Document, error)

	// AnalysisResult returns the composite view, lazily rebuilding it.
	// A dirty or never-analyzed document runs the full analysis pipeline
	// synchronously; a merely-invalidated cache is recomposed from stored
	// revisions.
	AnalysisResult(ctx context.Context, id string) (*models.DocumentAnalysis, error)

	// Digest derives the read-only summary from the analysis result.
	Digest(ctx context.Context, id string) (*models.Digest, error)

	// Reanalyze marks the document dirty and dispatches a background
	// analysis pass. Idempotent; the re-trigger path for lost jobs.
	Reanalyze(ctx context.Context, id string) error

	// UpdateSentence swaps every slot pointing at oldID to newID and
	// invalidates the composite cache. With reanalyze it also marks the
	// document dirty and dispatches a full analysis pass.
	UpdateSentence(ctx context.Context, documentID, oldID, newID string, reanalyze bool) error

	// InvalidateCache clears only the cheap composite cache.
	InvalidateCache(ctx context.Context, id string) error

	// Trash soft-deletes the document.
	Trash(ctx context.Context, id string) error
}

// IngestRequest carries ingestion output into document creation. The
// optional slices, when present, must be index-aligned with Sentences.
type IngestRequest struct {
	Owner   string  `json:"-"`
	BatchID *string `json:"batch_id,omitempty"`
	Title   string  `json:"title"`

	Sentences  []string            `json:"sentences"`
	Formatting [][]models.Run      `json:"formatting,omitempty"`
	Styles     []string            `json:"styles,omitempty"`
	Newlines   []int               `json:"newlines,omitempty"`
	Comments   [][]models.Comment  `json:"comments,omitempty"` // imported remarks
}
