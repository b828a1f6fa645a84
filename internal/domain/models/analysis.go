package models

import "time"

// DoclevelResult is the document-level output of the analysis pipeline:
// detected parties and an agreement-type signal.
type DoclevelResult struct {
	Parties       []Party `json:"parties"`
	AgreementType string  `json:"agreement_type"`
}

// SentlevelResult is the sentence-level output of the analysis pipeline:
// annotations and external references per input sentence, index-aligned
// with the input.
type SentlevelResult struct {
	Sentences []SentlevelSentence `json:"sentences"`
}

// SentlevelSentence holds the pipeline's output for one sentence.
type SentlevelSentence struct {
	Annotations  []Annotation `json:"annotations"`
	ExternalRefs []string     `json:"external_refs,omitempty"`
}

// SentenceAnalysis is one entry of the composite view: the current revision's
// user-facing fields plus the stable slot index it occupies.
type SentenceAnalysis struct {
	Index       int          `json:"index"`
	RevisionID  string       `json:"revision_id"`
	UUID        string       `json:"uuid"`
	Text        string       `json:"text"`
	Newlines    int          `json:"newlines"`
	Accepted    bool         `json:"accepted"`
	Rejected    bool         `json:"rejected"`
	Deleted     bool         `json:"deleted"`
	Annotations []Annotation `json:"annotations"`
	Comments    []Comment    `json:"comments"`
	Likes       []string     `json:"likes"`
	Dislikes    []string     `json:"dislikes"`
	LockOwner   string       `json:"lock_owner,omitempty"`
}

// DocumentAnalysis is the cached composite view of a document: doc-level
// fields plus the per-sentence array. It is a cache, not a source of truth;
// it is safe to rebuild from revisions at any time.
type DocumentAnalysis struct {
	DocumentID    string             `json:"document_id"`
	Parties       []Party            `json:"parties"`
	AgreementType string             `json:"agreement_type,omitempty"`
	Sentences     []SentenceAnalysis `json:"sentences"`
	ComputedAt    time.Time          `json:"computed_at"`
}

// Digest is a read-only summary derived from DocumentAnalysis: clause counts
// by label, keyword hit counts, and suggestion tallies per classifier and
// experiment. Never a source of truth.
type Digest struct {
	DocumentID    string         `json:"document_id"`
	SentenceCount int            `json:"sentence_count"`
	ClauseCounts  map[string]int `json:"clause_counts"`
	KeywordHits   map[string]int `json:"keyword_hits"`
	ByClassifier  map[string]int `json:"by_classifier"`
	ByExperiment  map[string]int `json:"by_experiment"`
}
