package models

import (
	"time"
)

// Document is the aggregate root for one uploaded text. Sentences holds the
// current revision id per logical slot; slot indices are stable for the life
// of the document while the revision a slot points at is swapped forward as
// the sentence is edited.
type Document struct {
	ID      string  `json:"id" db:"id"`
	BatchID *string `json:"batch_id,omitempty" db:"batch_id"`
	Owner   string  `json:"owner" db:"owner"`
	Title   string  `json:"title" db:"title"`

	// Sentences[i] is the id of the current revision of the logical
	// sentence originally ingested at position i.
	Sentences []string `json:"sentences" db:"sentences"`

	// Dirty means content changed enough that the next read must run the
	// full analysis pipeline, as opposed to CachedAnalysis == nil which
	// only requires recomposing from stored revisions.
	Dirty bool `json:"dirty" db:"dirty"`

	Parties       []Party `json:"parties" db:"parties"`
	AgreementType string  `json:"agreement_type,omitempty" db:"agreement_type"`

	CachedAnalysis *DocumentAnalysis `json:"-" db:"cached_analysis"`

	Pending bool `json:"pending" db:"pending"`
	Failed  bool `json:"failed" db:"failed"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"` // trashed, not destroyed, while batch-referenced
}

// SlotOf returns the slot index currently pointing at revisionID, or -1.
// In practice exactly one slot matches; linear scan is fine at sentence
// counts real contracts reach.
func (d *Document) SlotOf(revisionID string) int {
	for i, id := range d.Sentences {
		if id == revisionID {
			return i
		}
	}
	return -1
}

// ReplaceSentence swaps every slot pointing at oldID to newID, returning the
// number of slots updated.
func (d *Document) ReplaceSentence(oldID, newID string) int {
	n := 0
	for i, id := range d.Sentences {
		if id == oldID {
			d.Sentences[i] = newID
			n++
		}
	}
	return n
}

// HasDoclevelAnalysis reports whether document-level analysis (parties and
// agreement type) has run at least once.
func (d *Document) HasDoclevelAnalysis() bool {
	return len(d.Parties) > 0 || d.AgreementType != ""
}
