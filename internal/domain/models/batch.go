package models

import "time"

// Batch groups documents uploaded together. Completion is a one-way latch:
// Pending flips to false once every valid member document is non-pending and
// never flips back, so later failures or removals cannot un-ready a batch a
// client has already observed as done.
type Batch struct {
	ID    string `json:"id" db:"id"`
	Owner string `json:"owner" db:"owner"`
	Name  string `json:"name" db:"name"`

	// DocumentIDs is the ordered set of member documents.
	DocumentIDs []string `json:"document_ids" db:"document_ids"`

	// InvalidDocumentIDs tracks ingestion failures separately so the batch
	// can be judged complete despite them and cleanup can purge only the
	// failed members.
	InvalidDocumentIDs []string `json:"invalid_document_ids" db:"invalid_document_ids"`

	Pending bool `json:"pending" db:"pending"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AddDocument appends id to the member list if absent. Idempotent.
func (b *Batch) AddDocument(id string) bool {
	for _, existing := range b.DocumentIDs {
		if existing == id {
			return false
		}
	}
	b.DocumentIDs = append(b.DocumentIDs, id)
	return true
}

// RemoveDocument drops id from the member list, reporting whether it was
// present.
func (b *Batch) RemoveDocument(id string) bool {
	for i, existing := range b.DocumentIDs {
		if existing == id {
			b.DocumentIDs = append(b.DocumentIDs[:i], b.DocumentIDs[i+1:]...)
			return true
		}
	}
	return false
}

// MarkInvalid moves id out of the valid member list and records it as an
// ingestion failure. Idempotent.
func (b *Batch) MarkInvalid(id string) {
	b.RemoveDocument(id)
	for _, existing := range b.InvalidDocumentIDs {
		if existing == id {
			return
		}
	}
	b.InvalidDocumentIDs = append(b.InvalidDocumentIDs, id)
}

// Empty reports whether the batch has neither valid nor invalid members and
// can therefore be deleted.
func (b *Batch) Empty() bool {
	return len(b.DocumentIDs) == 0 && len(b.InvalidDocumentIDs) == 0
}
