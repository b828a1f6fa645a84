package models

import "time"

// Comment is a threaded remark on a revision. Comments are metadata: adding
// or removing one mutates the current revision in place and never creates a
// new revision.
type Comment struct {
	UUID       string    `json:"uuid"`
	Message    string    `json:"message"`
	Author     string    `json:"author"`
	Timestamp  time.Time `json:"timestamp"`
	IsImported bool      `json:"is_imported,omitempty"` // carried over at ingestion
}
