package models

import "time"

// ChangeKind classifies a broadcast mutation.
type ChangeKind string

const (
	ChangeEdited        ChangeKind = "edited"
	ChangeAccepted      ChangeKind = "accepted"
	ChangeRejected      ChangeKind = "rejected"
	ChangeUndone        ChangeKind = "undone"
	ChangeDeleted       ChangeKind = "deleted"
	ChangeTagged        ChangeKind = "tagged"
	ChangeUntagged      ChangeKind = "untagged"
	ChangeCommented     ChangeKind = "commented"
	ChangeUncommented   ChangeKind = "uncommented"
	ChangeLiked         ChangeKind = "liked"
	ChangeDisliked      ChangeKind = "disliked"
	ChangeLocked        ChangeKind = "locked"
	ChangeUnlocked      ChangeKind = "unlocked"
	ChangeAnalyzed      ChangeKind = "analyzed"
	ChangeAnalysisError ChangeKind = "analysis_error"
)

// ChangeEvent is the fire-and-forget notification published after every
// broadcast-worthy mutation. Delivery is best effort; no consumer return
// value is ever read.
type ChangeEvent struct {
	Kind       ChangeKind `json:"kind"`
	DocumentID string     `json:"document_id"`
	Index      int        `json:"index"` // -1 for document-level events
	RevisionID string     `json:"revision_id,omitempty"`
	User       string     `json:"user,omitempty"`
	At         time.Time  `json:"at"`
}
