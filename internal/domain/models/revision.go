package models

import (
	"time"
	"unicode/utf8"

	"redline/internal/config"
)

// Revision is one immutable-once-created version of a sentence. Revisions of
// the same logical sentence share UUID and form a backward-linked chain via
// PrevRevisionID; walking the chain always terminates at a first revision
// with PrevRevisionID == nil. The chain is acyclic by construction: new
// revisions are appended, never repointed into an ancestor.
//
// The only in-place mutations a revision ever sees are metadata (annotations,
// comments, likes) and the Rejected flag set by the reject transition.
type Revision struct {
	ID   string `json:"id" db:"id"`
	UUID string `json:"uuid" db:"sentence_uuid"` // shared across the chain

	Text       string `json:"text" db:"text"`
	Formatting []Run  `json:"formatting,omitempty" db:"formatting"` // rich-text runs, nil for plain sentences
	Style      string `json:"style,omitempty" db:"style"`
	Newlines   int    `json:"newlines" db:"newlines"` // trailing line breaks

	Annotations []Annotation `json:"annotations" db:"annotations"`
	Comments    []Comment    `json:"comments" db:"comments"`
	Likes       []string     `json:"likes" db:"likes"`
	Dislikes    []string     `json:"dislikes" db:"dislikes"`

	Accepted bool `json:"accepted" db:"accepted"`
	Rejected bool `json:"rejected" db:"rejected"`
	Deleted  bool `json:"deleted" db:"deleted"`

	ModifiedBy string    `json:"modified_by" db:"modified_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	PrevRevisionID *string `json:"prev_revision_id,omitempty" db:"prev_revision_id"`

	Lock *Lock `json:"lock,omitempty"`
}

// Run is one contiguous stretch of sentence text carrying the same rich-text
// marks. Runs partition the sentence: the sum of Length over all runs equals
// len(Text) whenever Formatting is present.
type Run struct {
	Length int      `json:"length"`
	Marks  []string `json:"marks,omitempty"`
}

// Lock is the time-boxed exclusive edit marker for a sentence. It lives on
// exactly one revision of a chain at a time and is moved, not copied, when a
// new revision is created.
type Lock struct {
	Owner     string        `json:"owner"`
	Lifetime  time.Duration `json:"lifetime"`
	CreatedAt time.Time     `json:"created_at"`
}

// ExpiresAt returns the instant the lock stops being honored.
func (l *Lock) ExpiresAt() time.Time {
	return l.CreatedAt.Add(l.Lifetime)
}

// Expired reports whether the lock is past its lifetime at t.
func (l *Lock) Expired(t time.Time) bool {
	return !t.Before(l.ExpiresAt())
}

// Clone produces a new unsaved revision copying every content field except
// the lock (always nil on the clone) and explicitly preserving UUID: the
// clone is a version of the same logical sentence. Annotation and comment
// lists are deep-copied so in-place metadata mutation on one revision never
// leaks into another.
func (r *Revision) Clone() *Revision {
	next := &Revision{
		UUID:        r.UUID,
		Text:        r.Text,
		Style:       r.Style,
		Newlines:    r.Newlines,
		Accepted:    r.Accepted,
		Rejected:    r.Rejected,
		Deleted:     r.Deleted,
		ModifiedBy:  r.ModifiedBy,
		Formatting:  append([]Run(nil), r.Formatting...),
		Annotations: CloneAnnotations(r.Annotations),
		Comments:    append([]Comment(nil), r.Comments...),
		Likes:       append([]string(nil), r.Likes...),
		Dislikes:    append([]string(nil), r.Dislikes...),
	}
	return next
}

// IsLocked reports whether an unexpired lock is held at t. An expired lock is
// treated as absent and cleared from the in-memory revision as a side effect;
// the second return value tells the caller the revision needs persisting.
// Checking lock state is deliberately not side-effect-free: expiry has no
// background sweep, it is only ever observed here.
func (r *Revision) IsLocked(t time.Time) (locked bool, cleared bool) {
	if r.Lock == nil {
		return false, false
	}
	if r.Lock.Expired(t) {
		r.Lock = nil
		return false, true
	}
	return true, false
}

// LockOwner returns the holder of the current unexpired lock, or "" if the
// sentence is unlocked. Shares IsLocked's lazy-clear side effect.
func (r *Revision) LockOwner(t time.Time) (owner string, cleared bool) {
	locked, cleared := r.IsLocked(t)
	if !locked {
		return "", cleared
	}
	return r.Lock.Owner, false
}

// Like records user in the like set and drops any standing dislike by the
// same user. Idempotent.
func (r *Revision) Like(user string) {
	r.Dislikes = removeUser(r.Dislikes, user)
	if !containsUser(r.Likes, user) {
		r.Likes = append(r.Likes, user)
	}
}

// Dislike records user in the dislike set and drops any standing like by the
// same user. Idempotent.
func (r *Revision) Dislike(user string) {
	r.Likes = removeUser(r.Likes, user)
	if !containsUser(r.Dislikes, user) {
		r.Dislikes = append(r.Dislikes, user)
	}
}

// RemoveLike removes user's like, reporting whether one was present.
func (r *Revision) RemoveLike(user string) bool {
	if !containsUser(r.Likes, user) {
		return false
	}
	r.Likes = removeUser(r.Likes, user)
	return true
}

// RemoveDislike removes user's dislike, reporting whether one was present.
func (r *Revision) RemoveDislike(user string) bool {
	if !containsUser(r.Dislikes, user) {
		return false
	}
	r.Dislikes = removeUser(r.Dislikes, user)
	return true
}

// AddComment inserts a comment at the head of the list (newest first),
// truncating the message to the configured cap. Returns false when the
// revision already holds the maximum number of comments.
func (r *Revision) AddComment(c Comment) bool {
	if len(r.Comments) >= config.MaxCommentsPerRevision {
		return false
	}
	if len(c.Message) > config.MaxCommentLength {
		// Back off to a rune boundary so truncation never splits a
		// multi-byte character.
		cut := config.MaxCommentLength
		for cut > 0 && !utf8.RuneStart(c.Message[cut]) {
			cut--
		}
		c.Message = c.Message[:cut]
	}
	r.Comments = append([]Comment{c}, r.Comments...)
	return true
}

// RemoveComment removes the comment with the given uuid, reporting whether
// it was found.
func (r *Revision) RemoveComment(uuid string) bool {
	for i, c := range r.Comments {
		if c.UUID == uuid {
			r.Comments = append(r.Comments[:i], r.Comments[i+1:]...)
			return true
		}
	}
	return false
}

func containsUser(users []string, user string) bool {
	for _, u := range users {
		if u == user {
			return true
		}
	}
	return false
}

func removeUser(users []string, user string) []string {
	out := users[:0]
	for _, u := range users {
		if u != user {
			out = append(out, u)
		}
	}
	return out
}
