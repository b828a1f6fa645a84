package models

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"redline/internal/config"
)

func TestClone(t *testing.T) {
	prev := "rev-0"
	src := &Revision{
		ID:             "rev-1",
		UUID:           "sent-1",
		Text:           "The supplier shall deliver.",
		Formatting:     []Run{{Length: 27, Marks: []string{"bold"}}},
		Style:          "body",
		Newlines:       1,
		Annotations:    []Annotation{{Type: AnnotationManual, Label: "delivery"}},
		Comments:       []Comment{{UUID: "c1", Message: "looks fine"}},
		Likes:          []string{"alice"},
		Dislikes:       []string{"bob"},
		Accepted:       true,
		ModifiedBy:     "alice",
		PrevRevisionID: &prev,
		Lock:           &Lock{Owner: "alice", Lifetime: time.Hour},
	}

	next := src.Clone()

	if next.UUID != src.UUID {
		t.Errorf("clone UUID = %s, want %s (same logical sentence)", next.UUID, src.UUID)
	}
	if next.ID != "" {
		t.Errorf("clone must be unsaved, got id %s", next.ID)
	}
	if next.Lock != nil {
		t.Errorf("clone must not carry the lock")
	}
	if next.PrevRevisionID != nil {
		t.Errorf("clone must not inherit the prev pointer")
	}
	if !next.Accepted {
		t.Errorf("clone must copy review state")
	}

	// Metadata lists are deep copies.
	next.Annotations[0].Label = "changed"
	next.Comments[0].Message = "changed"
	next.Likes[0] = "changed"
	if src.Annotations[0].Label != "delivery" || src.Comments[0].Message != "looks fine" || src.Likes[0] != "alice" {
		t.Errorf("clone shares metadata slices with the source")
	}
}

func TestLockExpiry(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := &Lock{Owner: "alice", Lifetime: time.Hour, CreatedAt: created}

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{"before expiry", created.Add(59 * time.Minute), false},
		{"at expiry", created.Add(time.Hour), true},
		{"after expiry", created.Add(2 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lock.Expired(tt.at); got != tt.expired {
				t.Errorf("Expired(%v) = %v, want %v", tt.at, got, tt.expired)
			}
		})
	}
}

func TestIsLockedLazyClear(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rev := &Revision{Lock: &Lock{Owner: "alice", Lifetime: time.Minute, CreatedAt: created}}

	locked, cleared := rev.IsLocked(created.Add(30 * time.Second))
	if !locked || cleared {
		t.Errorf("fresh lock: locked=%v cleared=%v", locked, cleared)
	}

	locked, cleared = rev.IsLocked(created.Add(2 * time.Minute))
	if locked || !cleared {
		t.Errorf("expired lock: locked=%v cleared=%v", locked, cleared)
	}
	if rev.Lock != nil {
		t.Errorf("expired lock not cleared from the revision")
	}

	// A revision with no lock reports nothing to clear.
	locked, cleared = rev.IsLocked(created)
	if locked || cleared {
		t.Errorf("unlocked: locked=%v cleared=%v", locked, cleared)
	}
}

func TestLikeDislikeMutualExclusion(t *testing.T) {
	rev := &Revision{}

	rev.Like("alice")
	rev.Like("alice") // idempotent
	if len(rev.Likes) != 1 {
		t.Errorf("likes = %v", rev.Likes)
	}

	rev.Dislike("alice")
	if len(rev.Likes) != 0 || len(rev.Dislikes) != 1 {
		t.Errorf("after dislike: likes=%v dislikes=%v", rev.Likes, rev.Dislikes)
	}

	rev.Like("alice")
	if len(rev.Likes) != 1 || len(rev.Dislikes) != 0 {
		t.Errorf("after re-like: likes=%v dislikes=%v", rev.Likes, rev.Dislikes)
	}

	if rev.RemoveDislike("alice") {
		t.Errorf("removing an absent dislike reported success")
	}
	if !rev.RemoveLike("alice") {
		t.Errorf("removing a standing like reported failure")
	}
}

func TestAddComment(t *testing.T) {
	rev := &Revision{}

	if !rev.AddComment(Comment{UUID: "c1", Message: "first"}) {
		t.Fatalf("add failed on an empty revision")
	}
	if !rev.AddComment(Comment{UUID: "c2", Message: "second"}) {
		t.Fatalf("second add failed")
	}
	if rev.Comments[0].UUID != "c2" {
		t.Errorf("comments not newest-first: %v", rev.Comments)
	}

	long := strings.Repeat("x", config.MaxCommentLength+1)
	rev.AddComment(Comment{UUID: "c3", Message: long})
	if got := len(rev.Comments[0].Message); got != config.MaxCommentLength {
		t.Errorf("message length = %d, want truncation to %d", got, config.MaxCommentLength)
	}

	for len(rev.Comments) < config.MaxCommentsPerRevision {
		rev.Comments = append(rev.Comments, Comment{})
	}
	if rev.AddComment(Comment{UUID: "over"}) {
		t.Errorf("add succeeded past the comment cap")
	}
}

func TestAddCommentTruncatesOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the cap must be dropped whole, not split.
	msg := strings.Repeat("x", config.MaxCommentLength-1) + "é"

	rev := &Revision{}
	rev.AddComment(Comment{UUID: "c1", Message: msg})

	got := rev.Comments[0].Message
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != config.MaxCommentLength-1 {
		t.Errorf("message length = %d, want %d", len(got), config.MaxCommentLength-1)
	}
}

func TestRemoveComment(t *testing.T) {
	rev := &Revision{Comments: []Comment{{UUID: "c1"}, {UUID: "c2"}}}

	if !rev.RemoveComment("c1") {
		t.Fatalf("remove reported failure for a present comment")
	}
	if len(rev.Comments) != 1 || rev.Comments[0].UUID != "c2" {
		t.Errorf("comments = %v", rev.Comments)
	}
	if rev.RemoveComment("c1") {
		t.Errorf("remove reported success for an absent comment")
	}
}

func TestAddAnnotationDuplicates(t *testing.T) {
	rev := &Revision{}

	manual := Annotation{Type: AnnotationManual, Label: "liability", Sublabel: "cap"}
	if !rev.AddAnnotation(manual) {
		t.Fatalf("first manual annotation refused")
	}
	if rev.AddAnnotation(manual) {
		t.Errorf("duplicate (label, sublabel) accepted for a non-grammar type")
	}
	if rev.AddAnnotation(Annotation{Type: AnnotationSuggested, Label: "liability", Sublabel: "cap"}) {
		t.Errorf("duplicate pair accepted across non-grammar types")
	}
	if !rev.AddAnnotation(Annotation{Type: AnnotationManual, Label: "liability", Sublabel: "exclusion"}) {
		t.Errorf("distinct sublabel refused")
	}

	grammar := Annotation{Type: AnnotationGrammar, Label: "liability", Sublabel: "cap"}
	for i := 0; i < 2; i++ {
		if !rev.AddAnnotation(grammar) {
			t.Errorf("grammar annotation %d refused", i)
		}
	}
}

func TestStripGrammar(t *testing.T) {
	anns := []Annotation{
		{Type: AnnotationGrammar, Label: "passive-voice"},
		{Type: AnnotationManual, Label: "liability"},
		{Type: AnnotationKeyword, Label: "indemnify"},
		{Type: AnnotationGrammar, Label: "long-sentence"},
	}
	kept := StripGrammar(anns)
	if len(kept) != 2 {
		t.Fatalf("kept %d annotations, want 2", len(kept))
	}
	for _, a := range kept {
		if a.Type == AnnotationGrammar {
			t.Errorf("grammar annotation survived: %+v", a)
		}
	}
}

func TestReplaceSentence(t *testing.T) {
	doc := &Document{Sentences: []string{"r1", "r2", "r1"}}

	if got := doc.ReplaceSentence("r1", "r9"); got != 2 {
		t.Errorf("replaced %d slots, want 2", got)
	}
	if doc.Sentences[0] != "r9" || doc.Sentences[2] != "r9" {
		t.Errorf("sentences = %v", doc.Sentences)
	}
	if got := doc.ReplaceSentence("missing", "r9"); got != 0 {
		t.Errorf("replaced %d slots for an absent id", got)
	}
}

func TestBatchMembership(t *testing.T) {
	b := &Batch{}

	if !b.AddDocument("d1") || !b.AddDocument("d2") {
		t.Fatalf("add failed")
	}
	if b.AddDocument("d1") {
		t.Errorf("re-adding a member reported a change")
	}
	if !b.RemoveDocument("d1") {
		t.Errorf("remove failed for a member")
	}
	if b.RemoveDocument("d1") {
		t.Errorf("remove reported a change for a non-member")
	}
	if b.Empty() {
		t.Errorf("batch with d2 reported empty")
	}

	b.MarkInvalid("d2")
	b.MarkInvalid("d2") // idempotent
	if len(b.InvalidDocumentIDs) != 1 {
		t.Errorf("invalid ids = %v", b.InvalidDocumentIDs)
	}
	if len(b.DocumentIDs) != 0 {
		t.Errorf("marking invalid must drop the valid membership: %v", b.DocumentIDs)
	}
	if b.Empty() {
		t.Errorf("a batch with invalid members is not empty")
	}
}
