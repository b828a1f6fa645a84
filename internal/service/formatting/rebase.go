// Package formatting maps rich-text runs across plain-text edits.
//
// A sentence's formatting payload is a partition of its text into runs, each
// carrying a mark set. When an edit changes the plain text the runs must be
// re-aligned: surviving stretches keep their marks, deleted stretches drop
// out, and inserted text inherits the marks in effect at the insertion point.
package formatting

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"redline/internal/domain/models"
)

// Rebase recomputes formatting runs for newText from the runs that covered
// oldText. Returns nil when runs is nil (plain sentence). The result always
// partitions newText: run lengths sum to len(newText).
func Rebase(runs []models.Run, oldText, newText string) []models.Run {
	if runs == nil {
		return nil
	}
	if oldText == newText {
		return append([]models.Run(nil), runs...)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	cursor := &runCursor{runs: runs}
	var out []models.Run

	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			out = appendSegments(out, cursor.consume(n))
		case diffmatchpatch.DiffDelete:
			cursor.consume(n)
		case diffmatchpatch.DiffInsert:
			out = appendRun(out, models.Run{Length: n, Marks: cursor.marksHere()})
		}
	}

	if out == nil {
		out = []models.Run{}
	}
	return out
}

// runCursor walks the old run list by byte offset.
type runCursor struct {
	runs   []models.Run
	idx    int
	offset int // bytes consumed of runs[idx]
}

// consume advances n bytes, returning the covered segments with their marks.
func (c *runCursor) consume(n int) []models.Run {
	var segments []models.Run
	for n > 0 && c.idx < len(c.runs) {
		run := c.runs[c.idx]
		remaining := run.Length - c.offset
		take := n
		if take > remaining {
			take = remaining
		}
		segments = append(segments, models.Run{Length: take, Marks: run.Marks})
		c.offset += take
		n -= take
		if c.offset >= run.Length {
			c.idx++
			c.offset = 0
		}
	}
	// Text past the last run (oldText longer than the partition claims)
	// carries no marks; tolerate rather than fail.
	if n > 0 {
		segments = append(segments, models.Run{Length: n})
	}
	return segments
}

// marksHere returns the marks in effect at the cursor position: the current
// run's marks, or the last run's when the cursor sits past the end.
func (c *runCursor) marksHere() []string {
	if c.idx < len(c.runs) {
		return c.runs[c.idx].Marks
	}
	if len(c.runs) > 0 {
		return c.runs[len(c.runs)-1].Marks
	}
	return nil
}

func appendSegments(out []models.Run, segments []models.Run) []models.Run {
	for _, s := range segments {
		out = appendRun(out, s)
	}
	return out
}

// appendRun appends a run, merging with the previous one when the mark sets
// match so the output stays minimal.
func appendRun(out []models.Run, run models.Run) []models.Run {
	if run.Length == 0 {
		return out
	}
	if len(out) > 0 && marksEqual(out[len(out)-1].Marks, run.Marks) {
		out[len(out)-1].Length += run.Length
		return out
	}
	return append(out, models.Run{Length: run.Length, Marks: append([]string(nil), run.Marks...)})
}

func marksEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
