package formatting

import (
	"testing"

	"redline/internal/domain/models"
)

func totalLength(runs []models.Run) int {
	var n int
	for _, r := range runs {
		n += r.Length
	}
	return n
}

func TestRebasePlainSentence(t *testing.T) {
	if got := Rebase(nil, "old", "new"); got != nil {
		t.Errorf("nil runs must stay nil, got %v", got)
	}
}

func TestRebaseUnchangedText(t *testing.T) {
	runs := []models.Run{{Length: 5, Marks: []string{"bold"}}, {Length: 6}}
	got := Rebase(runs, "Hello world", "Hello world")
	if len(got) != 2 || got[0].Length != 5 || got[1].Length != 6 {
		t.Errorf("runs = %v", got)
	}
	// The result is a copy, not an alias.
	got[0].Length = 99
	if runs[0].Length != 5 {
		t.Errorf("rebase aliased the input runs")
	}
}

func TestRebaseAppend(t *testing.T) {
	runs := []models.Run{{Length: 5, Marks: []string{"bold"}}}
	got := Rebase(runs, "Hello", "Hello world")

	// Appended text inherits the trailing run's marks and merges into it.
	if len(got) != 1 {
		t.Fatalf("runs = %v, want one merged run", got)
	}
	if got[0].Length != len("Hello world") {
		t.Errorf("length = %d, want %d", got[0].Length, len("Hello world"))
	}
	if len(got[0].Marks) != 1 || got[0].Marks[0] != "bold" {
		t.Errorf("marks = %v, want [bold]", got[0].Marks)
	}
}

func TestRebaseTrailingDelete(t *testing.T) {
	runs := []models.Run{{Length: 5, Marks: []string{"bold"}}, {Length: 6, Marks: []string{"italic"}}}
	got := Rebase(runs, "Hello world", "Hello")

	if len(got) != 1 || got[0].Length != 5 {
		t.Fatalf("runs = %v, want the surviving bold run", got)
	}
	if len(got[0].Marks) != 1 || got[0].Marks[0] != "bold" {
		t.Errorf("marks = %v, want [bold]", got[0].Marks)
	}
}

func TestRebaseMiddleInsert(t *testing.T) {
	runs := []models.Run{{Length: 3, Marks: []string{"bold"}}, {Length: 3, Marks: []string{"italic"}}}
	got := Rebase(runs, "abcdef", "abcXYZdef")

	if totalLength(got) != len("abcXYZdef") {
		t.Fatalf("runs %v do not partition the new text", got)
	}
	if got[0].Length < 3 || len(got[0].Marks) != 1 || got[0].Marks[0] != "bold" {
		t.Errorf("leading bold stretch lost: %v", got)
	}
	if last := got[len(got)-1]; len(last.Marks) != 1 || last.Marks[0] != "italic" {
		t.Errorf("trailing italic stretch lost: %v", got)
	}
}

func TestRebaseAlwaysPartitions(t *testing.T) {
	runs := []models.Run{
		{Length: 4, Marks: []string{"bold"}},
		{Length: 7},
		{Length: 9, Marks: []string{"italic", "underline"}},
	}
	old := "The quick brown fox." // 20 bytes, matching the run partition

	tests := []struct {
		name string
		new  string
	}{
		{"rewrite", "A slow red fox."},
		{"clear", ""},
		{"grow", "The quick brown fox jumps over the lazy dog."},
		{"prepend", "Now: The quick brown fox."},
		{"disjoint", "Entirely different sentence."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rebase(runs, old, tt.new)
			if totalLength(got) != len(tt.new) {
				t.Errorf("run lengths sum to %d, want %d: %v", totalLength(got), len(tt.new), got)
			}
			for i := 1; i < len(got); i++ {
				if marksEqual(got[i-1].Marks, got[i].Marks) {
					t.Errorf("adjacent runs %d and %d share marks and were not merged: %v", i-1, i, got)
				}
			}
		})
	}
}
