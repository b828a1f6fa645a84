package models

// AnnotationType distinguishes how a tag got onto a revision.
type AnnotationType string

const (
	// AnnotationManual is a tag a user applied by hand.
	AnnotationManual AnnotationType = "manual"
	// AnnotationSuggested is a classifier suggestion awaiting approval.
	AnnotationSuggested AnnotationType = "suggested"
	// AnnotationGrammar is a system analysis annotation. Regenerated on
	// reanalysis and the only type allowed to duplicate.
	AnnotationGrammar AnnotationType = "grammar"
	// AnnotationKeyword is a keyword hit from the analysis pipeline.
	AnnotationKeyword AnnotationType = "keyword"
)

// Party identifies which side of the agreement a clause binds.
type Party string

const (
	PartyYou  Party = "you"
	PartyThem Party = "them"
	PartyBoth Party = "both"
	PartyNone Party = "none"
)

// Annotation is a tag attached to a revision. User is empty for
// system-applied annotations.
type Annotation struct {
	Type         AnnotationType `json:"type"`
	Label        string         `json:"label"`
	Sublabel     string         `json:"sublabel,omitempty"`
	Party        Party          `json:"party"`
	User         string         `json:"user,omitempty"`
	Approved     bool           `json:"approved"`
	ClassifierID string         `json:"classifier_id,omitempty"`
	ExperimentID string         `json:"experiment_id,omitempty"`
}

// CloneAnnotations deep-copies an annotation list.
func CloneAnnotations(anns []Annotation) []Annotation {
	return append([]Annotation(nil), anns...)
}

// AddAnnotation appends a to the revision's annotation list. For non-grammar
// types a duplicate (label, sublabel) pair is a no-op returning false;
// grammar annotations may duplicate freely.
func (r *Revision) AddAnnotation(a Annotation) bool {
	if a.Type != AnnotationGrammar {
		for _, existing := range r.Annotations {
			if existing.Type != AnnotationGrammar &&
				existing.Label == a.Label && existing.Sublabel == a.Sublabel {
				return false
			}
		}
	}
	r.Annotations = append(r.Annotations, a)
	return true
}

// RemoveAnnotation removes the first annotation matching (label, sublabel)
// and returns it, or nil when nothing matched.
func (r *Revision) RemoveAnnotation(label, sublabel string) *Annotation {
	for i, a := range r.Annotations {
		if a.Label == label && a.Sublabel == sublabel {
			removed := a
			r.Annotations = append(r.Annotations[:i], r.Annotations[i+1:]...)
			return &removed
		}
	}
	return nil
}

// StripGrammar drops system grammar annotations while preserving manual,
// suggested and keyword tags. Used when a reanalysis will regenerate them.
func StripGrammar(anns []Annotation) []Annotation {
	out := make([]Annotation, 0, len(anns))
	for _, a := range anns {
		if a.Type != AnnotationGrammar {
			out = append(out, a)
		}
	}
	return out
}
