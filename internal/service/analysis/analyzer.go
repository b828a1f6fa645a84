package analysis

import (
	"context"
	"log/slog"
	"strings"

	"redline/internal/domain/models"
	"redline/internal/domain/services"
)

// KeywordAnalyzer is the in-process reference implementation of
// services.Analyzer. It matches sentences against the embedded clause
// taxonomy. Production deployments replace it with a remote pipeline client;
// everything downstream only sees the Analyzer interface.
type KeywordAnalyzer struct {
	taxonomy *Taxonomy
	logger   *slog.Logger
}

// compile-time check
var _ services.Analyzer = (*KeywordAnalyzer)(nil)

// NewKeywordAnalyzer creates an analyzer over the loaded taxonomy.
func NewKeywordAnalyzer(taxonomy *Taxonomy, logger *slog.Logger) *KeywordAnalyzer {
	return &KeywordAnalyzer{taxonomy: taxonomy, logger: logger}
}

// DoclevelProcess scans the full sentence list for agreement-type signals and
// derives the involved parties from the clauses it finds.
func (a *KeywordAnalyzer) DoclevelProcess(ctx context.Context, sentences []string) (*models.DoclevelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	joined := strings.ToLower(strings.Join(sentences, " "))

	agreementType := ""
	bestHits := 0
	for _, def := range a.taxonomy.Agreements() {
		hits := 0
		for _, signal := range def.Signals {
			if strings.Contains(joined, signal) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			agreementType = def.Name
		}
	}

	seen := map[models.Party]bool{}
	var parties []models.Party
	for _, def := range a.taxonomy.Clauses() {
		party := models.Party(def.Party)
		if party == models.PartyNone || seen[party] {
			continue
		}
		for _, kw := range def.Keywords {
			if strings.Contains(joined, kw) {
				seen[party] = true
				parties = append(parties, party)
				break
			}
		}
	}
	if len(parties) == 0 {
		parties = []models.Party{models.PartyBoth}
	}

	a.logger.Debug("doclevel analysis complete",
		"sentences", len(sentences),
		"agreement_type", agreementType,
		"parties", len(parties))

	return &models.DoclevelResult{Parties: parties, AgreementType: agreementType}, nil
}

// SentlevelProcess matches each sentence against the clause taxonomy and
// emits keyword annotations plus a suggested clause tag for the strongest
// match. Output is index-aligned with the input.
func (a *KeywordAnalyzer) SentlevelProcess(ctx context.Context, sentences []string, parties []models.Party) (*models.SentlevelResult, error) {
	result := &models.SentlevelResult{
		Sentences: make([]models.SentlevelSentence, len(sentences)),
	}

	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lower := strings.ToLower(sentence)
		var annotations []models.Annotation
		var best *ClauseDef
		bestHits := 0

		for _, def := range a.taxonomy.Clauses() {
			def := def
			hits := 0
			for _, kw := range def.Keywords {
				if strings.Contains(lower, kw) {
					hits++
					annotations = append(annotations, models.Annotation{
						Type:         models.AnnotationKeyword,
						Label:        kw,
						Party:        models.Party(def.Party),
						ClassifierID: classifierID,
					})
				}
			}
			if hits > bestHits {
				bestHits = hits
				best = &def
			}
		}

		if best != nil {
			annotations = append(annotations, models.Annotation{
				Type:         models.AnnotationSuggested,
				Label:        best.Label,
				Sublabel:     best.Sublabel,
				Party:        models.Party(best.Party),
				ClassifierID: classifierID,
			})
		}

		result.Sentences[i] = models.SentlevelSentence{Annotations: annotations}
	}

	return result, nil
}

// classifierID identifies this analyzer's output in annotation provenance.
const classifierID = "keyword-v1"
