// Package analysis hosts the built-in clause analyzer and the background
// analysis dispatcher. The clause taxonomy ships as embedded YAML so the
// binary is self-contained; swapping in a remote pipeline only requires a
// different services.Analyzer.
package analysis

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy/*.yaml
var taxonomyFiles embed.FS

// ClauseDef describes one clause category: the label applied when it matches,
// the keyword cues that trigger it, and which party the clause usually binds.
type ClauseDef struct {
	Label    string   `yaml:"label"`
	Sublabel string   `yaml:"sublabel,omitempty"`
	Party    string   `yaml:"party"`
	Keywords []string `yaml:"keywords"`
}

// AgreementDef describes an agreement type and the phrases that signal it.
type AgreementDef struct {
	Name    string   `yaml:"name"`
	Signals []string `yaml:"signals"`
}

type taxonomyFile struct {
	Clauses    []ClauseDef    `yaml:"clauses"`
	Agreements []AgreementDef `yaml:"agreements"`
}

// Taxonomy is the loaded clause registry used by the keyword analyzer.
type Taxonomy struct {
	mu         sync.RWMutex
	clauses    []ClauseDef
	agreements []AgreementDef
}

// LoadTaxonomy loads the embedded taxonomy YAML files.
func LoadTaxonomy() (*Taxonomy, error) {
	t := &Taxonomy{}
	for _, name := range []string{"clauses", "agreements"} {
		if err := t.loadFile(name); err != nil {
			return nil, fmt.Errorf("failed to load %s taxonomy: %w", name, err)
		}
	}
	return t, nil
}

func (t *Taxonomy) loadFile(name string) error {
	filename := fmt.Sprintf("taxonomy/%s.yaml", name)
	data, err := taxonomyFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	t.mu.Lock()
	t.clauses = append(t.clauses, file.Clauses...)
	t.agreements = append(t.agreements, file.Agreements...)
	t.mu.Unlock()

	return nil
}

// Clauses returns the clause definitions in YAML order.
func (t *Taxonomy) Clauses() []ClauseDef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clauses
}

// Agreements returns the agreement-type definitions in YAML order.
func (t *Taxonomy) Agreements() []AgreementDef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agreements
}
