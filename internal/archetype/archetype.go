// Package archetype detects recurring dream archetypes by keyword containment.
package archetype

import (
	"strings"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/rank"
)

// topN is how many archetypes most_common_archetypes lists.
const topN = 5

// Appearance is one record in which an archetype was found.
type Appearance struct {
	Date    string `json:"date"`
	Context string `json:"context"`
}

// Detail describes one archetype across the corpus.
type Detail struct {
	Count       int          `json:"count"`
	Meaning     string       `json:"meaning"`
	Positive    string       `json:"positive_aspects"`
	Negative    string       `json:"negative_aspects"`
	Appearances []Appearance `json:"appearances"`
}

// Hit is a single (record, archetype) match.
type Hit struct {
	Archetype string
	Appearance
}

// Analysis is the archetype section of a report.
type Analysis struct {
	MostCommon      []rank.Count      `json:"most_common_archetypes"`
	Details         map[string]Detail `json:"archetype_details"`
	TotalArchetypes int               `json:"total_archetypes_found"`
}

// Classifier matches records against the lexicon's archetypes.
type Classifier struct {
	lex *lexicon.Store
}

// NewClassifier creates a Classifier.
func NewClassifier(lex *lexicon.Store) *Classifier {
	return &Classifier{lex: lex}
}

// Classify returns the archetypes whose keywords occur anywhere in the
// record's combined text, in lexicon order. Matching is by substring, so
// "oceanography" counts as water.
func (c *Classifier) Classify(rec dream.Record) []Hit {
	text := rec.CombinedText()
	var hits []Hit
	for _, a := range c.lex.Archetypes() {
		if !containsAny(text, a.Keywords) {
			continue
		}
		hits = append(hits, Hit{
			Archetype:  a.ID,
			Appearance: Appearance{Date: rec.Date(), Context: rec.Snippet()},
		})
	}
	return hits
}

// Aggregate folds per-record hits, given in record order, into an Analysis.
func (c *Classifier) Aggregate(perRecord [][]Hit) *Analysis {
	counter := rank.NewCounter()
	details := make(map[string]Detail)
	for _, hits := range perRecord {
		for _, h := range hits {
			counter.Add(h.Archetype)
			d, ok := details[h.Archetype]
			if !ok {
				a, _ := c.lex.Archetype(h.Archetype)
				d = Detail{Meaning: a.Meaning, Positive: a.Positive, Negative: a.Negative}
			}
			d.Count++
			d.Appearances = append(d.Appearances, h.Appearance)
			details[h.Archetype] = d
		}
	}

	return &Analysis{
		MostCommon:      counter.TopBy(topN, c.lex.ArchetypeRank),
		Details:         details,
		TotalArchetypes: counter.Len(),
	}
}

// Analyze classifies every record and aggregates the result.
func (c *Classifier) Analyze(records []dream.Record) *Analysis {
	perRecord := make([][]Hit, len(records))
	for i, r := range records {
		perRecord[i] = c.Classify(r)
	}
	return c.Aggregate(perRecord)
}

// Count returns how many records contained archetype id.
func (a *Analysis) Count(id string) int {
	return a.Details[id].Count
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
