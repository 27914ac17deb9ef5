// Package temporal classifies dreams as oriented to the past, present or
// future and extracts the connectives that relate events in time.
package temporal

import (
	"slices"
	"strings"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/textnorm"
)

// Cue weights.
const (
	explicitWeight = 2
	implicitWeight = 1
	phraseWeight   = 3
)

const (
	confidenceScale = 10.0
	contextWindow   = 3
	listedDreams    = 10
)

// NoOrientation is reported when no record has temporal content.
const NoOrientation = "none"

// Relationship is a connective found in a record, with nearby words.
type Relationship struct {
	Type       string `json:"type"`
	Connective string `json:"connective"`
	Context    string `json:"context"`
}

// Observation is the temporal reading of one record. Period is empty when
// the record has no temporal content.
type Observation struct {
	RecordIndex   int            `json:"-"`
	Date          string         `json:"date"`
	Period        string         `json:"time_period"`
	Confidence    float64        `json:"confidence"`
	Scores        map[string]int `json:"period_scores"`
	Keywords      []string       `json:"keywords_found"`
	Phrases       []string       `json:"context_phrases"`
	Relationships []Relationship `json:"relationships"`
	Content       string         `json:"content"`
}

// HasTemporalContent reports whether any period cue matched.
func (o Observation) HasTemporalContent() bool { return o.Period != "" }

// Patterns is the temporal section of a report.
type Patterns struct {
	TimeRelatedCount    int            `json:"time_related_dreams_count"`
	Distribution        map[string]int `json:"temporal_distribution"`
	TimeRelated         []Observation  `json:"time_related_dreams"`
	AverageConfidence   float64        `json:"average_confidence"`
	DominantOrientation string         `json:"dominant_orientation"`
	RelationshipCounts  map[string]int `json:"relationship_counts"`
	Insights            []string       `json:"temporal_insights"`
}

type periodCues struct {
	id       string
	explicit map[string]bool
	implicit map[string]bool
	phrases  []string
}

type connective struct {
	kind  string
	text  string
	words []string
}

// Classifier scores records against the lexicon's temporal tables.
type Classifier struct {
	periods     []periodCues
	connectives []connective
}

// NewClassifier creates a Classifier.
func NewClassifier(lex *lexicon.Store) *Classifier {
	c := &Classifier{}
	for _, p := range lex.Periods() {
		c.periods = append(c.periods, periodCues{
			id:       p.ID,
			explicit: toSet(p.Explicit),
			implicit: toSet(p.Implicit),
			phrases:  p.Phrases,
		})
	}
	for _, r := range lex.Relationships() {
		for _, text := range r.Connectives {
			words := textnorm.Tokens(text)
			if len(words) == 0 {
				continue
			}
			c.connectives = append(c.connectives, connective{kind: r.ID, text: text, words: words})
		}
	}
	return c
}

// Classify scores one record. The primary period is the highest scoring
// one; ties go to the earlier period in the lexicon.
func (c *Classifier) Classify(index int, rec dream.Record) Observation {
	text := rec.CombinedText()
	tokens := textnorm.Tokens(text)

	obs := Observation{
		RecordIndex:   index,
		Date:          rec.Date(),
		Scores:        make(map[string]int, len(c.periods)),
		Keywords:      []string{},
		Phrases:       []string{},
		Relationships: c.relationships(tokens),
		Content:       rec.Snippet(),
	}

	best := 0
	for _, p := range c.periods {
		score := 0
		for _, tok := range tokens {
			if p.explicit[tok] {
				score += explicitWeight
			} else if p.implicit[tok] {
				score += implicitWeight
			} else {
				continue
			}
			if !slices.Contains(obs.Keywords, tok) {
				obs.Keywords = append(obs.Keywords, tok)
			}
		}
		for _, phrase := range p.phrases {
			if strings.Contains(text, phrase) {
				score += phraseWeight
				obs.Phrases = append(obs.Phrases, phrase)
			}
		}
		obs.Scores[p.id] = score
		if score > best {
			best = score
			obs.Period = p.id
		}
	}
	obs.Confidence = min(float64(best)/confidenceScale, 1)
	return obs
}

// relationships reports each connective found in tokens once, at its first
// occurrence, with up to three tokens of context on either side.
func (c *Classifier) relationships(tokens []string) []Relationship {
	out := []Relationship{}
	for _, conn := range c.connectives {
		i := indexOf(tokens, conn.words)
		if i < 0 {
			continue
		}
		lo := max(0, i-contextWindow)
		hi := min(len(tokens), i+len(conn.words)+contextWindow)
		out = append(out, Relationship{
			Type:       conn.kind,
			Connective: conn.text,
			Context:    strings.Join(tokens[lo:hi], " "),
		})
	}
	return out
}

// Aggregate folds observations, given in record order, into Patterns.
func (c *Classifier) Aggregate(obs []Observation) *Patterns {
	p := &Patterns{
		Distribution:        make(map[string]int, len(c.periods)),
		TimeRelated:         []Observation{},
		DominantOrientation: NoOrientation,
		RelationshipCounts:  make(map[string]int),
		Insights:            []string{},
	}
	for _, period := range c.periods {
		p.Distribution[period.id] = 0
	}
	for _, conn := range c.connectives {
		p.RelationshipCounts[conn.kind] = 0
	}

	var confidence float64
	for _, o := range obs {
		for _, r := range o.Relationships {
			p.RelationshipCounts[r.Type]++
		}
		if !o.HasTemporalContent() {
			continue
		}
		p.TimeRelatedCount++
		p.Distribution[o.Period]++
		confidence += o.Confidence
		if len(p.TimeRelated) < listedDreams {
			p.TimeRelated = append(p.TimeRelated, o)
		}
	}
	if p.TimeRelatedCount == 0 {
		return p
	}

	p.AverageConfidence = confidence / float64(p.TimeRelatedCount)
	best := 0
	for _, period := range c.periods {
		if n := p.Distribution[period.id]; n > best {
			best = n
			p.DominantOrientation = period.id
		}
	}
	p.Insights = insights(p)
	return p
}

// Analyze classifies every record and aggregates the result.
func (c *Classifier) Analyze(records []dream.Record) *Patterns {
	obs := make([]Observation, len(records))
	for i, r := range records {
		obs[i] = c.Classify(i, r)
	}
	return c.Aggregate(obs)
}

var orientationInsights = map[string]string{
	"past":    "Many of your dreams revisit the past, which often reflects processing memories or unresolved experiences.",
	"present": "Your dreams tend to center on the present, suggesting they are working through your current circumstances.",
	"future":  "Your dreams often look toward the future, which can reflect hopes and worries about what lies ahead.",
}

func insights(p *Patterns) []string {
	out := []string{}
	if s, ok := orientationInsights[p.DominantOrientation]; ok {
		out = append(out, s)
	}
	if p.RelationshipCounts["cause_effect"] > 2 {
		out = append(out, "Your dreams often link events by cause and effect, a sign that you are actively making sense of your experiences.")
	}
	return out
}

func indexOf(tokens, words []string) int {
	for i := 0; i+len(words) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(words)], words) {
			return i
		}
	}
	return -1
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
