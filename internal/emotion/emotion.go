// Package emotion labels dreams with emotions, scores their intensity and
// measures how stable the emotional sequence is across a journal.
package emotion

import (
	"strings"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/rank"
	"github.com/samjhill/dream-companion/internal/textnorm"
)

const (
	dominantN = 3

	densityScale   = 10.0
	densityWeight  = 0.4
	strengthWeight = 0.4
	bonusPerLabel  = 0.1
	maxBonus       = 0.3
)

// Observation is the emotional reading of one record.
type Observation struct {
	RecordIndex int      `json:"record_index"`
	Labels      []string `json:"labels"`
	Intensity   float64  `json:"intensity"`
}

// Range is a closed interval of intensities.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IntensityTrend summarizes intensities across the corpus, in record order.
type IntensityTrend struct {
	Average float64   `json:"average_intensity"`
	Range   Range     `json:"intensity_range"`
	Levels  []float64 `json:"intensity_levels"`
}

// Patterns is the emotional section of a report.
type Patterns struct {
	Dominant     []rank.Count   `json:"dominant_emotions"`
	Distribution map[string]int `json:"emotion_distribution"`
	Intensity    IntensityTrend `json:"emotional_intensity_trend"`
	Stability    *Stability     `json:"emotional_stability"`
}

// Classifier labels records using the lexicon's emotion tables.
type Classifier struct {
	lex *lexicon.Store
}

// NewClassifier creates a Classifier.
func NewClassifier(lex *lexicon.Store) *Classifier {
	return &Classifier{lex: lex}
}

// Classify labels a record from its lowercase content. Every emotion with a
// keyword occurring as a substring is a label. With none, the record gets a
// single sentiment label from the fallback vote.
func (c *Classifier) Classify(index int, rec dream.Record) Observation {
	text := strings.ToLower(rec.Content)

	var labels []string
	for _, e := range c.lex.Emotions() {
		for _, k := range e.Keywords {
			if strings.Contains(text, k) {
				labels = append(labels, e.ID)
				break
			}
		}
	}
	if len(labels) == 0 {
		labels = []string{c.Sentiment(text)}
	}

	return Observation{
		RecordIndex: index,
		Labels:      labels,
		Intensity:   c.Intensity(rec.Content, len(labels)),
	}
}

// Sentiment votes positive, negative or neutral by counting substring
// occurrences of the sentiment word lists. Equal non-zero counts are positive.
func (c *Classifier) Sentiment(text string) string {
	s := c.lex.Sentiment()
	pos := countAll(text, s.Positive)
	neg := countAll(text, s.Negative)
	switch {
	case neg > pos && neg > 0:
		return lexicon.Negative
	case pos > 0 || neg > 0:
		return lexicon.Positive
	}
	return lexicon.Neutral
}

// Intensity scores content in [0, 1] from the density and average strength
// of weighted emotion words, plus a small bonus per distinct label.
func (c *Classifier) Intensity(content string, labels int) float64 {
	tokens := textnorm.Fields(content)
	if len(tokens) == 0 {
		return 0
	}

	var hits int
	var sum float64
	for _, tok := range tokens {
		if w, ok := c.lex.IntensityWeight(tok); ok {
			hits++
			sum += w
		}
	}
	if hits == 0 {
		return 0
	}

	density := min(float64(hits)/float64(len(tokens))*densityScale, 1)
	strength := sum / float64(hits)
	bonus := min(bonusPerLabel*float64(labels), maxBonus)
	return clamp(densityWeight*density + strengthWeight*strength + bonus)
}

// Aggregate folds observations, given in record order, into Patterns.
func (c *Classifier) Aggregate(obs []Observation) *Patterns {
	counter := rank.NewCounter()
	var labels []string
	levels := make([]float64, 0, len(obs))
	for _, o := range obs {
		for _, l := range o.Labels {
			counter.Add(l)
			labels = append(labels, l)
		}
		levels = append(levels, o.Intensity)
	}

	return &Patterns{
		Dominant:     counter.TopBy(dominantN, c.lex.LabelRank),
		Distribution: counter.Map(),
		Intensity:    trend(levels),
		Stability:    AnalyzeStability(labels, c.lex),
	}
}

// Analyze classifies every record and aggregates the result.
func (c *Classifier) Analyze(records []dream.Record) *Patterns {
	obs := make([]Observation, len(records))
	for i, r := range records {
		obs[i] = c.Classify(i, r)
	}
	return c.Aggregate(obs)
}

// DominantEmotion returns the top label, or neutral when there is none.
func (p *Patterns) DominantEmotion() string {
	if len(p.Dominant) == 0 {
		return lexicon.Neutral
	}
	return p.Dominant[0].Label
}

func trend(levels []float64) IntensityTrend {
	t := IntensityTrend{Levels: levels}
	if len(levels) == 0 {
		return t
	}
	t.Range = Range{Min: levels[0], Max: levels[0]}
	var sum float64
	for _, l := range levels {
		sum += l
		t.Range.Min = min(t.Range.Min, l)
		t.Range.Max = max(t.Range.Max, l)
	}
	t.Average = sum / float64(len(levels))
	return t
}

func countAll(text string, words []string) int {
	n := 0
	for _, w := range words {
		if w != "" {
			n += strings.Count(text, w)
		}
	}
	return n
}

func clamp(v float64) float64 {
	return max(0, min(v, 1))
}
