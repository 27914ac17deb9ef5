// Package symbol tracks how recurring dream symbols develop over time.
package symbol

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/textnorm"
)

// Frequency trends.
const (
	Increasing = "increasing"
	Decreasing = "decreasing"
	Stable     = "stable"
)

const (
	windowSize      = 5
	maxContextWords = 10
	topEvolving     = 10
	insightSources  = 3

	// Diversity is distinct tones minus one, and there are three tones, so
	// 2 is the highest value and marks a symbol seen in every tone.
	diverseContexts = 2
)

// Appearance is one record in which a symbol was found.
type Appearance struct {
	Date             string   `json:"date"`
	Context          string   `json:"context"`
	EvolutionStage   int      `json:"evolution_stage"`
	WordCount        int      `json:"dream_word_count"`
	Frequency        int      `json:"frequency_in_dream"`
	ContextWords     []string `json:"context_words"`
	EmotionalContext string   `json:"emotional_context"`
}

// FrequencyPoint is a symbol's frequency in one record.
type FrequencyPoint struct {
	Date       string  `json:"date"`
	Frequency  int     `json:"frequency"`
	Normalized float64 `json:"normalized_frequency"`
}

// Metrics describe a symbol seen in at least two records.
type Metrics struct {
	FrequencyTrend   string  `json:"frequency_trend"`
	ContextDiversity int     `json:"context_diversity"`
	TemporalSpread   int     `json:"temporal_spread"`
	EvolutionScore   float64 `json:"evolution_score"`
}

// History is everything recorded about one symbol.
type History struct {
	Category          string           `json:"category"`
	AppearanceCount   int              `json:"appearance_count"`
	Appearances       []Appearance     `json:"appearances"`
	FrequencyTracking []FrequencyPoint `json:"frequency_tracking"`
	Metrics           *Metrics         `json:"evolution_metrics,omitempty"`
}

// Ranked is an entry of most_evolving_symbols.
type Ranked struct {
	Symbol          string `json:"symbol"`
	Category        string `json:"category"`
	AppearanceCount int    `json:"appearance_count"`
	Metrics
}

// Evolution is the symbol section of a report.
type Evolution struct {
	SymbolsTracked int                 `json:"symbols_tracked"`
	Symbols        map[string]*History `json:"symbol_evolution"`
	MostEvolving   []Ranked            `json:"most_evolving_symbols"`
	Insights       []string            `json:"evolution_insights"`
	CategoryCounts map[string]int      `json:"category_counts"`
}

// Occurrence is a symbol found in one record, before chronological folding.
type Occurrence struct {
	Symbol       int
	Frequency    int
	WordCount    int
	ContextWords []string
	Tone         string
}

type matcher struct {
	word     string
	category string
	singular string
	plural   string
}

// Tracker finds lexicon symbols in records and folds their histories.
type Tracker struct {
	lex      *lexicon.Store
	symbols  []matcher
	toneSets []map[string]bool
}

// NewTracker creates a Tracker.
func NewTracker(lex *lexicon.Store) *Tracker {
	t := &Tracker{lex: lex}
	for _, s := range lex.Symbols() {
		t.symbols = append(t.symbols, matcher{
			word:     s.Word,
			category: s.Category,
			singular: strings.TrimSuffix(s.Word, "s"),
			plural:   s.Word + "s",
		})
	}
	for _, tone := range lex.Tones() {
		set := make(map[string]bool, len(tone.Words))
		for _, w := range tone.Words {
			set[w] = true
		}
		t.toneSets = append(t.toneSets, set)
	}
	return t
}

// matches reports whether word w counts as an occurrence of the symbol.
func (m matcher) matches(w string) bool {
	return w == m.word || strings.Contains(w, m.word) || w == m.singular || w == m.plural
}

// Scan finds every vocabulary symbol in one record, in vocabulary order.
func (t *Tracker) Scan(rec dream.Record) []Occurrence {
	words := textnorm.Tokens(rec.CombinedText())
	var out []Occurrence
	for i, m := range t.symbols {
		var positions []int
		for p, w := range words {
			if m.matches(w) {
				positions = append(positions, p)
			}
		}
		if len(positions) == 0 {
			continue
		}
		ctx := t.contextWords(words, positions)
		out = append(out, Occurrence{
			Symbol:       i,
			Frequency:    len(positions),
			WordCount:    len(words),
			ContextWords: ctx,
			Tone:         t.tone(ctx),
		})
	}
	return out
}

// contextWords collects meaningful words within five positions of each
// occurrence, excluding the occurrence itself, up to ten words.
func (t *Tracker) contextWords(words []string, positions []int) []string {
	out := []string{}
	for _, p := range positions {
		lo := max(0, p-windowSize)
		hi := min(len(words), p+windowSize+1)
		for i := lo; i < hi; i++ {
			if i == p || !textnorm.Meaningful(words[i], t.lex) {
				continue
			}
			out = append(out, words[i])
			if len(out) == maxContextWords {
				return out
			}
		}
	}
	return out
}

// tone picks the emotional-context category with the most hits among ctx.
// Ties go to the earlier category; no hits at all is neutral.
func (t *Tracker) tone(ctx []string) string {
	best, bestHits := lexicon.Neutral, 0
	for i, tone := range t.lex.Tones() {
		hits := 0
		for _, w := range ctx {
			if t.toneSets[i][w] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = tone.ID, hits
		}
	}
	return best
}

// Track folds per-record scans, indexed like records, into an Evolution.
// Records are visited oldest first.
func (t *Tracker) Track(records []dream.Record, scans [][]Occurrence) *Evolution {
	histories := make(map[string]*History)
	for _, idx := range dream.Chronological(records) {
		rec := records[idx]
		for _, occ := range scans[idx] {
			m := t.symbols[occ.Symbol]
			h, ok := histories[m.word]
			if !ok {
				h = &History{Category: m.category}
				histories[m.word] = h
			}
			h.AppearanceCount++
			h.Appearances = append(h.Appearances, Appearance{
				Date:             rec.Date(),
				Context:          rec.Snippet(),
				EvolutionStage:   h.AppearanceCount,
				WordCount:        occ.WordCount,
				Frequency:        occ.Frequency,
				ContextWords:     occ.ContextWords,
				EmotionalContext: occ.Tone,
			})
			h.FrequencyTracking = append(h.FrequencyTracking, FrequencyPoint{
				Date:       rec.Date(),
				Frequency:  occ.Frequency,
				Normalized: float64(occ.Frequency) / float64(max(occ.WordCount, 1)),
			})
		}
	}

	ev := &Evolution{
		SymbolsTracked: len(histories),
		Symbols:        histories,
		MostEvolving:   []Ranked{},
		CategoryCounts: make(map[string]int),
	}
	for _, m := range t.symbols {
		h, ok := histories[m.word]
		if !ok {
			continue
		}
		ev.CategoryCounts[m.category]++
		h.Metrics = metrics(h)
		if h.Metrics != nil {
			ev.MostEvolving = append(ev.MostEvolving, Ranked{
				Symbol:          m.word,
				Category:        m.category,
				AppearanceCount: h.AppearanceCount,
				Metrics:         *h.Metrics,
			})
		}
	}

	evolving := len(ev.MostEvolving)
	slices.SortStableFunc(ev.MostEvolving, func(a, b Ranked) int {
		return cmp.Compare(b.EvolutionScore, a.EvolutionScore)
	})
	if len(ev.MostEvolving) > topEvolving {
		ev.MostEvolving = ev.MostEvolving[:topEvolving]
	}
	ev.Insights = insights(ev.MostEvolving, evolving)
	return ev
}

// Analyze scans every record and tracks the result.
func (t *Tracker) Analyze(records []dream.Record) *Evolution {
	scans := make([][]Occurrence, len(records))
	for i, r := range records {
		scans[i] = t.Scan(r)
	}
	return t.Track(records, scans)
}

// metrics returns nil for symbols seen in fewer than two records.
func metrics(h *History) *Metrics {
	if h.AppearanceCount < 2 {
		return nil
	}

	first := h.FrequencyTracking[0].Frequency
	last := h.FrequencyTracking[len(h.FrequencyTracking)-1].Frequency
	trend := Stable
	switch {
	case last > first:
		trend = Increasing
	case last < first:
		trend = Decreasing
	}

	tones := make(map[string]struct{})
	dates := make(map[string]struct{})
	for _, a := range h.Appearances {
		tones[a.EmotionalContext] = struct{}{}
		dates[a.Date] = struct{}{}
	}

	m := &Metrics{
		FrequencyTrend:   trend,
		ContextDiversity: len(tones) - 1,
		TemporalSpread:   len(dates),
	}
	trendFactor := 0.5
	if trend == Increasing {
		trendFactor = 1
	}
	m.EvolutionScore = 0.3*float64(h.AppearanceCount) +
		0.4*float64(m.ContextDiversity) +
		0.2*float64(m.TemporalSpread) +
		0.1*trendFactor
	return m
}

func insights(top []Ranked, evolving int) []string {
	out := []string{}
	for _, r := range top[:min(insightSources, len(top))] {
		if r.FrequencyTrend == Increasing {
			out = append(out, fmt.Sprintf("The symbol '%s' is appearing more often in your recent dreams, suggesting it is gaining importance.", r.Symbol))
		}
		if r.ContextDiversity >= diverseContexts {
			out = append(out, fmt.Sprintf("'%s' appears in a wide range of emotional contexts, so its meaning for you may be shifting.", r.Symbol))
		}
		if r.TemporalSpread > 5 {
			out = append(out, fmt.Sprintf("'%s' has persisted across many dreams over time and may represent a core theme in your inner life.", r.Symbol))
		}
	}
	switch {
	case evolving > 5:
		out = append(out, "Your dream symbols show rich evolution, with many recurring images developing over time.")
	case evolving > 2:
		out = append(out, "Several symbols recur in your dreams and are beginning to form patterns.")
	}
	return out
}
