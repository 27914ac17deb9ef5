package insight

import (
	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/emotion"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/rank"
)

// Themes is the recurring themes block of the psychological patterns view.
type Themes struct {
	Count  int            `json:"count"`
	Themes map[string]int `json:"themes"`
}

// Balance is the per-record valence distribution.
type Balance struct {
	Distribution map[string]int `json:"distribution"`
	Dominant     string         `json:"dominant_emotion"`
}

// Patterns is the psychological patterns view of a journal.
type Patterns struct {
	RecurringThemes   Themes   `json:"recurring_themes"`
	EmotionalPatterns Balance  `json:"emotional_patterns"`
	Insights          []string `json:"insights"`
}

// Patterns summarizes recurring themes and the balance of positively and
// negatively toned records. A record's tone is the sign of the summed
// valence of its emotion labels.
func (a *Aggregator) Patterns(records []dream.Record, classifier *emotion.Classifier) *Patterns {
	themes := a.Themes(records)
	recurring := 0
	for _, c := range themes.Top(0) {
		if c.Count > 1 {
			recurring++
		}
	}
	top := make(map[string]int)
	for _, c := range themes.Top(themeCandidates) {
		if c.Count > 1 {
			top[c.Label] = c.Count
		}
	}

	tones := rank.NewCounter()
	for i, r := range records {
		tones.Add(a.tone(classifier.Classify(i, r).Labels))
	}
	dominant := lexicon.Neutral
	if best := tones.Top(1); len(best) > 0 {
		dominant = best[0].Label
	}

	p := &Patterns{
		RecurringThemes:   Themes{Count: recurring, Themes: top},
		EmotionalPatterns: Balance{Distribution: tones.Map(), Dominant: dominant},
		Insights:          []string{},
	}
	if recurring > 5 {
		p.Insights = append(p.Insights, "You have many recurring themes, suggesting deep engagement with specific life areas.")
	}
	if tones.Get(lexicon.Negative) > tones.Get(lexicon.Positive) {
		p.Insights = append(p.Insights, "Your dreams show more negative emotions. Consider stress management techniques.")
	}
	return p
}

func (a *Aggregator) tone(labels []string) string {
	sum := 0
	for _, l := range labels {
		sum += a.lex.Valence(l)
	}
	switch {
	case sum > 0:
		return lexicon.Positive
	case sum < 0:
		return lexicon.Negative
	}
	return lexicon.Neutral
}
