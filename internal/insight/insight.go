// Package insight turns analysis results into plain-language insights and
// recommendations.
package insight

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samjhill/dream-companion/internal/archetype"
	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/emotion"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/rank"
	"github.com/samjhill/dream-companion/internal/textnorm"
)

const (
	themeCandidates = 10
	themesReported  = 5

	richJournal    = 20
	steadyJournal  = 10
	vividLength    = 500
	detailedLength = 200

	waterThreshold  = 2
	flyingThreshold = 1
)

var emotionAdvice = map[string]string{
	"fear":           "Fear features strongly in your dreams. Grounding practices such as slow breathing before bed may help you feel safer.",
	"joy":            "Joy is prominent in your dreams. Notice what brings you this feeling and invite more of it into your waking life.",
	"sadness":        "Sadness appears often in your dreams. Giving yourself room to acknowledge difficult feelings, or talking with someone you trust, can help.",
	"anger":          "Anger surfaces in your dreams. Physical activity or expressive writing can be healthy outlets for frustration.",
	"peace":          "Your dreams are often peaceful. An evening routine that supports this calm can reinforce restful sleep.",
	"love":           "Love and connection run through your dreams. Consider nurturing the relationships that matter most to you.",
	"surprise":       "Surprise is common in your dreams, which may reflect adapting to change. Reflect on recent unexpected events.",
	"disgust":        "Disgust appears in your dreams. It can point to situations or boundaries you want to reassess.",
	lexicon.Negative: "Consider incorporating stress-reduction techniques like meditation or journaling into your daily routine.",
}

// Aggregator derives insight and recommendation text.
type Aggregator struct {
	lex *lexicon.Store
}

// NewAggregator creates an Aggregator.
func NewAggregator(lex *lexicon.Store) *Aggregator {
	return &Aggregator{lex: lex}
}

// Themes counts meaningful summary words across records.
func (a *Aggregator) Themes(records []dream.Record) *rank.Counter {
	c := rank.NewCounter()
	for _, r := range records {
		for w := range textnorm.Normalize(r.Summary, a.lex) {
			c.Add(w)
		}
	}
	return c
}

// RecurringThemes returns up to n theme words that occur more than once.
func (a *Aggregator) RecurringThemes(records []dream.Record, n int) []rank.Count {
	var out []rank.Count
	for _, c := range a.Themes(records).Top(n) {
		if c.Count > 1 {
			out = append(out, c)
		}
	}
	return out
}

// PersonalInsights describes journal engagement, recurring themes and how
// vivid the entries are, in that order.
func (a *Aggregator) PersonalInsights(records []dream.Record) []string {
	insights := []string{}

	switch n := len(records); {
	case n > richJournal:
		insights = append(insights, "You have a rich dream life with many recorded experiences, suggesting strong self-awareness and introspection.")
	case n > steadyJournal:
		insights = append(insights, "Your dream journal shows consistent engagement with your inner world, indicating good self-reflection habits.")
	default:
		insights = append(insights, "You're beginning your dream journey. Regular recording will reveal fascinating patterns over time.")
	}

	themes := a.RecurringThemes(records, themeCandidates)
	if len(themes) > 0 {
		words := make([]string, 0, themesReported)
		for _, t := range themes[:min(themesReported, len(themes))] {
			words = append(words, t.Label)
		}
		insights = append(insights, fmt.Sprintf(
			"Recurring themes in your dreams include: %s. These may indicate areas of your life that need attention.",
			strings.Join(words, ", "),
		))
	}

	if len(records) > 0 {
		total := 0
		for _, r := range records {
			total += utf8.RuneCountInString(r.Content)
		}
		switch avg := float64(total) / float64(len(records)); {
		case avg > vividLength:
			insights = append(insights, "Your dreams are detailed and vivid, suggesting strong imagination and emotional depth.")
		case avg > detailedLength:
			insights = append(insights, "Your dreams show good detail, indicating active engagement with your subconscious mind.")
		}
	}
	return insights
}

// Recommendations suggests next steps from journal size, the dominant
// emotion and frequent archetypes.
func (a *Aggregator) Recommendations(records []dream.Record, emotions *emotion.Patterns, archetypes *archetype.Analysis) []string {
	recs := []string{}
	if len(records) < steadyJournal {
		recs = append(recs, "Try to record your dreams more frequently to build a comprehensive understanding of your patterns.")
	}
	if emotions != nil {
		if advice, ok := emotionAdvice[emotions.DominantEmotion()]; ok {
			recs = append(recs, advice)
		}
	}
	if archetypes != nil {
		if archetypes.Count("water") > waterThreshold {
			recs = append(recs, "Water appears frequently in your dreams. Consider exploring your emotional landscape through therapy or creative expression.")
		}
		if archetypes.Count("flying") > flyingThreshold {
			recs = append(recs, "Flying dreams suggest a desire for freedom. Reflect on what limitations you'd like to overcome in your waking life.")
		}
	}
	return recs
}
