package emotion

import "github.com/samjhill/dream-companion/internal/lexicon"

// Stability classifications.
const (
	InsufficientData    = "insufficient_data"
	EmotionallyBalanced = "emotionally_balanced"
	ModeratelyStable    = "moderately_stable"
	EmotionallyFocused  = "emotionally_focused"
	EmotionallyVolatile = "emotionally_volatile"
)

// Trend directions.
const (
	TrendStable             = "stable"
	TrendIncreasingPositive = "increasing_positive"
	TrendIncreasingNegative = "increasing_negative"
)

const (
	trendWindow    = 3
	trendThreshold = 0.5
)

// Stability describes how settled a sequence of emotion labels is.
type Stability struct {
	Score          float64  `json:"stability_score"`
	Classification string   `json:"classification"`
	Diversity      float64  `json:"emotional_diversity"`
	Volatility     float64  `json:"volatility"`
	Consistency    float64  `json:"pattern_consistency"`
	Trend          string   `json:"trend"`
	Insights       []string `json:"insights"`
}

// AnalyzeStability scores a flattened label sequence. Labels are valued for
// the trend with lex.Valence.
func AnalyzeStability(labels []string, lex *lexicon.Store) *Stability {
	n := len(labels)
	if n == 0 {
		return &Stability{
			Classification: InsufficientData,
			Trend:          TrendStable,
			Insights:       []string{"Not enough emotional content has been recorded yet to assess emotional stability. Keep journaling your dreams."},
		}
	}

	s := &Stability{
		Diversity:   diversity(labels),
		Volatility:  volatility(labels),
		Consistency: consistency(labels),
		Trend:       valenceTrend(labels, lex),
	}
	s.Score = 0.3*s.Diversity + 0.4*(1-s.Volatility) + 0.3*s.Consistency
	s.Classification = classify(s.Score)
	s.Insights = stabilityInsights(s, n)
	return s
}

func diversity(labels []string) float64 {
	distinct := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		distinct[l] = struct{}{}
	}
	return float64(len(distinct)) / float64(len(labels))
}

func volatility(labels []string) float64 {
	if len(labels) < 2 {
		return 0
	}
	changes := 0
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[i-1] {
			changes++
		}
	}
	return float64(changes) / float64(len(labels)-1)
}

// consistency is the share of distinct label trigrams that occur more than once.
func consistency(labels []string) float64 {
	if len(labels) < 3 {
		return 0
	}
	seen := make(map[[3]string]int)
	for i := 0; i+3 <= len(labels); i++ {
		seen[[3]string{labels[i], labels[i+1], labels[i+2]}]++
	}
	repeated := 0
	for _, c := range seen {
		if c > 1 {
			repeated++
		}
	}
	return float64(repeated) / float64(len(seen))
}

func valenceTrend(labels []string, lex *lexicon.Store) string {
	w := min(trendWindow, len(labels))
	diff := meanValence(labels[len(labels)-w:], lex) - meanValence(labels[:w], lex)
	switch {
	case diff > trendThreshold:
		return TrendIncreasingPositive
	case diff < -trendThreshold:
		return TrendIncreasingNegative
	}
	return TrendStable
}

func meanValence(labels []string, lex *lexicon.Store) float64 {
	sum := 0
	for _, l := range labels {
		sum += lex.Valence(l)
	}
	return float64(sum) / float64(len(labels))
}

func classify(score float64) string {
	switch {
	case score > 0.7:
		return EmotionallyBalanced
	case score > 0.4:
		return ModeratelyStable
	case score > 0.2:
		return EmotionallyFocused
	}
	return EmotionallyVolatile
}

func stabilityInsights(s *Stability, n int) []string {
	insights := []string{}
	if s.Volatility > 0.7 {
		insights = append(insights, "Your dream emotions shift frequently, which can reflect a period of change or unsettled feelings.")
	}
	if s.Volatility < 0.3 && n >= 2 {
		insights = append(insights, "Your dream emotions are fairly consistent from one dream to the next.")
	}
	if s.Diversity > 0.6 {
		insights = append(insights, "You experience a wide range of emotions in your dreams, a sign of rich emotional processing.")
	}
	if s.Consistency > 0.5 {
		insights = append(insights, "Recurring emotional sequences appear in your dreams and may point to patterns worth reflecting on.")
	}
	switch s.Trend {
	case TrendIncreasingPositive:
		insights = append(insights, "Your recent dreams carry more positive emotion than your earlier ones.")
	case TrendIncreasingNegative:
		insights = append(insights, "Your recent dreams carry more negative emotion than your earlier ones. Consider what may be weighing on you.")
	}
	return insights
}
