package symbol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return NewTracker(lex)
}

func TestFlyingOverOcean(t *testing.T) {
	tr := newTestTracker(t)
	ev := tr.Analyze([]dream.Record{{
		Content:   "I was flying over the ocean, calm and at peace",
		Summary:   "flying peace",
		CreatedAt: "2024-05-01",
	}})

	require.Contains(t, ev.Symbols, "ocean")
	require.Contains(t, ev.Symbols, "flying")
	assert.Equal(t, 2, ev.SymbolsTracked)
	assert.Equal(t, "nature", ev.Symbols["ocean"].Category)
	assert.Equal(t, "activities", ev.Symbols["flying"].Category)
	assert.Equal(t, map[string]int{"nature": 1, "activities": 1}, ev.CategoryCounts)

	ocean := ev.Symbols["ocean"].Appearances[0]
	assert.Equal(t, 1, ocean.EvolutionStage)
	assert.Equal(t, 12, ocean.WordCount)
	assert.Equal(t, 1, ocean.Frequency)
	assert.Equal(t, []string{"flying", "calm", "peace", "flying"}, ocean.ContextWords)
	assert.Equal(t, lexicon.Positive, ocean.EmotionalContext)

	assert.Equal(t, 2, ev.Symbols["flying"].Appearances[0].Frequency)

	// one record means nothing has evolved yet.
	assert.Empty(t, ev.MostEvolving)
	assert.Nil(t, ev.Symbols["ocean"].Metrics)
}

func TestMatchingForms(t *testing.T) {
	tr := newTestTracker(t)

	plural := tr.Analyze([]dream.Record{{Content: "two dogs barked"}})
	assert.Contains(t, plural.Symbols, "dog")

	singular := tr.Analyze([]dream.Record{{Content: "one stair creaked"}})
	assert.Contains(t, singular.Symbols, "stairs")

	substring := tr.Analyze([]dream.Record{{Content: "a doghouse"}})
	assert.Contains(t, substring.Symbols, "dog")
}

func TestToneNeutralWithoutHits(t *testing.T) {
	tr := newTestTracker(t)
	occ := tr.Scan(dream.Record{Content: "a mirror"})
	require.Len(t, occ, 1)
	assert.Equal(t, lexicon.Neutral, occ[0].Tone)
	assert.Empty(t, occ[0].ContextWords)
}

func TestToneTieGoesToPositive(t *testing.T) {
	tr := newTestTracker(t)
	occ := tr.Scan(dream.Record{Content: "happy mirror afraid"})
	require.Len(t, occ, 1)
	assert.Equal(t, lexicon.Positive, occ[0].Tone)
}

func TestContextWordsCapped(t *testing.T) {
	tr := newTestTracker(t)
	content := "alpha bravo charlie delta echo mirror foxtrot golf hotel india juliet " +
		"mirror kilo lima mike november quebec"
	occ := tr.Scan(dream.Record{Content: content})
	require.Len(t, occ, 1)
	assert.Equal(t, 2, occ[0].Frequency)
	assert.Len(t, occ[0].ContextWords, 10)
}

func TestHouseFifteenTimes(t *testing.T) {
	tr := newTestTracker(t)
	var records []dream.Record
	for i := range 15 {
		records = append(records, dream.Record{
			Content:   "I walked through the house at dusk",
			Summary:   "evening stroll",
			CreatedAt: fmt.Sprintf("2024-01-%02d", 15-i),
		})
	}
	ev := tr.Analyze(records)

	house := ev.Symbols["house"]
	require.NotNil(t, house)
	assert.Equal(t, 15, house.AppearanceCount)
	require.NotNil(t, house.Metrics)
	assert.Equal(t, 15, house.Metrics.TemporalSpread)
	assert.Equal(t, Stable, house.Metrics.FrequencyTrend)

	// appearances are in chronological order with 1-based stages.
	assert.Equal(t, "2024-01-01", house.Appearances[0].Date)
	assert.Equal(t, 1, house.Appearances[0].EvolutionStage)
	assert.Equal(t, 15, house.Appearances[14].EvolutionStage)

	require.NotEmpty(t, ev.MostEvolving)
	assert.Equal(t, "house", ev.MostEvolving[0].Symbol)
	assert.Contains(t, ev.Insights, "'house' has persisted across many dreams over time and may represent a core theme in your inner life.")
}

func TestEvolutionMetrics(t *testing.T) {
	tr := newTestTracker(t)
	ev := tr.Analyze([]dream.Record{
		{Content: "a happy dog", CreatedAt: "2024-01-01"},
		{Content: "a scared dog and another dog", CreatedAt: "2024-01-02"},
		{Content: "the dog stood", CreatedAt: "2024-01-03"},
		{Content: "a cake"},
	})

	dog := ev.Symbols["dog"]
	require.NotNil(t, dog.Metrics)
	assert.Equal(t, []int{1, 2, 1}, []int{dog.FrequencyTracking[0].Frequency, dog.FrequencyTracking[1].Frequency, dog.FrequencyTracking[2].Frequency})
	assert.Equal(t, Stable, dog.Metrics.FrequencyTrend)
	// positive, negative and neutral contexts.
	assert.Equal(t, 2, dog.Metrics.ContextDiversity)
	assert.Equal(t, 3, dog.Metrics.TemporalSpread)
	assert.InDelta(t, 0.3*3+0.4*2+0.2*3+0.1*0.5, dog.Metrics.EvolutionScore, 1e-9)
	assert.InDelta(t, 2.0/6, dog.FrequencyTracking[1].Normalized, 1e-9)

	// the undated record sorts first.
	assert.Nil(t, ev.Symbols["cake"].Metrics)
	for _, r := range ev.MostEvolving {
		assert.NotEqual(t, "cake", r.Symbol)
	}
	assert.Contains(t, ev.Insights, "'dog' appears in a wide range of emotional contexts, so its meaning for you may be shifting.")
}

func TestIncreasingTrend(t *testing.T) {
	tr := newTestTracker(t)
	ev := tr.Analyze([]dream.Record{
		{Content: "a snake", CreatedAt: "2024-01-01"},
		{Content: "snake after snake", CreatedAt: "2024-01-02"},
	})
	snake := ev.Symbols["snake"]
	require.NotNil(t, snake.Metrics)
	assert.Equal(t, Increasing, snake.Metrics.FrequencyTrend)
	assert.InDelta(t, 0.3*2+0.2*2+0.1, snake.Metrics.EvolutionScore, 1e-9)
	assert.Contains(t, ev.Insights[0], "appearing more often")
}

func TestSingleAppearanceNeverRanked(t *testing.T) {
	tr := newTestTracker(t)
	ev := tr.Analyze([]dream.Record{
		{Content: "a candle", CreatedAt: "2024-01-01"},
		{Content: "a book", CreatedAt: "2024-01-02"},
		{Content: "another book", CreatedAt: "2024-01-03"},
	})
	require.Len(t, ev.MostEvolving, 1)
	assert.Equal(t, "book", ev.MostEvolving[0].Symbol)
}

func TestMostEvolvingCapAndCorpusInsight(t *testing.T) {
	tr := newTestTracker(t)
	content := "tree forest mountain garden bridge tower castle school church hospital office"
	ev := tr.Analyze([]dream.Record{
		{Content: content, CreatedAt: "2024-01-01"},
		{Content: content, CreatedAt: "2024-01-02"},
	})
	assert.Len(t, ev.MostEvolving, 10)
	assert.Equal(t, "tree", ev.MostEvolving[0].Symbol)
	assert.Contains(t, ev.Insights, "Your dream symbols show rich evolution, with many recurring images developing over time.")
}

func TestDeterministic(t *testing.T) {
	tr := newTestTracker(t)
	records := []dream.Record{
		{Content: "a dog by the river", CreatedAt: "2024-01-02"},
		{Content: "the river and a boat", CreatedAt: "2024-01-01"},
		{Content: "a dog on a boat", CreatedAt: "2024-01-03"},
	}
	assert.Equal(t, tr.Analyze(records), tr.Analyze(records))
}

func TestInsightsDiversityThreshold(t *testing.T) {
	wide := "'%s' appears in a wide range of emotional contexts, so its meaning for you may be shifting."
	out := insights([]Ranked{
		{Symbol: "cat", Metrics: Metrics{FrequencyTrend: Stable, ContextDiversity: 1}},
		{Symbol: "owl", Metrics: Metrics{FrequencyTrend: Stable, ContextDiversity: diverseContexts}},
	}, 0)
	assert.NotContains(t, out, fmt.Sprintf(wide, "cat"))
	assert.Contains(t, out, fmt.Sprintf(wide, "owl"))
}
