package archetype

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/rank"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return NewClassifier(lex)
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Archetype
	}
	return out
}

func TestClassifySubstringMatch(t *testing.T) {
	c := newTestClassifier(t)
	hits := c.Classify(dream.Record{Content: "I studied oceanography all night"})
	assert.Contains(t, ids(hits), "water")
}

func TestClassifyUsesSummaryToo(t *testing.T) {
	c := newTestClassifier(t)
	hits := c.Classify(dream.Record{Content: "nothing much", Summary: "Teeth crumbling"})
	assert.Equal(t, []string{"teeth"}, ids(hits))
}

func TestClassifyFlyingOverOcean(t *testing.T) {
	c := newTestClassifier(t)
	rec := dream.Record{
		Content:   "I was flying over the ocean, calm and at peace",
		Summary:   "flying peace",
		CreatedAt: "2024-05-01",
	}
	hits := c.Classify(rec)
	assert.Equal(t, []string{"water", "flying"}, ids(hits))
	assert.Equal(t, "2024-05-01", hits[0].Date)
	assert.Equal(t, "flying peace...", hits[0].Context)
}

func TestClassifyNoMatch(t *testing.T) {
	c := newTestClassifier(t)
	assert.Empty(t, c.Classify(dream.Record{Content: "a quiet library"}))
	assert.Empty(t, c.Classify(dream.Record{}))
}

func TestAnalyzeCountsAndRanking(t *testing.T) {
	c := newTestClassifier(t)
	records := []dream.Record{
		{Content: "swimming in a lake near my house"},
		{Content: "the river was wide"},
		{Content: "my teeth fell out"},
		{Content: "a house with many rooms", Summary: "home"},
	}
	a := c.Analyze(records)

	assert.Equal(t, 2, a.Count("water"))
	assert.Equal(t, 2, a.Count("house"))
	assert.Equal(t, 1, a.Count("teeth"))
	assert.Equal(t, 1, a.Count("falling"))
	assert.Equal(t, 4, a.TotalArchetypes)
	assert.Equal(t, []rank.Count{{Label: "water", Count: 2}, {Label: "house", Count: 2}, {Label: "falling", Count: 1}, {Label: "teeth", Count: 1}}, a.MostCommon)

	water := a.Details["water"]
	assert.Equal(t, "Emotions, subconscious, purification, change", water.Meaning)
	assert.Len(t, water.Appearances, 2)
	assert.Equal(t, dream.UnknownDate, water.Appearances[0].Date)
}

func TestCountSumMatchesPairs(t *testing.T) {
	c := newTestClassifier(t)
	var records []dream.Record
	for i := range 12 {
		records = append(records, dream.Record{
			Content:   fmt.Sprintf("dream %d about a chase through the house and deep water", i),
			CreatedAt: fmt.Sprintf("2024-01-%02d", i+1),
		})
	}
	records = append(records, dream.Record{Content: "nothing recognizable"})

	pairs := 0
	for _, r := range records {
		pairs += len(c.Classify(r))
	}

	a := c.Analyze(records)
	sum := 0
	for _, d := range a.Details {
		sum += d.Count
	}
	assert.Equal(t, pairs, sum)
	assert.Equal(t, 36, sum)
	assert.LessOrEqual(t, len(a.MostCommon), 5)
}

func TestMostCommonCapsAtFive(t *testing.T) {
	c := newTestClassifier(t)
	a := c.Analyze([]dream.Record{{
		Content: "water flying falling chase house death teeth naked",
	}})
	assert.Equal(t, 8, a.TotalArchetypes)
	assert.Len(t, a.MostCommon, 5)
	assert.Equal(t, "water", a.MostCommon[0].Label)
}

func TestRecent(t *testing.T) {
	c := newTestClassifier(t)
	records := []dream.Record{
		{Content: "old falling dream", CreatedAt: "2023-01-01"},
		{Content: "flying high", CreatedAt: "2024-01-06"},
		{Content: "a calm lake", CreatedAt: "2024-01-05"},
		{Content: "nothing", CreatedAt: "2024-01-04"},
		{Content: "more nothing", CreatedAt: "2024-01-03"},
		{Content: "still nothing", CreatedAt: "2024-01-02"},
	}
	view := c.Recent(records)

	assert.Equal(t, []string{"flying", "water"}, view.Found)
	assert.NotContains(t, view.Details, "falling")
	assert.Len(t, view.Recommendations, 2)
	assert.Contains(t, view.Recommendations[0], "Flying dreams")
}
