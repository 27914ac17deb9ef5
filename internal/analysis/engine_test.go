package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/metrics"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return New(lex, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func journal() []dream.Record {
	return []dream.Record{
		{ID: "1", Content: "I was flying over the ocean, calm and at peace", Summary: "flight over water", CreatedAt: "2024-01-03T08:00:00Z"},
		{ID: "2", Content: "Something chased me through an old house and I was terrified", Summary: "chase at home", CreatedAt: "2024-01-01"},
		{ID: "3", Content: "My teeth fell out tomorrow at school", CreatedAt: "not a date"},
		{ID: "4", Content: "We walked to the library", Summary: "quiet walk"},
		{ID: "5", Content: "I remember swimming in the lake as a child, happy and free", Summary: "lake memory", CreatedAt: "2024-01-02"},
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDreams)
}

func TestFlyingOverOcean(t *testing.T) {
	e := newTestEngine(t)
	rep, err := e.Analyze(context.Background(), []dream.Record{
		{Content: "I was flying over the ocean, calm and at peace"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.TotalDreams)
	assert.Equal(t, fixedNow, rep.AnalysisDate)
	assert.Equal(t, 1, rep.ArchetypeAnalysis.Count("water"))
	assert.Equal(t, 1, rep.ArchetypeAnalysis.Count("flying"))
	assert.Equal(t, "peace", rep.EmotionalPatterns.DominantEmotion())
	assert.Contains(t, rep.SymbolEvolution.Symbols, "ocean")
	assert.Contains(t, rep.SymbolEvolution.Symbols, "flying")
	assert.Empty(t, rep.SymbolEvolution.MostEvolving)
	assert.Equal(t, "Unknown", rep.ArchetypeAnalysis.Details["water"].Appearances[0].Date)

	assert.Contains(t, rep.Recommendations[0], "record your dreams more frequently")
	assert.Contains(t, rep.Recommendations[1], "often peaceful")
}

func TestHouseFifteenTimes(t *testing.T) {
	var records []dream.Record
	for i := range 15 {
		records = append(records, dream.Record{
			Content:   "I walked through the house at dusk",
			CreatedAt: fmt.Sprintf("2024-02-%02d", i+1),
		})
	}

	rep, err := newTestEngine(t).Analyze(context.Background(), records)
	require.NoError(t, err)

	house := rep.SymbolEvolution.Symbols["house"]
	require.NotNil(t, house)
	assert.Equal(t, 15, house.AppearanceCount)
	require.NotNil(t, house.Metrics)
	assert.Equal(t, 15, house.Metrics.TemporalSpread)
	assert.Equal(t, 15, rep.ArchetypeAnalysis.Count("house"))
	assert.Contains(t, rep.PersonalInsights[0], "consistent engagement")
}

func TestArchetypeCountsSumToHits(t *testing.T) {
	e := newTestEngine(t)
	records := journal()
	rep, err := e.Analyze(context.Background(), records)
	require.NoError(t, err)

	hits := 0
	for _, r := range records {
		hits += len(e.archetype.Classify(r))
	}
	sum := 0
	for id, d := range rep.ArchetypeAnalysis.Details {
		assert.Len(t, d.Appearances, d.Count, id)
		sum += d.Count
	}
	assert.Equal(t, hits, sum)
	assert.Equal(t, len(rep.ArchetypeAnalysis.Details), rep.ArchetypeAnalysis.TotalArchetypes)
	for _, c := range rep.ArchetypeAnalysis.MostCommon {
		assert.Equal(t, rep.ArchetypeAnalysis.Count(c.Label), c.Count)
	}
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	records := journal()

	one, err := newTestEngine(t, WithWorkers(1)).Analyze(context.Background(), records)
	require.NoError(t, err)
	many, err := newTestEngine(t, WithWorkers(8)).Analyze(context.Background(), records)
	require.NoError(t, err)

	a, err := json.Marshal(one)
	require.NoError(t, err)
	b, err := json.Marshal(many)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestScoresInRange(t *testing.T) {
	rep, err := newTestEngine(t).Analyze(context.Background(), journal())
	require.NoError(t, err)

	for _, v := range rep.EmotionalPatterns.Intensity.Levels {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	for _, o := range rep.TemporalPatterns.TimeRelated {
		assert.GreaterOrEqual(t, o.Confidence, 0.0)
		assert.LessOrEqual(t, o.Confidence, 1.0)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t).Analyze(ctx, journal())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportJSONFields(t *testing.T) {
	rep, err := newTestEngine(t).Analyze(context.Background(), journal())
	require.NoError(t, err)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{
		"total_dreams", "analysis_date", "archetype_analysis", "emotional_patterns",
		"temporal_patterns", "symbol_evolution", "personal_insights", "recommendations",
		"skipped_records", "lexicon_version",
	} {
		assert.Contains(t, m, key)
	}

	var arch map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(m["archetype_analysis"], &arch))
	assert.Contains(t, arch, "most_common_archetypes")
	assert.Contains(t, arch, "archetype_details")

	var details map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(arch["archetype_details"], &details))
	require.NotEmpty(t, details)
	for id, d := range details {
		for _, key := range []string{"count", "meaning", "positive_aspects", "negative_aspects", "appearances"} {
			assert.Contains(t, d, key, id)
		}
	}
}

type fakeSource struct {
	records []dream.Record
	skipped int
	err     error
}

func (f fakeSource) Records(context.Context, string) ([]dream.Record, int, error) {
	return f.records, f.skipped, f.err
}

func TestAnalyzeSource(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := newTestEngine(t, WithLogger(zap.New(core)))
	before := testutil.ToFloat64(metrics.RecordsSkipped)

	rep, err := e.AnalyzeSource(context.Background(), fakeSource{records: journal(), skipped: 2}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.SkippedRecords)
	assert.Equal(t, 5, rep.TotalDreams)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RecordsSkipped))
	require.Equal(t, 1, logs.FilterMessage("skipped undecodable dreams").Len())

	_, err = e.AnalyzeSource(context.Background(), fakeSource{skipped: 3}, "bob")
	assert.ErrorIs(t, err, ErrNoDreams)

	boom := errors.New("boom")
	_, err = e.AnalyzeSource(context.Background(), fakeSource{err: boom}, "carol")
	assert.ErrorIs(t, err, boom)
}

func TestViews(t *testing.T) {
	e := newTestEngine(t)

	recent, err := e.Recent(journal())
	require.NoError(t, err)
	assert.NotEmpty(t, recent.Found)

	patterns, err := e.Patterns(journal())
	require.NoError(t, err)
	assert.NotEmpty(t, patterns.EmotionalPatterns.Distribution)

	_, err = e.Recent(nil)
	assert.ErrorIs(t, err, ErrNoDreams)
	_, err = e.Patterns(nil)
	assert.ErrorIs(t, err, ErrNoDreams)
}
