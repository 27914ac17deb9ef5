package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStabilityInsufficientData(t *testing.T) {
	s := AnalyzeStability(nil, testLexicon(t))
	assert.Equal(t, InsufficientData, s.Classification)
	assert.Len(t, s.Insights, 1)
	assert.Zero(t, s.Score)
}

func TestStabilityUniform(t *testing.T) {
	s := AnalyzeStability([]string{"joy", "joy", "joy"}, testLexicon(t))

	assert.InDelta(t, 1.0/3, s.Diversity, 1e-9)
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.Consistency)
	assert.InDelta(t, 0.5, s.Score, 1e-9)
	assert.Equal(t, ModeratelyStable, s.Classification)
	assert.Equal(t, TrendStable, s.Trend)
	assert.Equal(t, []string{"Your dream emotions are fairly consistent from one dream to the next."}, s.Insights)
}

func TestStabilityAlternating(t *testing.T) {
	s := AnalyzeStability([]string{"fear", "joy", "fear", "joy", "fear", "joy"}, testLexicon(t))

	assert.Equal(t, 1.0, s.Volatility)
	assert.Equal(t, 1.0, s.Consistency)
	assert.InDelta(t, 0.4, s.Score, 1e-9)
	assert.Equal(t, EmotionallyFocused, s.Classification)
	assert.Equal(t, TrendIncreasingPositive, s.Trend)
	assert.Len(t, s.Insights, 3)
}

func TestStabilityDecliningTrend(t *testing.T) {
	s := AnalyzeStability([]string{"joy", "joy", "joy", "fear", "fear", "fear"}, testLexicon(t))

	assert.InDelta(t, 0.2, s.Volatility, 1e-9)
	assert.Zero(t, s.Consistency)
	assert.Equal(t, TrendIncreasingNegative, s.Trend)
	assert.Contains(t, s.Insights, "Your dream emotions are fairly consistent from one dream to the next.")
}

func TestStabilitySingleLabel(t *testing.T) {
	s := AnalyzeStability([]string{"peace"}, testLexicon(t))
	assert.Equal(t, 1.0, s.Diversity)
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.Consistency)
	assert.Equal(t, TrendStable, s.Trend)
	assert.NotEqual(t, InsufficientData, s.Classification)
}

func TestStabilityScoreInUnitInterval(t *testing.T) {
	lex := testLexicon(t)
	for _, labels := range [][]string{
		{"fear"},
		{"fear", "joy"},
		{"fear", "joy", "sadness", "anger", "peace", "love", "surprise", "disgust"},
		{"neutral", "neutral", "positive", "neutral", "neutral", "positive"},
	} {
		s := AnalyzeStability(labels, lex)
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
}
