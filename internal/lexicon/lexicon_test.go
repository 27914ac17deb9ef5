package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, lex.Version())
	assert.Len(t, lex.Archetypes(), 8)
	assert.Len(t, lex.Emotions(), 8)
	assert.Len(t, lex.Categories(), 10)
	assert.Greater(t, len(lex.Symbols()), 100)

	ids := make([]string, 0, len(lex.Periods()))
	for _, p := range lex.Periods() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"past", "present", "future"}, ids)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestStopwords(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.True(t, lex.IsStopword("the"))
	assert.True(t, lex.IsStopword("going"))
	assert.False(t, lex.IsStopword("ocean"))
}

func TestLabelRankAndValence(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.Less(t, lex.LabelRank("fear"), lex.LabelRank("joy"))
	assert.Less(t, lex.LabelRank("disgust"), lex.LabelRank(Positive))
	assert.Less(t, lex.LabelRank(Positive), lex.LabelRank(Negative))
	assert.Less(t, lex.LabelRank(Negative), lex.LabelRank(Neutral))
	assert.Greater(t, lex.LabelRank("unknown"), lex.LabelRank(Neutral))

	assert.Equal(t, 3, lex.Valence("joy"))
	assert.Equal(t, -3, lex.Valence("fear"))
	assert.Equal(t, 0, lex.Valence(Neutral))
	assert.Equal(t, 2, lex.Valence(Positive))
	assert.Equal(t, -2, lex.Valence(Negative))
	assert.Equal(t, 0, lex.Valence("unknown"))
}

const minimalYAML = `
version: test
stopwords: [the]
archetypes:
  - id: water
  - id: house
    keywords: [house, home]
emotions:
  - id: fear
    valence: -3
    keywords: [afraid]
temporal:
  periods:
    - id: past
      explicit: [yesterday]
emotional_context:
  - id: positive
  - id: negative
  - id: neutral
`

func TestArchetypeKeywordsFallBackToID(t *testing.T) {
	lex, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	water, ok := lex.Archetype("water")
	require.True(t, ok)
	assert.Equal(t, []string{"water"}, water.Keywords)

	house, ok := lex.Archetype("house")
	require.True(t, ok)
	assert.Equal(t, []string{"house", "home"}, house.Keywords)

	assert.Equal(t, 1, lex.ArchetypeRank("house"))
	assert.Equal(t, -1, lex.ArchetypeRank("teeth"))
}

func TestSentimentValenceDefaults(t *testing.T) {
	lex, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Valence(Positive))
	assert.Equal(t, -2, lex.Valence(Negative))
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing version": `
archetypes: [{id: water}]
emotions: [{id: fear, keywords: [afraid]}]
temporal: {periods: [{id: past}]}
emotional_context: [{id: positive}, {id: negative}, {id: neutral}]
`,
		"duplicate archetype": `
version: x
archetypes: [{id: water}, {id: water}]
emotions: [{id: fear, keywords: [afraid]}]
temporal: {periods: [{id: past}]}
emotional_context: [{id: positive}, {id: negative}, {id: neutral}]
`,
		"reserved emotion id": `
version: x
archetypes: [{id: water}]
emotions: [{id: positive, keywords: [good]}]
temporal: {periods: [{id: past}]}
emotional_context: [{id: positive}, {id: negative}, {id: neutral}]
`,
		"weight out of range": `
version: x
archetypes: [{id: water}]
emotions: [{id: fear, keywords: [afraid]}]
intensity_weights: {afraid: 1.5}
temporal: {periods: [{id: past}]}
emotional_context: [{id: positive}, {id: negative}, {id: neutral}]
`,
		"duplicate symbol": `
version: x
archetypes: [{id: water}]
emotions: [{id: fear, keywords: [afraid]}]
temporal: {periods: [{id: past}]}
symbols:
  - {category: nature, words: [tree]}
  - {category: objects, words: [tree]}
emotional_context: [{id: positive}, {id: negative}, {id: neutral}]
`,
		"missing tone": `
version: x
archetypes: [{id: water}]
emotions: [{id: fear, keywords: [afraid]}]
temporal: {periods: [{id: past}]}
emotional_context: [{id: positive}, {id: negative}]
`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	lex, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", lex.Version())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	def, err := Resolve("")
	require.NoError(t, err)
	want, err := Default()
	require.NoError(t, err)
	assert.Same(t, want, def)
}
