package textnorm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stopSet map[string]bool

func (s stopSet) IsStopword(w string) bool { return s[w] }

func TestWords(t *testing.T) {
	got := slices.Collect(Words("I'm flying over the Ocean -- 3 times, well-known!"))
	assert.Equal(t, []string{"i", "m", "flying", "over", "the", "ocean", "times", "well", "known"}, got)
}

func TestWordsEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(Words("")))
	assert.Empty(t, slices.Collect(Words("123 ... !!")))
}

func TestWordsNonASCIISeparates(t *testing.T) {
	assert.Equal(t, []string{"caf", "noir"}, slices.Collect(Words("café noir")))
}

func TestNormalizeFiltersShortAndStopwords(t *testing.T) {
	stop := stopSet{"the": true, "over": true}
	got := slices.Collect(Normalize("I was flying over the ocean at dawn", stop))
	assert.Equal(t, []string{"was", "flying", "ocean", "dawn"}, got)
}

func TestNormalizeNilStopwords(t *testing.T) {
	got := slices.Collect(Normalize("an old house", nil))
	assert.Equal(t, []string{"old", "house"}, got)
}

func TestSequenceIsRestartable(t *testing.T) {
	seq := Normalize("water water everywhere", nil)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestEarlyBreak(t *testing.T) {
	var got []string
	for w := range Words("one two three four") {
		got = append(got, w)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestFields(t *testing.T) {
	got := Fields("Terrified!  I ran, (fast) ... home.")
	assert.Equal(t, []string{"terrified", "i", "ran", "fast", "home"}, got)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Tokens("a-b"))
}
