// Package textnorm turns free text into lowercase word tokens.
package textnorm

import (
	"iter"
	"slices"
	"strings"
)

// Stopwords reports whether a token should be discarded.
type Stopwords interface {
	IsStopword(string) bool
}

// MinWordLen is the shortest token Normalize keeps.
const MinWordLen = 3

// Words yields maximal runs of ASCII letters, lowercased. Every other
// character separates tokens. The sequence can be ranged over more than once.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i := 0; i <= len(text); i++ {
			if i < len(text) && isLetter(text[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(strings.ToLower(text[start:i])) {
					return
				}
				start = -1
			}
		}
	}
}

// Normalize yields the tokens of Words that are at least MinWordLen long
// and are not stopwords.
func Normalize(text string, stop Stopwords) iter.Seq[string] {
	return func(yield func(string) bool) {
		for w := range Words(text) {
			if !Meaningful(w, stop) {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Meaningful reports whether a single lowercase token survives Normalize.
func Meaningful(w string, stop Stopwords) bool {
	if len(w) < MinWordLen {
		return false
	}
	return stop == nil || !stop.IsStopword(w)
}

// Tokens collects Words into a slice, for callers that need windows.
func Tokens(text string) []string {
	return slices.Collect(Words(text))
}

// Fields splits text on whitespace, lowercases each field and trims leading
// and trailing punctuation. Fields that become empty are dropped.
func Fields(text string) []string {
	raw := strings.Fields(text)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimFunc(strings.ToLower(f), isPunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isPunct(r rune) bool {
	return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}
