// Package lexicon holds the static keyword tables every classifier reads.
//
// A Store is built once at startup, from the embedded default tables or from
// an override file, and is read-only afterwards. It is safe to share across
// goroutines. Callers must not modify the slices returned by its accessors.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultYAML []byte

// Sentiment fallback labels, used when no specific emotion matches.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Archetype is a recurring dream motif with its interpretation text.
type Archetype struct {
	ID       string   `yaml:"id"`
	Meaning  string   `yaml:"meaning"`
	Positive string   `yaml:"positive"`
	Negative string   `yaml:"negative"`
	Keywords []string `yaml:"keywords"`
}

// Emotion is a specific emotion label with its keyword forms.
type Emotion struct {
	ID       string   `yaml:"id"`
	Valence  int      `yaml:"valence"`
	Keywords []string `yaml:"keywords"`
}

// Sentiment holds the generic word lists used by the fallback vote.
type Sentiment struct {
	Positive []string       `yaml:"positive"`
	Negative []string       `yaml:"negative"`
	Valence  map[string]int `yaml:"valence"`
}

// Period is a temporal orientation and the cues that point to it.
type Period struct {
	ID       string   `yaml:"id"`
	Explicit []string `yaml:"explicit"`
	Implicit []string `yaml:"implicit"`
	Phrases  []string `yaml:"phrases"`
}

// Relationship is a temporal relationship type and its connectives.
type Relationship struct {
	ID          string   `yaml:"id"`
	Connectives []string `yaml:"connectives"`
}

// Temporal groups the period and relationship tables.
type Temporal struct {
	Periods       []Period       `yaml:"periods"`
	Relationships []Relationship `yaml:"relationships"`
}

// SymbolCategory is a named group of tracked symbols.
type SymbolCategory struct {
	Category string   `yaml:"category"`
	Words    []string `yaml:"words"`
}

// Tone is an emotional-context category for the words around a symbol.
type Tone struct {
	ID    string   `yaml:"id"`
	Words []string `yaml:"words"`
}

// Tables is the on-disk shape of a lexicon file.
type Tables struct {
	Version          string             `yaml:"version"`
	Stopwords        []string           `yaml:"stopwords"`
	Archetypes       []Archetype        `yaml:"archetypes"`
	Emotions         []Emotion          `yaml:"emotions"`
	Sentiment        Sentiment          `yaml:"sentiment"`
	IntensityWeights map[string]float64 `yaml:"intensity_weights"`
	Temporal         Temporal           `yaml:"temporal"`
	Symbols          []SymbolCategory   `yaml:"symbols"`
	EmotionalContext []Tone             `yaml:"emotional_context"`
}

// Symbol is one entry of the flattened symbol vocabulary.
type Symbol struct {
	Word     string
	Category string
}

// Store is an immutable, validated lexicon.
type Store struct {
	tables    Tables
	stopwords map[string]struct{}
	symbols   []Symbol
	labelRank map[string]int
	valence   map[string]int
}

// New validates tables and builds a Store from them.
func New(t Tables) (*Store, error) {
	if err := validate(&t); err != nil {
		return nil, err
	}

	s := &Store{
		tables:    t,
		stopwords: make(map[string]struct{}, len(t.Stopwords)),
		labelRank: make(map[string]int, len(t.Emotions)+3),
		valence:   make(map[string]int, len(t.Emotions)+3),
	}
	for _, w := range t.Stopwords {
		s.stopwords[w] = struct{}{}
	}
	s.tables.Archetypes = slices.Clone(t.Archetypes)
	for i := range s.tables.Archetypes {
		a := &s.tables.Archetypes[i]
		if len(a.Keywords) == 0 {
			a.Keywords = []string{a.ID}
		}
	}
	for _, c := range t.Symbols {
		for _, w := range c.Words {
			s.symbols = append(s.symbols, Symbol{Word: w, Category: c.Category})
		}
	}

	rank := 0
	for _, e := range t.Emotions {
		s.labelRank[e.ID] = rank
		s.valence[e.ID] = e.Valence
		rank++
	}
	for _, label := range []string{Positive, Negative, Neutral} {
		s.labelRank[label] = rank
		s.valence[label] = defaultValence(label)
		if v, ok := t.Sentiment.Valence[label]; ok {
			s.valence[label] = v
		}
		rank++
	}
	return s, nil
}

// Parse decodes YAML lexicon tables and builds a Store.
func Parse(data []byte) (*Store, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	return New(t)
}

// Load reads a lexicon file from disk.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	return Parse(data)
}

var defaultStore = sync.OnceValues(func() (*Store, error) {
	return Parse(DefaultYAML)
})

// Default returns the embedded lexicon. The Store is built once and shared.
func Default() (*Store, error) {
	return defaultStore()
}

// Resolve returns the lexicon at path, or the embedded default when path is empty.
func Resolve(path string) (*Store, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Version returns the lexicon version string.
func (s *Store) Version() string { return s.tables.Version }

// Tables returns the tables the Store was built from, for dumping.
func (s *Store) Tables() Tables { return s.tables }

// IsStopword reports whether w is in the stopword list.
func (s *Store) IsStopword(w string) bool {
	_, ok := s.stopwords[w]
	return ok
}

// Archetypes returns archetypes in declaration order.
func (s *Store) Archetypes() []Archetype { return s.tables.Archetypes }

// Archetype looks up an archetype by id.
func (s *Store) Archetype(id string) (Archetype, bool) {
	for _, a := range s.tables.Archetypes {
		if a.ID == id {
			return a, true
		}
	}
	return Archetype{}, false
}

// ArchetypeRank returns the declaration index of an archetype, or -1.
func (s *Store) ArchetypeRank(id string) int {
	for i, a := range s.tables.Archetypes {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Emotions returns specific emotions in declaration order.
func (s *Store) Emotions() []Emotion { return s.tables.Emotions }

// Sentiment returns the fallback sentiment word lists.
func (s *Store) Sentiment() Sentiment { return s.tables.Sentiment }

// IntensityWeight returns the intensity weight of an exact token.
func (s *Store) IntensityWeight(token string) (float64, bool) {
	w, ok := s.tables.IntensityWeights[token]
	return w, ok
}

// Valence maps an emotion or sentiment label to its signed stability value.
// Unknown labels map to 0.
func (s *Store) Valence(label string) int { return s.valence[label] }

// LabelRank orders emotion labels: specific emotions in declaration order,
// then positive, negative and neutral. Unknown labels sort last.
func (s *Store) LabelRank(label string) int {
	if r, ok := s.labelRank[label]; ok {
		return r
	}
	return len(s.labelRank)
}

// Periods returns temporal periods in tie-break order.
func (s *Store) Periods() []Period { return s.tables.Temporal.Periods }

// Relationships returns temporal relationship types in declaration order.
func (s *Store) Relationships() []Relationship { return s.tables.Temporal.Relationships }

// Symbols returns the flattened symbol vocabulary in declaration order.
func (s *Store) Symbols() []Symbol { return s.symbols }

// Categories returns symbol categories in declaration order.
func (s *Store) Categories() []SymbolCategory { return s.tables.Symbols }

// Tones returns emotional-context categories in tie-break order.
func (s *Store) Tones() []Tone { return s.tables.EmotionalContext }

func defaultValence(label string) int {
	switch label {
	case Positive:
		return 2
	case Negative:
		return -2
	}
	return 0
}

func validate(t *Tables) error {
	if t.Version == "" {
		return fmt.Errorf("lexicon: missing version")
	}
	if len(t.Archetypes) == 0 {
		return fmt.Errorf("lexicon: no archetypes defined")
	}
	if err := uniqueIDs("archetype", len(t.Archetypes), func(i int) string { return t.Archetypes[i].ID }); err != nil {
		return err
	}
	if len(t.Emotions) == 0 {
		return fmt.Errorf("lexicon: no emotions defined")
	}
	if err := uniqueIDs("emotion", len(t.Emotions), func(i int) string { return t.Emotions[i].ID }); err != nil {
		return err
	}
	for _, e := range t.Emotions {
		switch e.ID {
		case Positive, Negative, Neutral:
			return fmt.Errorf("lexicon: emotion id %q is reserved for sentiment labels", e.ID)
		}
		if len(e.Keywords) == 0 {
			return fmt.Errorf("lexicon: emotion %q has no keywords", e.ID)
		}
	}
	for w, v := range t.IntensityWeights {
		if v <= 0 || v > 1 {
			return fmt.Errorf("lexicon: intensity weight for %q must be in (0,1], got %v", w, v)
		}
	}
	if len(t.Temporal.Periods) == 0 {
		return fmt.Errorf("lexicon: no temporal periods defined")
	}
	if err := uniqueIDs("period", len(t.Temporal.Periods), func(i int) string { return t.Temporal.Periods[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("relationship", len(t.Temporal.Relationships), func(i int) string { return t.Temporal.Relationships[i].ID }); err != nil {
		return err
	}

	seen := make(map[string]string)
	for _, c := range t.Symbols {
		if c.Category == "" {
			return fmt.Errorf("lexicon: symbol category with empty name")
		}
		for _, w := range c.Words {
			if prev, ok := seen[w]; ok {
				return fmt.Errorf("lexicon: symbol %q listed in both %q and %q", w, prev, c.Category)
			}
			seen[w] = c.Category
		}
	}

	if err := uniqueIDs("emotional context", len(t.EmotionalContext), func(i int) string { return t.EmotionalContext[i].ID }); err != nil {
		return err
	}
	tones := make(map[string]bool, len(t.EmotionalContext))
	for _, tone := range t.EmotionalContext {
		tones[tone.ID] = true
	}
	for _, want := range []string{Positive, Negative, Neutral} {
		if !tones[want] {
			return fmt.Errorf("lexicon: emotional context %q missing", want)
		}
	}
	return nil
}

func uniqueIDs(kind string, n int, id func(int) string) error {
	seen := make(map[string]bool, n)
	for i := range n {
		v := id(i)
		if v == "" {
			return fmt.Errorf("lexicon: %s with empty id", kind)
		}
		if seen[v] {
			return fmt.Errorf("lexicon: duplicate %s id %q", kind, v)
		}
		seen[v] = true
	}
	return nil
}
