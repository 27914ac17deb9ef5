// Package dream defines the journaled dream record the analyzers consume.
package dream

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// UnknownDate is shown in place of a missing timestamp.
const UnknownDate = "Unknown"

// ErrNotObject is returned for a blob that is valid JSON but not an object.
var ErrNotObject = errors.New("dream is not a JSON object")

// snippetLen is the number of runes kept in a context snippet.
const snippetLen = 100

// Record is one journaled dream. Fields default to empty strings.
type Record struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content_text"`
	Summary   string `json:"summary_text"`
	CreatedAt string `json:"created_at"`
}

// CombinedText is the lowercase content and summary joined by a space.
func (r Record) CombinedText() string {
	return strings.ToLower(r.Content) + " " + strings.ToLower(r.Summary)
}

// Date returns the raw created_at string, or UnknownDate when empty.
func (r Record) Date() string {
	if r.CreatedAt == "" {
		return UnknownDate
	}
	return r.CreatedAt
}

// Snippet is the summary cut to 100 runes plus "...", falling back to the
// content when the summary is empty.
func (r Record) Snippet() string {
	text := r.Summary
	if text == "" {
		text = r.Content
	}
	runes := []rune(text)
	if len(runes) > snippetLen {
		runes = runes[:snippetLen]
	}
	return string(runes) + "..."
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses created_at. ok is false when it is empty or unparsable.
func (r Record) Time() (t time.Time, ok bool) {
	s := strings.TrimSpace(r.CreatedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Chronological returns record indices ordered by ascending created_at.
// Missing or unparsable timestamps sort first; ties keep input order.
func Chronological(records []Record) []int {
	type keyed struct {
		idx int
		t   time.Time
		ok  bool
	}
	keys := make([]keyed, len(records))
	for i, r := range records {
		t, ok := r.Time()
		keys[i] = keyed{idx: i, t: t, ok: ok}
	}
	slices.SortStableFunc(keys, func(a, b keyed) int {
		switch {
		case !a.ok && !b.ok:
			return 0
		case !a.ok:
			return -1
		case !b.ok:
			return 1
		}
		return a.t.Compare(b.t)
	})
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.idx
	}
	return out
}

// MostRecent returns up to n records, newest first.
func MostRecent(records []Record, n int) []Record {
	order := Chronological(records)
	out := make([]Record, 0, min(n, len(order)))
	for i := len(order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[order[i]])
	}
	return out
}

// payload accepts both the journal app's camelCase keys and snake_case keys.
type payload struct {
	ID           any `json:"id"`
	DreamContent any `json:"dreamContent"`
	ContentText  any `json:"content_text"`
	Content      any `json:"content"`
	Summary      any `json:"summary"`
	SummaryText  any `json:"summary_text"`
	CreatedAt    any `json:"createdAt"`
	CreatedAtSn  any `json:"created_at"`
}

// Decode parses one stored dream blob. Only a blob that is not a JSON object
// is an error; absent or mistyped fields become empty strings.
func Decode(data []byte) (Record, error) {
	var p *payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Record{}, fmt.Errorf("decoding dream: %w", err)
	}
	// null unmarshals without error and leaves p unset.
	if p == nil {
		return Record{}, ErrNotObject
	}
	return Record{
		ID:        first(p.ID),
		Content:   first(p.DreamContent, p.ContentText, p.Content),
		Summary:   first(p.Summary, p.SummaryText),
		CreatedAt: first(p.CreatedAt, p.CreatedAtSn),
	}, nil
}

// DecodeAll decodes every blob, skipping the ones Decode rejects.
func DecodeAll(blobs [][]byte) (records []Record, skipped int) {
	records = make([]Record, 0, len(blobs))
	for _, b := range blobs {
		r, err := Decode(b)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped
}

// first returns the first value that is a non-empty string.
func first(vals ...any) string {
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
