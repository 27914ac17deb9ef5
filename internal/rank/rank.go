// Package rank orders label counts deterministically.
package rank

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

// Count is a label and how often it occurred. It encodes to JSON as a
// two-element array, ["water", 3].
type Count struct {
	Label string
	Count int
}

// MarshalJSON encodes c as [label, count].
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Label, c.Count})
}

// UnmarshalJSON decodes [label, count].
func (c *Count) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("rank: expected [label, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Label); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.Count)
}

// Counter tallies labels and remembers the order they were first seen.
type Counter struct {
	counts map[string]int
	order  []string
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add increments label by one.
func (c *Counter) Add(label string) { c.AddN(label, 1) }

// AddN increments label by n.
func (c *Counter) AddN(label string, n int) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label] += n
}

// Get returns the count for label.
func (c *Counter) Get(label string) int { return c.counts[label] }

// Len returns the number of distinct labels seen.
func (c *Counter) Len() int { return len(c.order) }

// Map returns a copy of the counts.
func (c *Counter) Map() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Top returns up to n labels by descending count. Equal counts keep
// first-seen order. n <= 0 returns every label.
func (c *Counter) Top(n int) []Count {
	return c.TopBy(n, nil)
}

// TopBy is Top with ties broken by ascending tie(label) instead of
// first-seen order.
func (c *Counter) TopBy(n int, tie func(string) int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, Count{Label: label, Count: c.counts[label]})
	}
	slices.SortStableFunc(out, func(a, b Count) int {
		if r := cmp.Compare(b.Count, a.Count); r != 0 {
			return r
		}
		if tie != nil {
			return cmp.Compare(tie(a.Label), tie(b.Label))
		}
		return 0
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
