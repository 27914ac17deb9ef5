package archetype

import "github.com/samjhill/dream-companion/internal/dream"

// recentLimit is how many of the newest records the recent view inspects.
const recentLimit = 5

var recentAdvice = map[string]string{
	"water":   "Water dreams suggest emotional processing. Consider journaling about your feelings.",
	"flying":  "Flying dreams indicate freedom and transcendence. Reflect on what you want to achieve.",
	"falling": "Falling dreams may indicate anxiety. Practice grounding techniques like deep breathing.",
}

// RecentDetail describes an archetype found among the newest records.
type RecentDetail struct {
	Meaning     string       `json:"meaning"`
	Positive    string       `json:"positive_aspects"`
	Negative    string       `json:"negative_aspects"`
	Appearances []Appearance `json:"appearances"`
}

// RecentView summarizes archetypes in the newest records only.
type RecentView struct {
	Found           []string                `json:"archetypes_found"`
	Details         map[string]RecentDetail `json:"archetype_details"`
	Recommendations []string                `json:"recommendations"`
}

// Recent classifies the five newest records, newest first. Archetypes are
// listed in the order they are first found.
func (c *Classifier) Recent(records []dream.Record) *RecentView {
	view := &RecentView{
		Found:           []string{},
		Details:         make(map[string]RecentDetail),
		Recommendations: []string{},
	}
	for _, rec := range dream.MostRecent(records, recentLimit) {
		for _, h := range c.Classify(rec) {
			d, ok := view.Details[h.Archetype]
			if !ok {
				view.Found = append(view.Found, h.Archetype)
				a, _ := c.lex.Archetype(h.Archetype)
				d = RecentDetail{Meaning: a.Meaning, Positive: a.Positive, Negative: a.Negative}
			}
			d.Appearances = append(d.Appearances, h.Appearance)
			view.Details[h.Archetype] = d
		}
	}
	for _, id := range view.Found {
		if advice, ok := recentAdvice[id]; ok {
			view.Recommendations = append(view.Recommendations, advice)
		}
	}
	return view
}
