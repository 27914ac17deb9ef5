// Package report renders an analysis Report as markdown.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samjhill/dream-companion/internal/analysis"
	"github.com/samjhill/dream-companion/internal/symbol"
)

const (
	maxAppearances = 3
	maxSymbols     = 5
	dateLayout     = "2006-01-02 15:04"
)

// Markdown renders rep as a markdown document titled for user.
func Markdown(rep *analysis.Report, user string) string {
	title := "# Dream Analysis"
	if user != "" {
		title += " for " + user
	}
	header := fmt.Sprintf("%s\n\n*%d dreams analyzed on %s (lexicon %s)*",
		title, rep.TotalDreams, rep.AnalysisDate.Format(dateLayout), rep.LexiconVersion)
	if rep.SkippedRecords > 0 {
		header += fmt.Sprintf("\n\n> %d stored entries could not be read and were skipped.", rep.SkippedRecords)
	}

	sections := []string{
		header,
		bulletSection("Personal Insights", rep.PersonalInsights),
		archetypeSection(rep),
		emotionSection(rep),
		temporalSection(rep),
		symbolSection(rep.SymbolEvolution),
		bulletSection("Recommendations", rep.Recommendations),
	}
	return strings.Join(sections, "\n\n---\n\n") + "\n"
}

func bulletSection(title string, items []string) string {
	if len(items) == 0 {
		return fmt.Sprintf("## %s\n\nNothing to report yet.", title)
	}
	lines := make([]string, 0, len(items))
	for _, s := range items {
		lines = append(lines, "- "+s)
	}
	return fmt.Sprintf("## %s\n\n%s", title, strings.Join(lines, "\n"))
}

func archetypeSection(rep *analysis.Report) string {
	a := rep.ArchetypeAnalysis
	if a == nil || len(a.MostCommon) == 0 {
		return "## Archetypes\n\nNo archetypes found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Archetypes\n\n%d distinct archetypes found.\n", a.TotalArchetypes)
	for _, c := range a.MostCommon {
		d := a.Details[c.Label]
		fmt.Fprintf(&b, "\n### %s (%d)\n\n", titleCase(c.Label), c.Count)
		fmt.Fprintf(&b, "**Meaning:** %s\n\n", d.Meaning)
		fmt.Fprintf(&b, "- Positive: %s\n- Negative: %s\n", d.Positive, d.Negative)
		for _, app := range d.Appearances[:min(maxAppearances, len(d.Appearances))] {
			fmt.Fprintf(&b, "- *%s*: %s\n", app.Date, app.Context)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func emotionSection(rep *analysis.Report) string {
	e := rep.EmotionalPatterns
	if e == nil {
		return "## Emotions\n\nNo emotional data."
	}

	var b strings.Builder
	b.WriteString("## Emotions\n\n| Emotion | Dreams |\n|---|---|\n")
	for _, c := range e.Dominant {
		fmt.Fprintf(&b, "| %s | %d |\n", c.Label, c.Count)
	}
	fmt.Fprintf(&b, "\nAverage intensity **%.2f** (range %.2f to %.2f).\n",
		e.Intensity.Average, e.Intensity.Range.Min, e.Intensity.Range.Max)
	if s := e.Stability; s != nil {
		fmt.Fprintf(&b, "\nStability: **%s** (score %.2f, trend %s).\n",
			strings.ReplaceAll(s.Classification, "_", " "), s.Score, strings.ReplaceAll(s.Trend, "_", " "))
		for _, in := range s.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func temporalSection(rep *analysis.Report) string {
	t := rep.TemporalPatterns
	if t == nil || t.TimeRelatedCount == 0 {
		return "## Time\n\nNo dreams with a clear time orientation."
	}

	periods := make([]string, 0, len(t.Distribution))
	for p := range t.Distribution {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	var b strings.Builder
	fmt.Fprintf(&b, "## Time\n\n%d dreams carry a time orientation, mostly **%s**.\n\n",
		t.TimeRelatedCount, t.DominantOrientation)
	for _, p := range periods {
		fmt.Fprintf(&b, "- %s: %d\n", p, t.Distribution[p])
	}
	for _, in := range t.Insights {
		fmt.Fprintf(&b, "\n%s\n", in)
	}
	return strings.TrimRight(b.String(), "\n")
}

func symbolSection(ev *symbol.Evolution) string {
	if ev == nil || ev.SymbolsTracked == 0 {
		return "## Symbols\n\nNo tracked symbols yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Symbols\n\n%d symbols tracked.\n", ev.SymbolsTracked)
	if len(ev.MostEvolving) > 0 {
		b.WriteString("\n| Symbol | Category | Appearances | Trend | Score |\n|---|---|---|---|---|\n")
		for _, r := range ev.MostEvolving[:min(maxSymbols, len(ev.MostEvolving))] {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %.2f |\n",
				r.Symbol, r.Category, r.AppearanceCount, r.FrequencyTrend, r.EvolutionScore)
		}
	}
	for _, in := range ev.Insights {
		fmt.Fprintf(&b, "\n%s\n", in)
	}
	return strings.TrimRight(b.String(), "\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
