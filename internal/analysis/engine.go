// Package analysis runs every classifier over a dream journal and folds the
// results into a single Report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samjhill/dream-companion/internal/archetype"
	"github.com/samjhill/dream-companion/internal/dream"
	"github.com/samjhill/dream-companion/internal/emotion"
	"github.com/samjhill/dream-companion/internal/insight"
	"github.com/samjhill/dream-companion/internal/lexicon"
	"github.com/samjhill/dream-companion/internal/metrics"
	"github.com/samjhill/dream-companion/internal/symbol"
	"github.com/samjhill/dream-companion/internal/temporal"
)

// DefaultWorkers is the per-record fan-out used when none is configured.
const DefaultWorkers = 4

// ErrNoDreams is returned when there is nothing to analyze.
var ErrNoDreams = errors.New("no dreams found")

// Source supplies a user's records. skipped counts stored entries that could
// not be decoded.
type Source interface {
	Records(ctx context.Context, userID string) (records []dream.Record, skipped int, err error)
}

// Report is the full analysis of a journal.
type Report struct {
	TotalDreams       int                 `json:"total_dreams" jsonschema:"required"`
	AnalysisDate      time.Time           `json:"analysis_date" jsonschema:"required"`
	ArchetypeAnalysis *archetype.Analysis `json:"archetype_analysis" jsonschema:"required"`
	EmotionalPatterns *emotion.Patterns   `json:"emotional_patterns" jsonschema:"required"`
	TemporalPatterns  *temporal.Patterns  `json:"temporal_patterns" jsonschema:"required"`
	SymbolEvolution   *symbol.Evolution   `json:"symbol_evolution" jsonschema:"required"`
	PersonalInsights  []string            `json:"personal_insights" jsonschema:"required"`
	Recommendations   []string            `json:"recommendations" jsonschema:"required"`
	SkippedRecords    int                 `json:"skipped_records"`
	LexiconVersion    string              `json:"lexicon_version"`
}

// Engine analyzes journals. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	lex       *lexicon.Store
	archetype *archetype.Classifier
	emotion   *emotion.Classifier
	temporal  *temporal.Classifier
	symbol    *symbol.Tracker
	insight   *insight.Aggregator

	workers int
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many records are classified concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock sets the clock used for the report date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine reading from lex.
func New(lex *lexicon.Store, opts ...Option) *Engine {
	e := &Engine{
		lex:       lex,
		archetype: archetype.NewClassifier(lex),
		emotion:   emotion.NewClassifier(lex),
		temporal:  temporal.NewClassifier(lex),
		symbol:    symbol.NewTracker(lex),
		insight:   insight.NewAggregator(lex),
		workers:   DefaultWorkers,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs a one-off analysis with a default Engine.
func Analyze(ctx context.Context, records []dream.Record, lex *lexicon.Store) (*Report, error) {
	return New(lex).Analyze(ctx, records)
}

// slot holds every per-record classifier output for one record.
type slot struct {
	hits     []archetype.Hit
	emotion  emotion.Observation
	temporal temporal.Observation
	symbols  []symbol.Occurrence
}

// Analyze classifies records and builds the Report. An empty journal yields
// ErrNoDreams. Cancellation is checked between records.
func (e *Engine) Analyze(ctx context.Context, records []dream.Record) (*Report, error) {
	if len(records) == 0 {
		metrics.AnalysesTotal.WithLabelValues("no_dreams").Inc()
		return nil, ErrNoDreams
	}
	start := time.Now()

	slots := make([]slot, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = slot{
				hits:     e.archetype.Classify(rec),
				emotion:  e.emotion.Classify(i, rec),
				temporal: e.temporal.Classify(i, rec),
				symbols:  e.symbol.Scan(rec),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.AnalysesTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("classifying records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		metrics.AnalysesTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("classifying records: %w", err)
	}

	hits := make([][]archetype.Hit, len(slots))
	emotions := make([]emotion.Observation, len(slots))
	temporals := make([]temporal.Observation, len(slots))
	scans := make([][]symbol.Occurrence, len(slots))
	for i, s := range slots {
		hits[i] = s.hits
		emotions[i] = s.emotion
		temporals[i] = s.temporal
		scans[i] = s.symbols
	}

	archetypes := e.archetype.Aggregate(hits)
	emo := e.emotion.Aggregate(emotions)
	rep := &Report{
		TotalDreams:       len(records),
		AnalysisDate:      e.now(),
		ArchetypeAnalysis: archetypes,
		EmotionalPatterns: emo,
		TemporalPatterns:  e.temporal.Aggregate(temporals),
		SymbolEvolution:   e.symbol.Track(records, scans),
		PersonalInsights:  e.insight.PersonalInsights(records),
		Recommendations:   e.insight.Recommendations(records, emo, archetypes),
		LexiconVersion:    e.lex.Version(),
	}

	elapsed := time.Since(start)
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	metrics.RecordsAnalyzed.Add(float64(len(records)))
	e.logger.Debug("analysis complete",
		zap.Int("records", len(records)),
		zap.Int("archetypes", archetypes.TotalArchetypes),
		zap.Int("symbols", rep.SymbolEvolution.SymbolsTracked),
		zap.Duration("elapsed", elapsed),
	)
	return rep, nil
}

// AnalyzeSource loads userID's records from src and analyzes them.
func (e *Engine) AnalyzeSource(ctx context.Context, src Source, userID string) (*Report, error) {
	records, skipped, err := src.Records(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading dreams: %w", err)
	}
	if skipped > 0 {
		metrics.RecordsSkipped.Add(float64(skipped))
		e.logger.Warn("skipped undecodable dreams", zap.String("user", userID), zap.Int("skipped", skipped))
	}

	rep, err := e.Analyze(ctx, records)
	if err != nil {
		return nil, err
	}
	rep.SkippedRecords = skipped
	return rep, nil
}

// Recent returns the archetype view of the most recent records.
func (e *Engine) Recent(records []dream.Record) (*archetype.RecentView, error) {
	if len(records) == 0 {
		return nil, ErrNoDreams
	}
	return e.archetype.Recent(records), nil
}

// Patterns returns the psychological patterns view of records.
func (e *Engine) Patterns(records []dream.Record) (*insight.Patterns, error) {
	if len(records) == 0 {
		return nil, ErrNoDreams
	}
	return e.insight.Patterns(records, e.emotion), nil
}

// Lexicon returns the lexicon the engine reads from.
func (e *Engine) Lexicon() *lexicon.Store { return e.lex }
