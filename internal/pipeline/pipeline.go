// Package pipeline runs a full journal refresh: import the configured feeds,
// then analyze and store a report for every journal.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/analysis"
	"github.com/samjhill/dream-companion/internal/collect"
	"github.com/samjhill/dream-companion/internal/config"
	"github.com/samjhill/dream-companion/internal/database"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps   []StepResult
	Reports int
}

// Pipeline orchestrates the import and analysis steps.
type Pipeline struct {
	cfg         *config.Config
	db          *database.DB
	engine      *analysis.Engine
	collectOpts []collect.Option
	logger      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline and its collector.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCollectOptions passes extra options to the feed collector.
func WithCollectOptions(opts ...collect.Option) Option {
	return func(p *Pipeline) { p.collectOpts = append(p.collectOpts, opts...) }
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, engine *analysis.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, db: db, engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run imports feeds and analyzes journals. A non-empty user limits both
// steps to that journal.
func (p *Pipeline) Run(ctx context.Context, user string) *Result {
	r := &Result{}

	r.Steps = append(r.Steps, p.runImport(ctx, user))
	if err := ctx.Err(); err != nil {
		return r
	}

	step, reports := p.runAnalyze(ctx, user)
	r.Steps = append(r.Steps, step)
	r.Reports = reports
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(ctx context.Context, user string) *Result {
	r := &Result{}

	feeds := 0
	for _, fc := range p.cfg.Journal.Feeds {
		if user == "" || fc.User == user {
			feeds++
		}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Import",
		Summary: fmt.Sprintf("[dry-run] %d feeds would be imported", feeds),
	})

	users, err := p.users(ctx, user)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Analyze", Err: err})
		return r
	}
	dreams := 0
	for _, u := range users {
		n, err := p.db.CountDreams(u)
		if err != nil {
			r.Steps = append(r.Steps, StepResult{Name: "Analyze", Err: err})
			return r
		}
		dreams += n
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("[dry-run] %d journals with %d dreams would be analyzed", len(users), dreams),
	})
	return r
}

func (p *Pipeline) runImport(ctx context.Context, user string) StepResult {
	p.logger.Info("step 1/2: importing journal feeds")
	opts := append([]collect.Option{collect.WithLogger(p.logger)}, p.collectOpts...)
	result := collect.NewCollector(p.cfg, p.db, opts...).Collect(ctx, user)
	return StepResult{
		Name:    "Import",
		Summary: fmt.Sprintf("Found %d new dreams (%d total, %d duplicates, %d failed)", result.NewDreams, result.TotalFound, result.Duplicates, result.Failed),
	}
}

func (p *Pipeline) runAnalyze(ctx context.Context, user string) (StepResult, int) {
	p.logger.Info("step 2/2: analyzing journals")
	users, err := p.users(ctx, user)
	if err != nil {
		return StepResult{Name: "Analyze", Err: err}, 0
	}

	src := database.NewRecordSource(p.db)
	analyzed, empty, failed, dreams := 0, 0, 0, 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return StepResult{Name: "Analyze", Err: err}, analyzed
		}

		rep, err := p.engine.AnalyzeSource(ctx, src, u)
		if errors.Is(err, analysis.ErrNoDreams) {
			empty++
			continue
		}
		if err == nil {
			err = p.save(u, rep)
		}
		if err != nil {
			failed++
			p.logger.Error("analyzing journal", zap.String("user", u), zap.Error(err))
			continue
		}
		analyzed++
		dreams += rep.TotalDreams
	}

	return StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Analyzed %d journals (%d dreams), %d empty, %d failed", analyzed, dreams, empty, failed),
	}, analyzed
}

func (p *Pipeline) users(ctx context.Context, user string) ([]string, error) {
	if user != "" {
		return []string{user}, nil
	}
	users, err := p.db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	return users, nil
}

func (p *Pipeline) save(user string, rep *analysis.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := p.db.InsertReport(user, rep.TotalDreams, rep.SkippedRecords, rep.LexiconVersion, data); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}
