// Package collect imports journal entries into the dream store, from
// RSS/Atom journal feeds and from exported JSON files.
package collect

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/config"
	"github.com/samjhill/dream-companion/internal/metrics"
)

// Store receives imported dream payloads.
type Store interface {
	InsertDream(userID string, payload []byte, sourceKey *string) (string, error)
}

// Result holds the results of an import run.
type Result struct {
	TotalFound int
	NewDreams  int
	Duplicates int
	Failed     int
	Sources    map[string]int
}

func newResult() *Result {
	return &Result{Sources: make(map[string]int)}
}

// Collector imports dreams from the configured journal feeds.
type Collector struct {
	store   Store
	feeds   []config.Feed
	parser  *FeedParser
	fetcher *ContentFetcher
	logger  *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithFetcher replaces the full-entry content fetcher.
func WithFetcher(f *ContentFetcher) Option {
	return func(c *Collector) { c.fetcher = f }
}

// NewCollector creates a collector for cfg's journal feeds.
func NewCollector(cfg *config.Config, store Store, opts ...Option) *Collector {
	c := &Collector{
		store:  store,
		feeds:  cfg.Journal.Feeds,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewContentFetcher(0)
	}
	c.parser = NewFeedParser(c.logger)
	return c
}

// Collect imports entries from every feed, optionally only for one user.
func (c *Collector) Collect(ctx context.Context, user string) *Result {
	r := newResult()

	for _, fc := range c.feeds {
		if user != "" && fc.User != user {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		entries, err := c.parser.Parse(ctx, fc)
		if err != nil {
			c.logger.Warn("failed to parse feed", zap.String("url", fc.URL), zap.Error(err))
			r.Failed++
			continue
		}
		r.TotalFound += len(entries)

		before := r.NewDreams
		for _, entry := range entries {
			if fc.FetchFull && entry.Link != "" {
				if text, err := c.fetcher.Fetch(ctx, entry.Link); err == nil && text != "" {
					entry.Content = text
				} else if err != nil {
					c.logger.Debug("full entry fetch failed", zap.String("url", entry.Link), zap.Error(err))
				}
			}
			c.insert(r, fc.User, entry.Source, entry.Key, entry.payload())
		}
		metrics.FeedEntriesImported.WithLabelValues(sourceName(fc)).Add(float64(r.NewDreams - before))
	}

	c.logger.Info("import complete",
		zap.Int("found", r.TotalFound),
		zap.Int("new", r.NewDreams),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("failed", r.Failed),
	)
	return r
}

// insert stores one payload and tallies the outcome into r.
func (c *Collector) insert(r *Result, user, source, key string, payload []byte) {
	var sourceKey *string
	if key != "" {
		sourceKey = &key
	}
	id, err := c.store.InsertDream(user, payload, sourceKey)
	switch {
	case err != nil:
		c.logger.Warn("failed to store dream", zap.String("user", user), zap.Error(err))
		r.Failed++
	case id == "":
		r.Duplicates++
	default:
		r.NewDreams++
		r.Sources[source]++
	}
}

// journalPayload is the shape the journal client stores.
type journalPayload struct {
	DreamContent string `json:"dreamContent"`
	Summary      string `json:"summary,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	Source       string `json:"source,omitempty"`
}

func marshalPayload(content, summary string, created *time.Time, source string) []byte {
	p := journalPayload{DreamContent: content, Summary: summary, Source: source}
	if created != nil {
		p.CreatedAt = created.UTC().Format(time.RFC3339)
	}
	data, _ := json.Marshal(p)
	return data
}
