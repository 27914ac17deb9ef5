package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/config"
)

const maxPerFeed = 50

// FeedEntry is a journal entry parsed from a feed.
type FeedEntry struct {
	Key         string // stable per-feed identity used to skip re-imports
	Link        string
	Title       string
	PublishedAt *time.Time
	Content     string
	Source      string
}

func (e FeedEntry) payload() []byte {
	return marshalPayload(e.Content, e.Title, e.PublishedAt, e.Source)
}

// FeedParser parses RSS/Atom journal feeds.
type FeedParser struct {
	parser *gofeed.Parser
	logger *zap.Logger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(logger *zap.Logger) *FeedParser {
	return &FeedParser{parser: gofeed.NewParser(), logger: logger}
}

// Parse fetches one feed and returns up to maxPerFeed entries with content.
func (fp *FeedParser) Parse(ctx context.Context, fc config.Feed) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, err
	}

	name := sourceName(fc)
	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item, name)
		if entry == nil {
			continue
		}
		entries = append(entries, *entry)
	}
	fp.logger.Debug("parsed feed", zap.String("source", name), zap.Int("entries", len(entries)))
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	key := item.GUID
	if key == "" {
		key = item.Link
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}
	if content == "" && item.Link == "" {
		return nil
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	if key != "" {
		key = "feed:" + key
	}
	return &FeedEntry{
		Key:         key,
		Link:        item.Link,
		Title:       strings.TrimSpace(item.Title),
		PublishedAt: published,
		Content:     content,
		Source:      source,
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// sourceName is the feed's configured name, or one derived from its host.
func sourceName(fc config.Feed) string {
	if fc.Name != "" {
		return fc.Name
	}
	return extractSourceName(fc.URL)
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
