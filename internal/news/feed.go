package news

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/semaphore"

	"resintel/internal/logger"
	"resintel/internal/model"
)

// GenerateID derives a stable 16-hex-char id from a URL, matching the
// original fetcher's MD5-prefix scheme so ids remain stable across runs
// (and therefore meaningful to the id tracker's history dedup).
func GenerateID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// FeedFetcher fetches RSS/Atom sources concurrently, bounded by a
// semaphore, tolerating individual source failures.
type FeedFetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	sem        *semaphore.Weighted
	maxRetries int
}

// NewFeedFetcher builds a FeedFetcher. timeout bounds each HTTP request;
// maxConcurrent bounds how many sources are fetched at once.
func NewFeedFetcher(timeout time.Duration, maxConcurrent int) *FeedFetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	httpClient := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = httpClient

	return &FeedFetcher{
		httpClient: httpClient,
		parser:     parser,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		maxRetries: 3,
	}
}

// FetchAll fetches every source concurrently, tolerating per-source
// failure, and returns the merged item list.
func (f *FeedFetcher) FetchAll(ctx context.Context, sources []Source) ([]model.NewsItem, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	type result struct {
		items []model.NewsItem
		err   error
		name  string
	}
	results := make(chan result, len(sources))

	for _, src := range sources {
		src := src
		go func() {
			if err := f.sem.Acquire(ctx, 1); err != nil {
				results <- result{err: err, name: src.Name}
				return
			}
			defer f.sem.Release(1)

			items, err := f.fetchWithRetry(ctx, src)
			results <- result{items: items, err: err, name: src.Name}
		}()
	}

	var all []model.NewsItem
	success, fail := 0, 0
	for range sources {
		r := <-results
		if r.err != nil {
			logger.Warn("rss source fetch failed", map[string]any{"source": r.name, "error": r.err.Error()})
			fail++
			continue
		}
		all = append(all, r.items...)
		success++
	}

	logger.Info("rss fetch complete", map[string]any{"success": success, "failed": fail, "items": len(all)})
	return all, nil
}

func (f *FeedFetcher) fetchWithRetry(ctx context.Context, src Source) ([]model.NewsItem, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		feed, err := f.parser.ParseURLWithContext(src.RSSURL, ctx)
		if err == nil {
			return feedToItems(feed, src), nil
		}
		lastErr = err
		wait := time.Duration(1<<uint(attempt)) * time.Second
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("fetching feed %s: %w", src.Name, lastErr)
}

func feedToItems(feed *gofeed.Feed, src Source) []model.NewsItem {
	items := make([]model.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, err := entryToNewsItem(entry, src)
		if err != nil {
			logger.Warn("skipping unparseable rss entry", map[string]any{"source": src.Name, "error": err.Error()})
			continue
		}
		items = append(items, item)
	}
	return items
}

func entryToNewsItem(entry *gofeed.Item, src Source) (model.NewsItem, error) {
	url := entry.Link
	if url == "" {
		url = entry.GUID
	}
	if url == "" {
		return model.NewsItem{}, fmt.Errorf("rss entry missing url")
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return model.NewsItem{}, fmt.Errorf("rss entry missing title")
	}

	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	summary := cleanHTMLToText(entry.Description)
	if summary == "" {
		summary = cleanHTMLToText(entry.Content)
	}
	summary = truncateText(summary, 500)

	content := cleanHTMLToText(entry.Content)
	if content == "" {
		content = cleanHTMLToText(entry.Description)
	}

	return model.NewsItem{
		ID:             GenerateID(url),
		Title:          title,
		URL:            url,
		SourceName:     src.Name,
		SourceCategory: src.Category,
		Language:       src.Language,
		Published:      published,
		Weight:         src.Weight,
		Summary:        summary,
		Content:        content,
		FetchType:      model.NewsFetchFeed,
		Company:        src.Company,
	}, nil
}
