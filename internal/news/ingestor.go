// Package news ingests content from RSS/Atom feeds and from sites without a
// feed (the crawler family), merging both into a unified, deduplicated,
// history-aware NewsItem list.
package news

import (
	"context"
	"sort"
	"time"

	"resintel/internal/idtracker"
	"resintel/internal/logger"
	"resintel/internal/model"
	"resintel/internal/news/crawler"
)

// Ingestor fetches all configured sources and produces a deduplicated,
// sorted, history-filtered NewsItem batch.
type Ingestor struct {
	feeds   *FeedFetcher
	crawl   *crawler.Crawler
	tracker *idtracker.Tracker
}

// NewIngestor builds an Ingestor. tracker is the fetched-ids tracker used
// for history dedup (normally idtracker.Fetched(...)).
func NewIngestor(feeds *FeedFetcher, crawl *crawler.Crawler, tracker *idtracker.Tracker) *Ingestor {
	return &Ingestor{feeds: feeds, crawl: crawl, tracker: tracker}
}

// FetchAll fetches every enabled source across both families, applies the
// hours time window, same-batch URL dedup, and history dedup against the
// fetched-ids tracker, and returns the result sorted by (weight, published)
// descending.
func (in *Ingestor) FetchAll(ctx context.Context, sources []Source, hours int) ([]model.NewsItem, error) {
	var rssSources, crawlerSources []Source
	for _, s := range sources {
		if !s.Enabled {
			continue
		}
		switch s.FetchType {
		case FetchRSS:
			rssSources = append(rssSources, s)
		case FetchCrawler:
			crawlerSources = append(crawlerSources, s)
		}
	}

	type fetchResult struct {
		items []model.NewsItem
		err   error
	}
	rssCh := make(chan fetchResult, 1)
	crawlCh := make(chan fetchResult, 1)

	go func() {
		items, err := in.feeds.FetchAll(ctx, rssSources)
		rssCh <- fetchResult{items: items, err: err}
	}()
	go func() {
		items, err := in.crawl.FetchAll(ctx, toCrawlerSources(crawlerSources))
		crawlCh <- fetchResult{items: items, err: err}
	}()

	rssResult := <-rssCh
	crawlResult := <-crawlCh

	var all []model.NewsItem
	rssCount, crawlCount := 0, 0

	if rssResult.err != nil {
		logger.Error("rss fetch failed", rssResult.err, nil)
	} else {
		all = append(all, rssResult.items...)
		rssCount = len(rssResult.items)
	}
	if crawlResult.err != nil {
		logger.Error("crawler fetch failed", crawlResult.err, nil)
	} else {
		all = append(all, crawlResult.items...)
		crawlCount = len(crawlResult.items)
	}

	filtered := filterByHours(all, hours)
	unique := dedupByURL(filtered)

	newItems := unique
	historyDedupCount := 0
	if in.tracker != nil {
		seen, err := in.tracker.GetNewsIDs()
		if err == nil {
			newItems = make([]model.NewsItem, 0, len(unique))
			for _, item := range unique {
				if _, ok := seen[item.ID]; !ok {
					newItems = append(newItems, item)
				}
			}
			historyDedupCount = len(unique) - len(newItems)
		}
	}

	sort.SliceStable(newItems, func(i, j int) bool {
		if newItems[i].Weight != newItems[j].Weight {
			return newItems[i].Weight > newItems[j].Weight
		}
		return newItems[i].Published.After(newItems[j].Published)
	})

	logger.Info("news ingest complete", map[string]any{
		"rss":           rssCount,
		"crawler":       crawlCount,
		"unique":        len(unique),
		"history_dedup": historyDedupCount,
		"new":           len(newItems),
	})

	return newItems, nil
}

func filterByHours(items []model.NewsItem, hours int) []model.NewsItem {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if !item.Published.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

func dedupByURL(items []model.NewsItem) []model.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func toCrawlerSources(sources []Source) []crawler.Source {
	out := make([]crawler.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, crawler.Source{
			Name:      s.Name,
			BlogURL:   s.BlogURL,
			Extractor: s.Extractor,
			Category:  s.Category,
			Language:  s.Language,
			Weight:    s.Weight,
			Company:   s.Company,
			JSRender:  s.JSRender,
		})
	}
	return out
}
