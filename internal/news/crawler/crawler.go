// Package crawler fetches news from sites that publish no RSS/Atom feed, by
// applying a per-site CSS extraction schema to the fetched listing page and,
// for a bounded number of items, to each item's detail page.
//
// The reference implementation renders JavaScript via a headless browser
// (crawl4ai/Playwright) before extracting. This package has no headless
// browser available, so every page is fetched with a plain HTTP GET: sites that set
// JSRender will simply extract whatever the server renders without JS, which
// degrades gracefully (fewer or no items) rather than failing the run.
package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/semaphore"

	"resintel/internal/logger"
	"resintel/internal/model"
)

// Source describes one crawler-family news source.
type Source struct {
	Name      string
	BlogURL   string
	Extractor string
	Category  string
	Language  string
	Weight    float64
	Company   string
	JSRender  bool
}

// Field describes one CSS-extracted field within an item, mirroring the
// JsonCssExtractionStrategy schema shape: a selector plus either "text" or
// "attribute" extraction.
type Field struct {
	Name      string
	Selector  string
	Type      string // "text" or "attribute"
	Attribute string // used when Type == "attribute"
}

// ExtractionSchema is the CSS schema for one listing page: a base selector
// identifying each item card, plus the fields to pull from it.
type ExtractionSchema struct {
	BaseSelector string
	Fields       []Field
}

// Extractor knows how to turn a listing page (and optionally a detail page)
// for one site into NewsItems. Each supported company/site implements one.
type Extractor interface {
	// ExtractionSchema returns the CSS schema for the listing page.
	ExtractionSchema() ExtractionSchema
	// ParseListing turns the raw listing-page HTML into NewsItems.
	ParseListing(doc *goquery.Document, src Source) []model.NewsItem
	// BaseURL is used to resolve relative links found on the listing page.
	BaseURL() string
	// DetailSchema returns the CSS schema for a detail page, or the zero
	// value if this extractor has no detail-page enrichment.
	DetailSchema() (ExtractionSchema, bool)
	// ParseDetail extracts the article body text from a detail page's HTML.
	// Only called when DetailSchema reports ok.
	ParseDetail(doc *goquery.Document) string
}

// maxDetailItems bounds how many items per source get detail-page content,
// to control request volume and latency.
const maxDetailItems = 10

// Crawler fetches listing pages (and bounded detail pages) across sources
// concurrently. Detail-page fetches use a separate semaphore from
// source-level fetches: nesting them under the same semaphore would
// deadlock once every source-level slot is waiting on a detail fetch that
// needs a slot of its own.
type Crawler struct {
	httpClient      *http.Client
	sourceSemaphore *semaphore.Weighted
	detailSemaphore *semaphore.Weighted
}

// New builds a Crawler. maxConcurrent bounds both source-level and
// detail-page concurrency (independently).
func New(timeout time.Duration, maxConcurrent int) *Crawler {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Crawler{
		httpClient:      &http.Client{Timeout: timeout},
		sourceSemaphore: semaphore.NewWeighted(int64(maxConcurrent)),
		detailSemaphore: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// FetchAll crawls every source concurrently, tolerating per-source failure.
func (c *Crawler) FetchAll(ctx context.Context, sources []Source) ([]model.NewsItem, error) {
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
			if err := c.sourceSemaphore.Acquire(ctx, 1); err != nil {
				results <- result{err: err, name: src.Name}
				return
			}
			defer c.sourceSemaphore.Release(1)

			items, err := c.fetchSource(ctx, src)
			results <- result{items: items, err: err, name: src.Name}
		}()
	}

	var all []model.NewsItem
	success, fail := 0, 0
	for range sources {
		r := <-results
		if r.err != nil {
			logger.Warn("crawler source fetch failed", map[string]any{"source": r.name, "error": r.err.Error()})
			fail++
			continue
		}
		all = append(all, r.items...)
		success++
	}

	logger.Info("crawler fetch complete", map[string]any{"success": success, "failed": fail, "items": len(all)})
	return all, nil
}

func (c *Crawler) fetchSource(ctx context.Context, src Source) ([]model.NewsItem, error) {
	extractor, ok := Get(src.Extractor)
	if !ok {
		extractor, ok = Get(src.Company)
	}
	if !ok {
		logger.Error("no extractor registered for source", nil, map[string]any{"source": src.Name, "extractor": src.Extractor})
		return nil, nil
	}

	doc, err := c.fetchDocument(ctx, src.BlogURL)
	if err != nil {
		return nil, err
	}

	items := extractor.ParseListing(doc, src)
	base := extractor.BaseURL()
	seenURLs := make(map[string]struct{}, len(items))
	deduped := items[:0]
	for _, item := range items {
		item.URL = resolveURL(base, item.URL)
		if _, ok := seenURLs[item.URL]; ok {
			continue
		}
		seenURLs[item.URL] = struct{}{}
		item.ID = GenerateID(item.URL)
		deduped = append(deduped, item)
	}
	items = deduped

	if _, ok := extractor.DetailSchema(); ok {
		c.enrichWithDetail(ctx, extractor, items)
	}

	logger.Debug("crawled source", map[string]any{"source": src.Name, "items": len(items)})
	return items, nil
}

func (c *Crawler) enrichWithDetail(ctx context.Context, extractor Extractor, items []model.NewsItem) {
	target := items
	if len(target) > maxDetailItems {
		target = target[:maxDetailItems]
	}

	done := make(chan struct{}, len(target))
	for i := range target {
		i := i
		go func() {
			defer func() { done <- struct{}{} }()
			if err := c.detailSemaphore.Acquire(ctx, 1); err != nil {
				return
			}
			defer c.detailSemaphore.Release(1)

			content, err := c.fetchDetailContent(ctx, extractor, target[i].URL)
			if err != nil {
				logger.Debug("detail page fetch failed", map[string]any{"url": target[i].URL, "error": err.Error()})
				return
			}
			if content != "" {
				target[i].Content = content
			}
		}()
	}
	for range target {
		<-done
	}
}

func (c *Crawler) fetchDetailContent(ctx context.Context, extractor Extractor, itemURL string) (string, error) {
	doc, err := c.fetchDocument(ctx, itemURL)
	if err != nil {
		return "", err
	}

	content := extractor.ParseDetail(doc)
	if content == "" {
		// Fall back to readability's full-article extraction when the
		// extractor's own detail selectors miss (layout drift, A/B tests).
		content = readabilityFallback(itemURL, doc)
	}
	return cleanText(content), nil
}

func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "resintel/1.0 (+https://github.com/)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return goquery.NewDocumentFromReader(resp.Body)
}

func readabilityFallback(pageURL string, doc *goquery.Document) string {
	html, err := doc.Html()
	if err != nil {
		return ""
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return article.TextContent
}

func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// extractFields applies a Field list to a selection, returning name->value.
func extractFields(sel *goquery.Selection, fields []Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		target := sel
		if f.Selector != "" {
			target = sel.Find(f.Selector).First()
		}
		if target.Length() == 0 {
			continue
		}
		switch f.Type {
		case "attribute":
			v, ok := target.Attr(f.Attribute)
			if !ok && f.Selector == "" {
				// A card that does not carry the attribute itself (e.g. an
				// <article> wrapping its link) takes it from its first
				// descendant that does.
				v, ok = target.Find("[" + f.Attribute + "]").First().Attr(f.Attribute)
			}
			if ok {
				out[f.Name] = strings.TrimSpace(v)
			}
		default:
			out[f.Name] = strings.TrimSpace(target.Text())
		}
	}
	return out
}
