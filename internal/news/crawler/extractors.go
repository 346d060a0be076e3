package crawler

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"resintel/internal/model"
)

// cssExtractor implements the common shape shared by every site-specific
// extractor below: a listing schema producing title/url/date/summary per
// item card, and an optional detail schema that pulls the article body from
// a single container selector on the item's own page.
type cssExtractor struct {
	baseURL      string
	listing      ExtractionSchema
	detail       ExtractionSchema
	hasDetail    bool
	requireInURL string // if set, listing urls not containing this substring are dropped
}

func (e cssExtractor) ExtractionSchema() ExtractionSchema { return e.listing }
func (e cssExtractor) BaseURL() string                    { return e.baseURL }

func (e cssExtractor) DetailSchema() (ExtractionSchema, bool) {
	return e.detail, e.hasDetail
}

func (e cssExtractor) ParseListing(doc *goquery.Document, src Source) []model.NewsItem {
	var items []model.NewsItem
	seen := make(map[string]struct{})

	doc.Find(e.listing.BaseSelector).Each(func(_ int, sel *goquery.Selection) {
		fields := extractFields(sel, e.listing.Fields)
		title := strings.TrimSpace(fields["title"])
		url := strings.TrimSpace(fields["url"])
		if title == "" || url == "" {
			return
		}
		if e.requireInURL != "" && !strings.Contains(url, e.requireInURL) {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}

		items = append(items, model.NewsItem{
			Title:          title,
			URL:            url,
			SourceName:     src.Name,
			SourceCategory: "ai",
			Language:       src.Language,
			Published:      parseListingDate(fields["date"]),
			Summary:        strings.TrimSpace(fields["summary"]),
			Weight:         src.Weight,
			FetchType:      model.NewsFetchCrawler,
			Company:        src.Company,
		})
	})

	return items
}

func (e cssExtractor) ParseDetail(doc *goquery.Document) string {
	if !e.hasDetail {
		return ""
	}
	sel := doc.Find(e.detail.BaseSelector).First()
	if sel.Length() == 0 {
		return ""
	}
	fields := extractFields(sel, e.detail.Fields)
	if content := fields["content"]; content != "" {
		return content
	}
	// When the content selector finds nothing inside the container, the
	// container's own text is the article body.
	return strings.TrimSpace(sel.Text())
}

func parseListingDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC()
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

// registry maps a company/extractor identifier to its Extractor, mirroring
// the reference implementation's extractors/__init__.py registry.
var registry = map[string]Extractor{
	"qwen": cssExtractor{
		baseURL: "https://qwen.ai",
		listing: ExtractionSchema{
			BaseSelector: "article, a[href*='/blog/'], .research-card, .post-card",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description, .excerpt"},
			},
		},
	},
	"deepseek": cssExtractor{
		baseURL: "https://api-docs.deepseek.com",
		listing: ExtractionSchema{
			BaseSelector: "article, .news-item, .post, a[href*='/news/']",
			Fields: []Field{
				{Name: "title", Selector: "h1, h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date, .meta"},
				{Name: "summary", Selector: "p, .summary, .excerpt"},
			},
		},
	},
	"claude": cssExtractor{
		baseURL:      "https://claude.com",
		requireInURL: "/blog/",
		listing: ExtractionSchema{
			BaseSelector: "a[href^='/blog/'], article, .post, .post-card",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description, .excerpt"},
			},
		},
		hasDetail: true,
		detail: ExtractionSchema{
			BaseSelector: "main, article",
			Fields: []Field{
				{Name: "title", Selector: "h1"},
				{Name: "date", Selector: "time, .date"},
				{Name: "content", Selector: "main, article"},
			},
		},
	},
	"cursor": cssExtractor{
		baseURL:      "https://cursor.com",
		requireInURL: "/blog",
		listing: ExtractionSchema{
			BaseSelector: "a[href*='/blog'], article, .post-card",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description"},
			},
		},
		hasDetail: true,
		detail: ExtractionSchema{
			BaseSelector: "main, article",
			Fields: []Field{
				{Name: "content", Selector: "main, article"},
			},
		},
	},
	"google_research": cssExtractor{
		baseURL: "https://research.google",
		listing: ExtractionSchema{
			BaseSelector: "article, .post-card, a[href*='/blog/']",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description"},
			},
		},
	},
	"deepmind": cssExtractor{
		baseURL: "https://deepmind.google",
		listing: ExtractionSchema{
			BaseSelector: "article, .post-card, a[href*='/discover/']",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description"},
			},
		},
	},
	"gemini": cssExtractor{
		baseURL: "https://blog.google",
		listing: ExtractionSchema{
			BaseSelector: "article, .post-card, a[href*='/technology/']",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description"},
			},
		},
	},
	"anthropic": cssExtractor{
		baseURL: "https://www.anthropic.com",
		listing: ExtractionSchema{
			BaseSelector: "article, a[href*='/news/'], .post-card",
			Fields: []Field{
				{Name: "title", Selector: "h2, h3, .title"},
				{Name: "url", Type: "attribute", Attribute: "href"},
				{Name: "date", Selector: "time, .date"},
				{Name: "summary", Selector: "p, .description"},
			},
		},
	},
}

// Get returns the extractor registered for name (case-insensitive), which
// is normally a source's extractor or company identifier.
func Get(name string) (Extractor, bool) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}
