package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"resintel/internal/logger"
)

// DuckDuckGoProvider implements Provider by scraping DuckDuckGo's HTML
// results page. Used as the fallback backend when Tavily is unavailable
// or unconfigured.
type DuckDuckGoProvider struct {
	client    *http.Client
	userAgent string
	rateLimit time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider.
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		rateLimit: 2 * time.Second,
	}
}

// GetName implements Provider.
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search implements Provider.
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	d.waitForRateLimit()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.buildSearchURL(query, config), nil)
	if err != nil {
		return nil, fmt.Errorf("search: building duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: duckduckgo request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: reading duckduckgo response: %w", err)
	}
	bodyStr := string(body)

	if strings.Contains(bodyStr, "captcha") || strings.Contains(bodyStr, "Captcha") || strings.Contains(bodyStr, "blocked") {
		return nil, fmt.Errorf("search: duckduckgo blocked the request (captcha)")
	}

	results := d.parseSearchResults(bodyStr, config.MaxResults)
	logger.Info("duckduckgo search completed", map[string]any{"query": query, "results": len(results)})
	return results, nil
}

// waitForRateLimit serializes calls to at most one every d.rateLimit,
// holding the lock across the sleep so concurrent callers queue up behind
// it rather than all reading a stale lastCall and sleeping in parallel.
func (d *DuckDuckGoProvider) waitForRateLimit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if elapsed := time.Since(d.lastCall); elapsed < d.rateLimit {
		time.Sleep(d.rateLimit - elapsed)
	}
	d.lastCall = time.Now()
}

func (d *DuckDuckGoProvider) buildSearchURL(query string, config Config) string {
	params := url.Values{}
	if config.SinceTime > 0 {
		days := int(config.SinceTime.Hours() / 24)
		switch {
		case days <= 1:
			params.Set("df", "d")
		case days <= 7:
			params.Set("df", "w")
		case days <= 30:
			params.Set("df", "m")
		case days <= 365:
			params.Set("df", "y")
		}
	}
	params.Set("q", query)
	params.Set("b", "0")
	params.Set("kl", "us-en")
	params.Set("s", "0")
	return "https://html.duckduckgo.com/html/?" + params.Encode()
}

var (
	ddgResultPattern  = regexp.MustCompile(`<div class="result[^"]*"[^>]*>(.*?)</div>`)
	ddgTitlePattern   = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	ddgTagPattern     = regexp.MustCompile(`<[^>]*>`)
	ddgSpacePattern   = regexp.MustCompile(`\s+`)
)

func (d *DuckDuckGoProvider) parseSearchResults(html string, maxResults int) []Result {
	var results []Result

	for i, match := range ddgResultPattern.FindAllStringSubmatch(html, -1) {
		if i >= maxResults {
			break
		}
		resultHTML := match[1]

		titleMatch := ddgTitlePattern.FindStringSubmatch(resultHTML)
		if len(titleMatch) < 3 {
			continue
		}

		finalURL := d.extractFinalURL(titleMatch[1])
		if finalURL == "" {
			continue
		}

		snippet := ""
		if snippetMatch := ddgSnippetPattern.FindStringSubmatch(resultHTML); len(snippetMatch) >= 2 {
			snippet = d.cleanHTMLText(snippetMatch[1])
		}

		results = append(results, Result{
			URL:     finalURL,
			Title:   d.cleanHTMLText(titleMatch[2]),
			Snippet: snippet,
			Domain:  d.extractDomain(finalURL),
			Source:  "DuckDuckGo",
			Rank:    i + 1,
		})
	}

	return results
}

func (d *DuckDuckGoProvider) extractFinalURL(redirectURL string) string {
	if strings.HasPrefix(redirectURL, "/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err != nil {
				return ""
			}
			return decoded
		}
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

func (d *DuckDuckGoProvider) extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func (d *DuckDuckGoProvider) cleanHTMLText(text string) string {
	text = ddgTagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = ddgSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
