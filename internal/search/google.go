package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resintel/internal/logger"
)

// GoogleProvider implements Provider using the Google Custom Search API.
type GoogleProvider struct {
	apiKey    string
	searchID  string
	client    *http.Client
	rateLimit time.Duration
	lastCall  time.Time
}

// NewGoogleProvider creates a new Google Custom Search provider.
func NewGoogleProvider(apiKey, searchID string) *GoogleProvider {
	return &GoogleProvider{
		apiKey:    apiKey,
		searchID:  searchID,
		client:    &http.Client{Timeout: 30 * time.Second},
		rateLimit: 100 * time.Millisecond,
	}
}

// GetName implements Provider.
func (g *GoogleProvider) GetName() string {
	return "Google Custom Search"
}

// Search implements Provider.
func (g *GoogleProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if elapsed := time.Since(g.lastCall); elapsed < g.rateLimit {
		time.Sleep(g.rateLimit - elapsed)
	}
	g.lastCall = time.Now()

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(clampInt(config.MaxResults, 1, 10)))

	if config.SinceTime > 0 {
		days := int(config.SinceTime.Hours() / 24)
		switch {
		case days <= 1:
			params.Set("sort", "date:r:"+time.Now().AddDate(0, 0, -1).Format("20060102"))
		case days <= 7:
			params.Set("sort", "date:r:"+time.Now().AddDate(0, 0, -7).Format("20060102"))
		case days <= 30:
			params.Set("sort", "date:r:"+time.Now().AddDate(0, 0, -30).Format("20060102"))
		case days <= 365:
			params.Set("sort", "date:r:"+time.Now().AddDate(0, 0, -365).Format("20060102"))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/customsearch/v1?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: building google cse request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: google cse request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: google cse returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("search: parsing google cse response: %w", err)
	}
	if apiResponse.Error.Code != 0 {
		return nil, fmt.Errorf("search: google cse error (%d): %s", apiResponse.Error.Code, apiResponse.Error.Message)
	}

	results := make([]Result, 0, len(apiResponse.Items))
	for i, item := range apiResponse.Items {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  extractDomain(item.Link),
			Source:  "Google",
			Rank:    i + 1,
		})
	}

	logger.Info("google custom search completed", map[string]any{"query": query, "results": len(results)})
	return results, nil
}

func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func clampInt(v, lo, hi int) int {
	if v <= 0 {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
