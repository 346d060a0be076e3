package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"resintel/internal/logger"
)

// TavilyProvider implements Provider using the Tavily search API, the
// spec's primary web-search backend for the deep-analysis researcher.
type TavilyProvider struct {
	apiKey string
	client *http.Client
}

// NewTavilyProvider creates a new Tavily search provider.
func NewTavilyProvider(apiKey string) *TavilyProvider {
	return &TavilyProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetName implements Provider.
func (t *TavilyProvider) GetName() string {
	return "Tavily"
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements Provider.
func (t *TavilyProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "advanced",
	})
	if err != nil {
		return nil, fmt.Errorf("search: encoding tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.tavily.com/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: building tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: tavily request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: tavily returned status %d", resp.StatusCode)
	}

	var apiResponse tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("search: parsing tavily response: %w", err)
	}

	results := make([]Result, 0, len(apiResponse.Results))
	for i, item := range apiResponse.Results {
		results = append(results, Result{
			URL:     item.URL,
			Title:   item.Title,
			Snippet: item.Content,
			Domain:  extractDomain(item.URL),
			Source:  "Tavily",
			Rank:    i + 1,
		})
	}

	logger.Info("tavily search completed", map[string]any{"query": query, "results": len(results)})
	return results, nil
}
