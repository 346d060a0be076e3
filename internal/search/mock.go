package search

import (
	"context"
	"fmt"
)

// MockProvider implements Provider with canned results, for tests and for
// running the deep-analysis graph without network access.
type MockProvider struct {
	name    string
	results []Result
}

// NewMockProvider creates a new mock search provider with a few default results.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		results: []Result{
			{URL: "https://example.com/article1", Title: "Example Article 1", Snippet: "A mock search result.", Domain: "example.com", Source: "Mock", Rank: 1},
			{URL: "https://test.org/article2", Title: "Test Article 2", Snippet: "Another mock result.", Domain: "test.org", Source: "Mock", Rank: 2},
		},
	}
}

// GetName implements Provider.
func (m *MockProvider) GetName() string {
	return m.name
}

// Search implements Provider, ignoring the network and returning canned results.
func (m *MockProvider) Search(_ context.Context, query string, config Config) ([]Result, error) {
	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}

	results := make([]Result, maxResults)
	for i := 0; i < maxResults; i++ {
		r := m.results[i]
		r.Title = fmt.Sprintf("%s (for query: %s)", r.Title, query)
		results[i] = r
	}
	return results, nil
}

// SetResults overrides the canned results, for test customization.
func (m *MockProvider) SetResults(results []Result) {
	m.results = results
}
