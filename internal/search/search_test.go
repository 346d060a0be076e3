package search

import (
	"testing"
	"time"
)

func TestProviderTypeConstants(t *testing.T) {
	expected := map[ProviderType]string{
		ProviderTypeTavily:     "tavily",
		ProviderTypeDuckDuckGo: "duckduckgo",
		ProviderTypeGoogle:     "google",
		ProviderTypeSerpAPI:    "serpapi",
		ProviderTypeMock:       "mock",
	}
	for providerType, want := range expected {
		if string(providerType) != want {
			t.Errorf("expected %s to be %q, got %q", providerType, want, string(providerType))
		}
	}
}

func TestProviderFactoryCreateProvider(t *testing.T) {
	factory := NewProviderFactory()

	if _, err := factory.CreateProvider(ProviderTypeTavily, nil); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey for tavily without api_key, got %v", err)
	}
	if p, err := factory.CreateProvider(ProviderTypeTavily, map[string]string{"api_key": "k"}); err != nil || p.GetName() != "Tavily" {
		t.Fatalf("expected a Tavily provider, got %v, %v", p, err)
	}

	if p, err := factory.CreateProvider(ProviderTypeDuckDuckGo, nil); err != nil || p.GetName() != "DuckDuckGo" {
		t.Fatalf("expected a DuckDuckGo provider, got %v, %v", p, err)
	}

	if _, err := factory.CreateProvider(ProviderTypeGoogle, nil); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey for google without credentials, got %v", err)
	}
	if _, err := factory.CreateProvider(ProviderTypeGoogle, map[string]string{"api_key": "k"}); err != ErrMissingSearchID {
		t.Fatalf("expected ErrMissingSearchID for google without search_id, got %v", err)
	}

	if _, err := factory.CreateProvider("bogus", nil); err != ErrUnsupportedProvider {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestMockProviderRespectsMaxResults(t *testing.T) {
	provider := NewMockProvider()
	results, err := provider.Search(t.Context(), "transformers", Config{MaxResults: 1, Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Rank != 1 {
		t.Fatalf("expected rank 1, got %d", results[0].Rank)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := Config{MaxResults: 5, SinceTime: 24 * time.Hour, Language: "en"}
	if cfg.MaxResults != 5 || cfg.SinceTime != 24*time.Hour || cfg.Language != "en" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
