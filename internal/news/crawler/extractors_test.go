package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const claudeDetailHTML = `
<html><body>
<main>
  <h1>Claude does something new</h1>
  <time>2026-02-01</time>
  <p>Full article body text goes here.</p>
</main>
</body></html>`

func TestClaudeExtractorParseDetail(t *testing.T) {
	extractor, ok := Get("claude")
	if !ok {
		t.Fatalf("expected claude extractor to be registered")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(claudeDetailHTML))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	content := extractor.ParseDetail(doc)
	if !strings.Contains(content, "Full article body text") {
		t.Fatalf("expected detail content to include article body, got %q", content)
	}
}

func TestExtractorWithoutDetailSchemaReturnsEmpty(t *testing.T) {
	extractor, ok := Get("qwen")
	if !ok {
		t.Fatalf("expected qwen extractor to be registered")
	}
	if _, hasDetail := extractor.DetailSchema(); hasDetail {
		t.Fatalf("qwen extractor should not declare a detail schema")
	}

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(claudeDetailHTML))
	if got := extractor.ParseDetail(doc); got != "" {
		t.Fatalf("expected empty detail content without a schema, got %q", got)
	}
}

func TestParseListingDateFallsBackToNow(t *testing.T) {
	got := parseListingDate("not a date")
	if got.IsZero() {
		t.Fatalf("expected a non-zero fallback time")
	}
}

func TestParseListingDateParsesISO(t *testing.T) {
	got := parseListingDate("2026-01-05")
	if got.Year() != 2026 || got.Month() != 1 || got.Day() != 5 {
		t.Fatalf("unexpected parsed date: %v", got)
	}
}
