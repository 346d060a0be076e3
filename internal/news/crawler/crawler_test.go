package crawler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"resintel/internal/model"
)

const qwenListingHTML = `
<html><body>
<article>
  <h2>Qwen3 Technical Report</h2>
  <a href="/blog/qwen3">read more</a>
  <time>2026-01-05</time>
  <p>A summary of the report.</p>
</article>
<article>
  <h2>Qwen3 Technical Report</h2>
  <a href="/blog/qwen3">duplicate card</a>
  <time>2026-01-05</time>
  <p>Same article, different card markup.</p>
</article>
</body></html>`

func TestQwenExtractorParsesListing(t *testing.T) {
	extractor, ok := Get("qwen")
	if !ok {
		t.Fatalf("expected qwen extractor to be registered")
	}

	doc := mustDoc(t, qwenListingHTML)
	items := extractor.ParseListing(doc, Source{Name: "qwen", Weight: 0.9})

	if len(items) != 1 {
		t.Fatalf("expected listing dedup within the page to yield 1 item, got %d", len(items))
	}
	if items[0].Title != "Qwen3 Technical Report" {
		t.Fatalf("unexpected title: %q", items[0].Title)
	}
	if items[0].FetchType != model.NewsFetchCrawler {
		t.Fatalf("expected crawler fetch type, got %q", items[0].FetchType)
	}
}

func TestGetUnknownExtractor(t *testing.T) {
	if _, ok := Get("not-a-real-extractor"); ok {
		t.Fatalf("expected unknown extractor name to miss")
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, ref, want string
	}{
		{"https://qwen.ai", "/blog/qwen3", "https://qwen.ai/blog/qwen3"},
		{"https://qwen.ai", "https://other.com/x", "https://other.com/x"},
		{"", "/blog/x", "/blog/x"},
	}
	for _, c := range cases {
		if got := resolveURL(c.base, c.ref); got != c.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", c.base, c.ref, got, c.want)
		}
	}
}

func TestCrawlerFetchAllTolerantOfMissingExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(qwenListingHTML))
	}))
	defer server.Close()

	c := New(5*time.Second, 2)
	src := Source{Name: "unknown-site", BlogURL: server.URL, Extractor: "does-not-exist"}

	items, err := c.FetchAll(t.Context(), []Source{src})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items when no extractor is registered, got %d", len(items))
	}
}

func TestCrawlerFetchAllWithQwenExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(qwenListingHTML))
	}))
	defer server.Close()

	c := New(5*time.Second, 2)
	src := Source{Name: "qwen", BlogURL: server.URL, Extractor: "qwen", Weight: 0.7}

	items, err := c.FetchAll(t.Context(), []Source{src})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if !strings.HasPrefix(items[0].URL, "http") {
		t.Fatalf("expected resolved absolute url, got %q", items[0].URL)
	}
	if items[0].ID == "" {
		t.Fatalf("expected a generated id")
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture html: %v", err)
	}
	return d
}
