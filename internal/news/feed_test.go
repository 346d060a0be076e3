package news

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>First Post</title>
      <link>https://example.com/posts/first</link>
      <description><![CDATA[<p>Summary of first post.</p>]]></description>
      <pubDate>Mon, 02 Jan 2026 15:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second Post</title>
      <link>https://example.com/posts/second</link>
      <description>Summary of second post.</description>
      <pubDate>Tue, 03 Jan 2026 09:30:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestGenerateIDIsStableAndDeterministic(t *testing.T) {
	id1 := GenerateID("https://example.com/a")
	id2 := GenerateID("https://example.com/a")
	id3 := GenerateID("https://example.com/b")

	if id1 != id2 {
		t.Fatalf("expected same url to produce same id, got %q and %q", id1, id2)
	}
	if id1 == id3 {
		t.Fatalf("expected different urls to produce different ids")
	}
	if len(id1) != 16 {
		t.Fatalf("expected 16-char id, got %q (%d chars)", id1, len(id1))
	}
}

func TestFeedFetcherFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFeedFetcher(5*time.Second, 2)
	src := Source{Name: "example", FetchType: FetchRSS, Enabled: true, RSSURL: server.URL, Category: "ai", Weight: 0.8}

	items, err := fetcher.FetchAll(t.Context(), []Source{src})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != GenerateID("https://example.com/posts/first") {
		t.Fatalf("unexpected id for first item: %q", items[0].ID)
	}
	if items[0].SourceName != "example" || items[0].Weight != 0.8 {
		t.Fatalf("source metadata not propagated: %+v", items[0])
	}
}

func TestFeedFetcherToleratesSourceFailure(t *testing.T) {
	fetcher := NewFeedFetcher(1*time.Second, 2)
	fetcher.maxRetries = 1
	src := Source{Name: "broken", FetchType: FetchRSS, Enabled: true, RSSURL: "http://127.0.0.1:0/missing"}

	items, err := fetcher.FetchAll(t.Context(), []Source{src})
	if err != nil {
		t.Fatalf("FetchAll() should tolerate per-source failure, got error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items from a broken source, got %d", len(items))
	}
}

func TestFeedFetcherEmptySources(t *testing.T) {
	fetcher := NewFeedFetcher(time.Second, 2)
	items, err := fetcher.FetchAll(t.Context(), nil)
	if err != nil || items != nil {
		t.Fatalf("expected nil, nil for empty sources, got %v, %v", items, err)
	}
}
