package arxiv

import (
	"strings"
	"testing"
	"time"

	"resintel/internal/model"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2501.12345v2</id>
    <title>A Great Paper
About Things</title>
    <summary>This is the
abstract.</summary>
    <published>2026-07-28T12:00:00Z</published>
    <updated>2026-07-29T08:00:00Z</updated>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <category term="cs.AI"/>
    <category term="cs.LG"/>
    <arxiv:primary_category term="cs.AI"/>
    <arxiv:comment>10 pages, 3 figures</arxiv:comment>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	papers, err := parseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}

	p := papers[0]
	if p.ID != "2501.12345" {
		t.Errorf("expected id 2501.12345 (version stripped), got %q", p.ID)
	}
	if p.Title != "A Great Paper About Things" {
		t.Errorf("expected normalized single-line title, got %q", p.Title)
	}
	if p.Abstract != "This is the abstract." {
		t.Errorf("expected normalized abstract, got %q", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Ada Lovelace" {
		t.Errorf("unexpected authors: %v", p.Authors)
	}
	if p.PrimaryCategory != "cs.AI" {
		t.Errorf("expected primary category cs.AI, got %q", p.PrimaryCategory)
	}
	if p.AbsURL != "https://arxiv.org/abs/2501.12345" {
		t.Errorf("unexpected abs url: %q", p.AbsURL)
	}
	if p.PDFURL != "https://arxiv.org/pdf/2501.12345.pdf" {
		t.Errorf("unexpected pdf url: %q", p.PDFURL)
	}
	if !p.Updated.After(p.Published) {
		t.Errorf("expected updated after published")
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://arxiv.org/abs/2501.12345v1", "2501.12345"},
		{"https://arxiv.org/abs/2501.12345v10", "2501.12345"},
		{"http://arxiv.org/abs/2501.12345", "2501.12345"},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterByHoursUsesLatestTime(t *testing.T) {
	now := time.Now().UTC()
	papers := []model.Paper{
		{ID: "old", Published: now.Add(-48 * time.Hour)},
		{ID: "recently-updated", Published: now.Add(-48 * time.Hour), Updated: now.Add(-1 * time.Hour)},
		{ID: "new", Published: now.Add(-1 * time.Hour)},
	}

	filtered := filterByHours(papers, 25)

	ids := make(map[string]bool)
	for _, p := range filtered {
		ids[p.ID] = true
	}
	if ids["old"] {
		t.Errorf("expected 'old' to be filtered out")
	}
	if !ids["recently-updated"] {
		t.Errorf("expected 'recently-updated' to survive via its Updated time")
	}
	if !ids["new"] {
		t.Errorf("expected 'new' to survive")
	}
}

func TestBuildCategoryQuery(t *testing.T) {
	u := buildCategoryQuery("cs.AI", 50, 100)
	if !strings.Contains(u, "search_query=cat%3Acs.AI") {
		t.Errorf("expected search_query param, got %q", u)
	}
	if !strings.Contains(u, "start=100") {
		t.Errorf("expected start param, got %q", u)
	}
	if !strings.Contains(u, "max_results=50") {
		t.Errorf("expected max_results param, got %q", u)
	}
}

func TestRetryWaitRateLimit(t *testing.T) {
	wait, retryable := retryWait(&httpStatusError{status: 429}, 0)
	if !retryable {
		t.Fatal("expected 429 to be retryable")
	}
	if wait != 30*time.Second {
		t.Errorf("expected fixed 30s wait on 429, got %v", wait)
	}
}

func TestRetryWaitServerErrorBacksOffExponentially(t *testing.T) {
	w0, _ := retryWait(&httpStatusError{status: 503}, 0)
	w1, _ := retryWait(&httpStatusError{status: 503}, 1)
	w2, _ := retryWait(&httpStatusError{status: 503}, 2)

	if w0 != 1*time.Second || w1 != 2*time.Second || w2 != 4*time.Second {
		t.Errorf("expected exponential backoff 1s,2s,4s, got %v,%v,%v", w0, w1, w2)
	}
}

func TestRetryWaitClientErrorNotRetryable(t *testing.T) {
	_, retryable := retryWait(&httpStatusError{status: 404}, 0)
	if retryable {
		t.Errorf("expected 404 to not be retryable")
	}
}
