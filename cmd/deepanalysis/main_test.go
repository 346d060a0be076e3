package main

import (
	"testing"

	"resintel/internal/model"
)

func TestParseIssueTitle(t *testing.T) {
	cases := []struct {
		title     string
		wantID    string
		wantTitle string
		wantOK    bool
	}{
		{"[Analysis] 2501.12345: Attention Is All You Need", "2501.12345", "Attention Is All You Need", true},
		{"[analysis] 2501.12345v2: Attention Is All You Need", "2501.12345", "Attention Is All You Need", true},
		{"  [Analysis] 2501.12345: padded  ", "2501.12345", "padded", true},
		{"Attention Is All You Need", "", "", false},
		{"[Analysis] not-an-id: title", "", "", false},
	}
	for _, c := range cases {
		id, title, ok := parseIssueTitle(c.title)
		if ok != c.wantOK {
			t.Fatalf("parseIssueTitle(%q) ok = %v, want %v", c.title, ok, c.wantOK)
		}
		if !ok {
			continue
		}
		if id != c.wantID || title != c.wantTitle {
			t.Fatalf("parseIssueTitle(%q) = (%q, %q), want (%q, %q)", c.title, id, title, c.wantID, c.wantTitle)
		}
	}
}

func TestSummarizeTruncatesLongText(t *testing.T) {
	short := "a short report"
	if got := summarize(short, 280); got != short {
		t.Fatalf("expected short text unchanged, got %q", got)
	}

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := summarize(string(long), 280)
	if len(got) <= 280 || got[len(got)-3:] != "..." {
		t.Fatalf("expected truncated text ending in ..., got len=%d suffix=%q", len(got), got[len(got)-3:])
	}
}

func TestIssueURL(t *testing.T) {
	if got := issueURL("", 42); got != "" {
		t.Fatalf("expected empty URL with no repo, got %q", got)
	}
	want := "https://github.com/owner/repo/issues/42"
	if got := issueURL("owner/repo", 42); got != want {
		t.Fatalf("issueURL = %q, want %q", got, want)
	}
}

func TestSectionCountCountsNestedSections(t *testing.T) {
	sections := []*model.Section{
		{Heading: "Introduction"},
		{Heading: "Method", Children: []*model.Section{
			{Heading: "3.1"},
			{Heading: "3.2", Children: []*model.Section{{Heading: "3.2.1"}}},
		}},
	}
	if got := sectionCount(sections); got != 5 {
		t.Fatalf("sectionCount = %d, want 5", got)
	}
}
