package arxiv

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const sampleArticleHTML = `<html><body><main>
<p>Front matter sentence one.</p>
<p>Front matter sentence two.</p>
<h2>1 Introduction</h2>
<p>Intro paragraph one.</p>
<p>Intro paragraph two.</p>
<h2>2 Method</h2>
<p>Method paragraph one.</p>
<h3>2.1 Sub Method</h3>
<p>Sub method details.</p>
<h2>3 Results</h2>
<p>Result paragraph.</p>
</main></body></html>`

func TestBuildSectionsTreeStructure(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleArticleHTML))
	if err != nil {
		t.Fatal(err)
	}
	root := pickContentRoot(doc)

	sections := buildSections(root)
	if len(sections) != 3 {
		t.Fatalf("expected 3 top-level sections, got %d", len(sections))
	}

	intro := sections[0]
	if intro.Number != "1" || intro.Title != "Introduction" {
		t.Errorf("expected intro number=1 title=Introduction, got number=%q title=%q", intro.Number, intro.Title)
	}
	if len(intro.Paragraphs) != 2 {
		t.Errorf("expected 2 intro paragraphs, got %d", len(intro.Paragraphs))
	}

	method := sections[1]
	if method.Number != "2" || method.Title != "Method" {
		t.Errorf("unexpected method section: number=%q title=%q", method.Number, method.Title)
	}
	if len(method.Children) != 1 {
		t.Fatalf("expected 1 child section under Method, got %d", len(method.Children))
	}
	if method.Children[0].Number != "2.1" {
		t.Errorf("expected nested number 2.1, got %q", method.Children[0].Number)
	}
}

func TestCollectFrontMatterStopsAtFirstHeading(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleArticleHTML))
	if err != nil {
		t.Fatal(err)
	}
	root := pickContentRoot(doc)

	front := collectFrontMatter(root)
	if len(front) != 2 {
		t.Fatalf("expected 2 front-matter paragraphs, got %d: %v", len(front), front)
	}
}

func TestExtractNumberAndTitle(t *testing.T) {
	tests := []struct {
		in         string
		wantNumber string
		wantTitle  string
	}{
		{"1 Introduction", "1", "Introduction"},
		{"3.2 Network architecture", "3.2", "Network architecture"},
		{"1. Introduction", "1", "Introduction"},
		{"References", "", "References"},
	}
	for _, tt := range tests {
		num, title := extractNumberAndTitle(tt.in)
		if num != tt.wantNumber || title != tt.wantTitle {
			t.Errorf("extractNumberAndTitle(%q) = (%q,%q), want (%q,%q)", tt.in, num, title, tt.wantNumber, tt.wantTitle)
		}
	}
}

func TestBuildSectionsReturnsEmptyWithoutHeadings(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><main><p>just a paragraph</p></main></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	root := pickContentRoot(doc)

	if sections := buildSections(root); len(sections) != 0 {
		t.Errorf("expected no sections without headings, got %d", len(sections))
	}
}
