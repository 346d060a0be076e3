package arxiv

import (
	"strings"
	"testing"

	"resintel/internal/model"
)

func sampleFulltext() *model.ArxivHtmlFulltext {
	return &model.ArxivHtmlFulltext{
		PaperID: "2501.12345",
		Title:   "A Great Paper",
		Sections: []*model.Section{
			{Heading: "1 Introduction", Title: "Introduction", Paragraphs: []string{"We study transformers and attention mechanisms."}},
			{
				Heading:    "2 Method",
				Title:      "Method",
				Paragraphs: []string{"Our method uses a novel sparse attention layer."},
				Children: []*model.Section{
					{Heading: "2.1 Architecture", Title: "Architecture", Paragraphs: []string{"The architecture has 12 layers."}},
				},
			},
			{Heading: "3 Results", Title: "Results", Paragraphs: []string{"We achieve state of the art results."}},
		},
	}
}

func TestReaderSectionBySynonym(t *testing.T) {
	r := NewReader(sampleFulltext())

	out := r.Section("method")
	if !strings.Contains(out, "sparse attention layer") {
		t.Errorf("expected method section content, got %q", out)
	}

	out = r.Section("intro")
	if !strings.Contains(out, "transformers and attention mechanisms") {
		t.Errorf("expected introduction section content via 'intro' synonym, got %q", out)
	}
}

func TestReaderSectionNotFoundListsAvailable(t *testing.T) {
	r := NewReader(sampleFulltext())

	out := r.Section("tables")
	if !strings.Contains(out, "no section matching") {
		t.Errorf("expected not-found message, got %q", out)
	}
	if !strings.Contains(out, "Introduction") {
		t.Errorf("expected available sections to be listed, got %q", out)
	}
}

func TestReaderKeyword(t *testing.T) {
	r := NewReader(sampleFulltext())

	out := r.Keyword("sparse attention")
	if !strings.Contains(out, "found in 2 Method") {
		t.Errorf("expected keyword match in Method section, got %q", out)
	}
}

func TestReaderKeywordNotFound(t *testing.T) {
	r := NewReader(sampleFulltext())

	out := r.Keyword("quantum computing")
	if !strings.Contains(out, "not found") {
		t.Errorf("expected not-found message, got %q", out)
	}
}

func TestReaderOverview(t *testing.T) {
	r := NewReader(sampleFulltext())

	out := r.Overview()
	if !strings.Contains(out, "A Great Paper") {
		t.Errorf("expected paper title in overview, got %q", out)
	}
	if !strings.Contains(out, "sections: 4") {
		t.Errorf("expected flattened section count of 4, got %q", out)
	}
}

func TestReaderHandlesNilFulltext(t *testing.T) {
	r := NewReader(nil)

	if out := r.Section("method"); !strings.Contains(out, "not been loaded") {
		t.Errorf("expected not-loaded message, got %q", out)
	}
	if out := r.Keyword("x"); !strings.Contains(out, "not been loaded") {
		t.Errorf("expected not-loaded message, got %q", out)
	}
	if out := r.Overview(); !strings.Contains(out, "not been loaded") {
		t.Errorf("expected not-loaded message, got %q", out)
	}
}
