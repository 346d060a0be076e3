package arxiv

import (
	"fmt"
	"strings"

	"resintel/internal/model"
)

// Reader answers structured queries against one paper's parsed fulltext. A
// Reader is an explicit value scoped to a single deep-analysis run — it is
// constructed per paper and passed into whatever needs it (directly, or via
// a context.Context value at the call site), never stored in a package-level
// variable, so concurrent deep-analysis runs over different papers never
// interfere with each other.
type Reader struct {
	fulltext *model.ArxivHtmlFulltext
}

// NewReader wraps a parsed fulltext for querying. fulltext may be nil, in
// which case all Reader methods report that no fulltext is available.
func NewReader(fulltext *model.ArxivHtmlFulltext) *Reader {
	return &Reader{fulltext: fulltext}
}

var sectionSynonyms = map[string][]string{
	"abstract":     {"abstract"},
	"introduction": {"introduction", "intro"},
	"intro":        {"introduction", "intro"},
	"related":      {"related", "background", "prior work"},
	"related_work": {"related", "background", "prior work"},
	"method":       {"method", "methods", "methodology", "approach"},
	"experiment":   {"experiment", "experiments", "evaluation", "setup"},
	"results":      {"results", "result", "findings"},
	"discussion":   {"discussion", "analysis"},
	"conclusion":   {"conclusion", "conclusions", "summary"},
}

// Section looks up sections by a friendly key (e.g. "method", "results"),
// matching against each section's title/heading via a small synonym table,
// falling back to treating the key itself as a literal substring to match.
// Returns up to 3 matches' heading + paragraph content, truncated to 4000
// characters each.
func (r *Reader) Section(key string) string {
	if r.fulltext == nil {
		return "paper fulltext has not been loaded yet."
	}

	candidates, ok := sectionSynonyms[normalizeKey(key)]
	if !ok {
		candidates = []string{normalizeKey(key)}
	}

	matched := matchSections(flatten(r.fulltext.Sections), candidates)
	if len(matched) == 0 {
		titles := make([]string, 0, 30)
		for _, s := range flatten(r.fulltext.Sections) {
			titles = append(titles, s.Heading)
			if len(titles) >= 30 {
				break
			}
		}
		return fmt.Sprintf("no section matching %q found. available sections: %s", key, strings.Join(titles, ", "))
	}

	var parts []string
	limit := len(matched)
	if limit > 3 {
		limit = 3
	}
	for _, s := range matched[:limit] {
		content := strings.Join(s.Paragraphs, "\n\n")
		if len(content) > 4000 {
			content = content[:4000] + "\n... (truncated, narrow with a keyword search for more)"
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", s.Heading, content))
	}
	return strings.Join(parts, "\n\n")
}

// Keyword searches all section text for keyword, returning up to 5 matches
// with surrounding context.
func (r *Reader) Keyword(keyword string) string {
	if r.fulltext == nil {
		return "paper fulltext has not been loaded yet."
	}
	if keyword == "" {
		return "no keyword provided."
	}

	var results []string
	lowerKeyword := strings.ToLower(keyword)
	for _, s := range flatten(r.fulltext.Sections) {
		joined := strings.Join(s.Paragraphs, "\n\n")
		if strings.Contains(strings.ToLower(joined), lowerKeyword) {
			ctx := extractKeywordContext(joined, keyword, 500)
			if ctx != "" {
				results = append(results, fmt.Sprintf("### found in %s:\n%s", s.Heading, ctx))
			}
		}
		if len(results) >= 5 {
			break
		}
	}

	if len(results) == 0 {
		return fmt.Sprintf("keyword %q not found in paper.", keyword)
	}
	return strings.Join(results, "\n\n")
}

// Overview returns the paper title, section count, and a flat listing of
// section headings, used when neither a section key nor a keyword is given.
func (r *Reader) Overview() string {
	if r.fulltext == nil {
		return "paper fulltext has not been loaded yet."
	}

	flat := flatten(r.fulltext.Sections)
	var b strings.Builder
	fmt.Fprintf(&b, "paper: %s\nsections: %d\n\navailable sections:\n", r.fulltext.Title, len(flat))

	limit := len(flat)
	if limit > 60 {
		limit = 60
	}
	for _, s := range flat[:limit] {
		fmt.Fprintf(&b, "  - %s\n", s.Heading)
	}
	return b.String()
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func flatten(sections []*model.Section) []*model.Section {
	var out []*model.Section
	var walk func([]*model.Section)
	walk = func(nodes []*model.Section) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(sections)
	return out
}

func matchSections(all []*model.Section, candidates []string) []*model.Section {
	var matched []*model.Section
	for _, s := range all {
		title := strings.ToLower(s.Title)
		heading := strings.ToLower(s.Heading)
		for _, c := range candidates {
			if strings.Contains(title, c) || strings.Contains(heading, c) {
				matched = append(matched, s)
				break
			}
		}
	}
	return matched
}

func extractKeywordContext(text, keyword string, contextChars int) string {
	lowerText := strings.ToLower(text)
	lowerKeyword := strings.ToLower(keyword)

	var contexts []string
	start := 0
	for len(contexts) < 3 {
		pos := strings.Index(lowerText[start:], lowerKeyword)
		if pos == -1 {
			break
		}
		pos += start

		ctxStart := pos - contextChars/2
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := pos + len(keyword) + contextChars/2
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}

		ctx := text[ctxStart:ctxEnd]
		if ctxStart > 0 {
			ctx = "..." + ctx
		}
		if ctxEnd < len(text) {
			ctx = ctx + "..."
		}
		contexts = append(contexts, ctx)
		start = pos + len(keyword)
	}

	return strings.Join(contexts, "\n\n---\n\n")
}
