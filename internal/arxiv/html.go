package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"resintel/internal/model"
)

const fulltextUserAgent = "resintel/1.0 (fulltext fetcher; +https://arxiv.org)"

var headingRe = regexp.MustCompile(`^h[2-6]$`)

var numberedHeadingRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.*)$`)

// FetchHTMLFulltext fetches and parses the official arXiv HTML rendering of
// a paper's full text into a structured section tree. Any fetch or parse
// failure (including a page with no h2-h6 section structure) is returned as
// an error, and deep analysis for the paper fails; there is no
// abstract-only or PDF fallback.
func FetchHTMLFulltext(ctx context.Context, httpClient *http.Client, p model.Paper) (*model.ArxivHtmlFulltext, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	version, err := latestVersionSuffix(ctx, httpClient, p.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving latest version for %s: %w", p.ID, err)
	}

	htmlURL := fmt.Sprintf("https://arxiv.org/html/%s%s", p.ID, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, htmlURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fulltextUserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching arxiv html %s: %w", htmlURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv html not available: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arxiv html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	root := pickContentRoot(doc)
	frontMatter := collectFrontMatter(root)
	sections := buildSections(root)

	if len(sections) == 0 {
		return nil, fmt.Errorf("no section structure parsed from arxiv html; treating as deep-analysis failure")
	}

	htmlText, _ := doc.Html()
	blocks := countSections(sections) + countParagraphs(sections)

	fulltext := &model.ArxivHtmlFulltext{
		PaperID: p.ID,
		Source: model.FulltextSource{
			Provider:  "arxiv",
			URL:       htmlURL,
			FetchedAt: time.Now().UTC(),
		},
		Title:                 p.Title,
		Authors:               p.Authors,
		Abstract:              p.Abstract,
		FrontMatterParagraphs: frontMatter,
		Sections:              sections,
		Stats: model.FulltextStats{
			HTMLChars: len(htmlText),
			Blocks:    blocks,
		},
	}
	fulltext.SummaryContext = BuildSummaryContext(fulltext, 20000)

	return fulltext, nil
}

var versionSuffixRe = regexp.MustCompile(`v(\d+)$`)

// latestVersionSuffix resolves the "vN" suffix of the latest version of a
// paper via the Atom API's entry id, which always points at the most
// recent version.
func latestVersionSuffix(ctx context.Context, httpClient *http.Client, paperID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiEndpoint+"?id_list="+paperID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv api request failed: HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", err
	}
	if len(feed.Entries) == 0 {
		return "", fmt.Errorf("arxiv api returned no entry for %s", paperID)
	}

	m := versionSuffixRe.FindStringSubmatch(strings.TrimSpace(feed.Entries[0].ID))
	if m == nil {
		return "", fmt.Errorf("could not extract version from entry id %q", feed.Entries[0].ID)
	}
	return "v" + m[1], nil
}

func pickContentRoot(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("article").First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("div#content").First(); s.Length() > 0 {
		return s
	}
	return doc.Find("body").First()
}

func collectFrontMatter(root *goquery.Selection) []string {
	var paragraphs []string

	var walk func(*goquery.Selection) bool // returns true if a heading was hit (stop)
	walk = func(sel *goquery.Selection) bool {
		stopped := false
		sel.Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if len(paragraphs) >= 30 {
				stopped = true
				return false
			}
			tag := strings.ToLower(goquery.NodeName(node))
			if headingRe.MatchString(tag) {
				stopped = true
				return false
			}
			if tag == "p" {
				if text := normalizeText(node.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return true
			}
			if walk(node) {
				stopped = true
				return false
			}
			return true
		})
		return stopped
	}
	walk(root)

	return paragraphs
}

func buildSections(root *goquery.Selection) []*model.Section {
	type item struct {
		level int
		node  *goquery.Selection
		isP   bool
	}

	var items []item
	var collect func(*goquery.Selection)
	collect = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			tag := strings.ToLower(goquery.NodeName(node))
			if headingRe.MatchString(tag) {
				items = append(items, item{level: int(tag[1] - '0'), node: node})
			} else if tag == "p" {
				items = append(items, item{node: node, isP: true})
			} else {
				collect(node)
			}
		})
	}
	collect(root)

	var headingIdx []int
	for i, it := range items {
		if !it.isP {
			headingIdx = append(headingIdx, i)
		}
	}
	if len(headingIdx) == 0 {
		return nil
	}

	type flat struct {
		level int
		sec   *model.Section
	}
	var flats []flat

	for pos, idx := range headingIdx {
		level := items[idx].level
		headingText := normalizeText(items[idx].node.Text())
		number, title := extractNumberAndTitle(headingText)

		end := len(items)
		for _, nextIdx := range headingIdx[pos+1:] {
			if items[nextIdx].level <= level {
				end = nextIdx
				break
			}
		}

		var paras []string
		for _, it := range items[idx+1 : end] {
			if it.isP {
				if text := normalizeText(it.node.Text()); text != "" {
					paras = append(paras, text)
				}
			}
		}

		flats = append(flats, flat{level: level, sec: &model.Section{
			Level:      level,
			Heading:    headingText,
			Number:     number,
			Title:      title,
			Paragraphs: paras,
		}})
	}

	var roots []*model.Section
	var stack []flat
	for _, f := range flats {
		for len(stack) > 0 && stack[len(stack)-1].level >= f.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1].sec
			parent.Children = append(parent.Children, f.sec)
		} else {
			roots = append(roots, f.sec)
		}
		stack = append(stack, f)
	}

	return roots
}

func extractNumberAndTitle(headingText string) (number, title string) {
	text := normalizeText(headingText)
	m := numberedHeadingRe.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	number = strings.TrimSuffix(m[1], ".")
	title = strings.TrimSpace(m[2])
	if title == "" {
		title = text
	}
	return number, title
}

func countSections(sections []*model.Section) int {
	n := 0
	for _, s := range sections {
		n++
		n += countSections(s.Children)
	}
	return n
}

func countParagraphs(sections []*model.Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Paragraphs)
		n += countParagraphs(s.Children)
	}
	return n
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// BuildSummaryContext renders a plain-text overview of the fulltext (front
// matter plus each section's heading and first few paragraphs) bounded to
// maxChars, for use as deep-analysis writer context.
func BuildSummaryContext(f *model.ArxivHtmlFulltext, maxChars int) string {
	var b strings.Builder

	if len(f.FrontMatterParagraphs) > 0 {
		b.WriteString("## Front Matter\n")
		limit := len(f.FrontMatterParagraphs)
		if limit > 10 {
			limit = 10
		}
		for _, p := range f.FrontMatterParagraphs[:limit] {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}

	var walk func([]*model.Section)
	walk = func(sections []*model.Section) {
		for _, s := range sections {
			b.WriteString("## " + s.Heading + "\n")
			limit := len(s.Paragraphs)
			if limit > 5 {
				limit = 5
			}
			for _, p := range s.Paragraphs[:limit] {
				b.WriteString(p)
				b.WriteString("\n")
			}
			b.WriteString("\n")
			walk(s.Children)
		}
	}
	walk(f.Sections)

	text := strings.TrimSpace(b.String())
	if len(text) > maxChars {
		return text[:maxChars] + "\n\n...(truncated)"
	}
	return text
}
