package deepgraph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"resintel/internal/arxiv"
	"resintel/internal/search"
)

// Tool is one capability the researcher's ReAct loop can invoke. args are
// the tool-call arguments decoded from the model's structured decision.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// maxConcurrentSearches bounds how many of a web_search call's queries run
// at once, per the spec's "runs up to 3 searches concurrently" rule.
const maxConcurrentSearches = 3

// WebSearchTool runs queries against a primary search backend, falling back
// to a secondary backend when the primary fails for all queries.
type WebSearchTool struct {
	primary  search.Provider
	fallback search.Provider // nil if no fallback configured
	cfg      search.Config
	timeout  time.Duration
}

// NewWebSearchTool builds a WebSearchTool. fallback may be nil.
func NewWebSearchTool(primary, fallback search.Provider, cfg search.Config, timeout time.Duration) *WebSearchTool {
	return &WebSearchTool{primary: primary, fallback: fallback, cfg: cfg, timeout: timeout}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return `web_search(queries: [string]) - search the web for supplementary material, related work, ` +
		`applications, or community discussion. Runs each query concurrently, bounded timeout per query.`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	queries := stringSlice(args["queries"])
	if len(queries) == 0 {
		return "no queries provided.", nil
	}

	results, err := t.searchAll(ctx, t.primary, queries)
	if (err != nil || len(results) == 0) && t.fallback != nil {
		results, err = t.searchAll(ctx, t.fallback, queries)
	}
	if err != nil && len(results) == 0 {
		return "", err
	}
	if len(results) == 0 {
		return "no relevant search results found.", nil
	}
	return formatSearchResults(results), nil
}

func (t *WebSearchTool) searchAll(ctx context.Context, provider search.Provider, queries []string) ([]search.Result, error) {
	sem := semaphore.NewWeighted(maxConcurrentSearches)
	var (
		mu       sync.Mutex
		all      []search.Result
		firstErr error
		wg       sync.WaitGroup
	)

	for _, q := range queries {
		q := q
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			qctx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()

			res, err := provider.Search(qctx, q, t.cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			all = append(all, res...)
		}()
	}
	wg.Wait()

	if len(all) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}

func formatSearchResults(results []search.Result) string {
	var b strings.Builder
	for i, r := range results {
		snippet := r.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\n    URL: %s\n    Summary: %s\n", i+1, r.Title, r.URL, snippet)
	}
	return b.String()
}

// ArxivLoaderTool fetches a single paper's metadata by arXiv id, used by
// the researcher to verify details or pull a fuller abstract/author list
// than what is already in the paper context.
type ArxivLoaderTool struct {
	client *arxiv.Client
}

// NewArxivLoaderTool builds an ArxivLoaderTool.
func NewArxivLoaderTool(client *arxiv.Client) *ArxivLoaderTool {
	return &ArxivLoaderTool{client: client}
}

func (t *ArxivLoaderTool) Name() string { return "arxiv_loader" }

func (t *ArxivLoaderTool) Description() string {
	return `arxiv_loader(paper_id: string) - fetch an arXiv paper's title, authors, categories, and abstract.`
}

func (t *ArxivLoaderTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	id := strings.TrimSpace(fmt.Sprint(args["paper_id"]))
	id = strings.TrimPrefix(id, "arXiv:")
	if id == "" || id == "<nil>" {
		return "no paper_id provided.", nil
	}

	papers, err := t.client.FetchByIDs(ctx, []string{id})
	if err != nil {
		return fmt.Sprintf("failed to fetch paper %s: %v", id, err), nil
	}
	if len(papers) == 0 {
		return fmt.Sprintf("no paper found for id %s", id), nil
	}

	p := papers[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Paper ID: %s\nTitle: %s\nAuthors: %s\nCategories: %s\nPublished: %s\nAbstract page: %s\nPDF: %s\n",
		p.ID, p.Title, strings.Join(p.Authors, ", "), strings.Join(p.Categories, ", "),
		p.Published.Format("2006-01-02"), p.AbsURL, p.PDFURL)
	if p.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", p.Comment)
	}
	fmt.Fprintf(&b, "\nAbstract:\n%s", p.Abstract)
	return b.String(), nil
}

// PaperReaderTool answers queries against one paper's parsed fulltext. It
// wraps an *arxiv.Reader captured at construction time, which is itself an
// explicit value scoped to one run -- never a package-level "current paper"
// global, so the same tool implementation is safe to build fresh per run.
type PaperReaderTool struct {
	reader *arxiv.Reader
}

// NewPaperReaderTool builds a PaperReaderTool bound to reader.
func NewPaperReaderTool(reader *arxiv.Reader) *PaperReaderTool {
	return &PaperReaderTool{reader: reader}
}

func (t *PaperReaderTool) Name() string { return "paper_reader" }

func (t *PaperReaderTool) Description() string {
	return `paper_reader(section?: string, keyword?: string, include_tables?: bool, include_figures?: bool) - ` +
		`query the current paper's full text by section (e.g. "method", "results") or by keyword search. ` +
		`Returns an overview of available sections when called with no arguments.`
}

func (t *PaperReaderTool) Execute(_ context.Context, args map[string]any) (string, error) {
	section, _ := args["section"].(string)
	keyword, _ := args["keyword"].(string)

	var parts []string
	if section != "" {
		parts = append(parts, t.reader.Section(section))
	}
	if keyword != "" {
		parts = append(parts, t.reader.Keyword(keyword))
	}
	if includeTables, _ := args["include_tables"].(bool); includeTables {
		parts = append(parts, "the HTML fulltext does not support structured table extraction (include_tables ignored).")
	}
	if includeFigures, _ := args["include_figures"].(bool); includeFigures {
		parts = append(parts, "the HTML fulltext does not support structured figure extraction (include_figures ignored).")
	}

	if len(parts) == 0 {
		return t.reader.Overview(), nil
	}
	return strings.Join(parts, "\n\n"), nil
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
