// Command deep_analysis runs the multi-agent deep-analysis workflow for a
// single arXiv paper, triggered by a GitHub issue whose title encodes the
// paper id, and reports the result back as a markdown file plus a
// best-effort outbound notification.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"resintel/internal/arxiv"
	"resintel/internal/config"
	"resintel/internal/deepgraph"
	"resintel/internal/errs"
	"resintel/internal/llm"
	"resintel/internal/logger"
	"resintel/internal/model"
	"resintel/internal/notify"
	"resintel/internal/search"
	"resintel/internal/store"
)

// titlePattern matches "[Analysis] {id}[vN]?: {title}", case-insensitive,
// with id of the form \d+\.\d+.
var titlePattern = regexp.MustCompile(`(?i)^\[analysis\]\s*(\d+\.\d+)(v\d+)?\s*:\s*(.+)$`)

func main() {
	os.Exit(int(run()))
}

type args struct {
	issueNumber     int
	issueTitle      string
	issueBody       string
	repo            string
	skipConfigCheck bool
}

func run() errs.ExitCode {
	var a args
	code := errs.ExitConfigError

	cmd := &cobra.Command{
		Use:   "deep_analysis",
		Short: "Run deep multi-agent analysis for one arXiv paper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = execute(cmd.Context(), a)
			return nil
		},
	}
	cmd.Flags().IntVar(&a.issueNumber, "issue-number", 0, "triggering GitHub issue number")
	cmd.Flags().StringVar(&a.issueTitle, "issue-title", "", `issue title, e.g. "[Analysis] 2501.12345: My Paper"`)
	cmd.Flags().StringVar(&a.issueBody, "issue-body", "", "issue body, passed through as extra analysis requirements")
	cmd.Flags().StringVar(&a.repo, "repo", "", "owner/repo, used to link back to the triggering issue")
	cmd.Flags().BoolVar(&a.skipConfigCheck, "skip-config-check", false, "skip required-field configuration validation")
	for _, name := range []string{"issue-number", "issue-title", "issue-body"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return errs.ExitConfigError
		}
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitConfigError
	}
	return code
}

func execute(ctx context.Context, a args) errs.ExitCode {
	paperID, title, ok := parseIssueTitle(a.issueTitle)
	if !ok {
		fmt.Fprintf(os.Stderr, "issue title %q does not match the expected \"[Analysis] {id}: {title}\" pattern\n", a.issueTitle)
		return errs.ExitConfigError
	}

	cfg, err := loadConfig(a.skipConfigCheck)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return errs.ExitConfigError
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	arxivClient := arxiv.NewClient(arxiv.Config{Timeout: config.Duration(cfg.Arxiv.Timeout)})
	papers, err := arxivClient.FetchByIDs(ctx, []string{paperID})
	if err != nil {
		logger.Error("paper lookup failed", err, map[string]any{"paper_id": paperID})
		return errs.ExitProcessError
	}
	if len(papers) == 0 {
		logger.Error("paper not found", nil, map[string]any{"paper_id": paperID})
		return errs.ExitPaperNotFound
	}
	paper := papers[0]
	if title == "" {
		title = paper.Title
	}

	st := store.New(cfg.DataDir)
	if st.IsProcessing(paperID) {
		logger.Error("paper already has a deep analysis in flight", nil, map[string]any{"paper_id": paperID})
		return errs.ExitProcessError
	}
	if err := st.MarkProcessing(paperID); err != nil {
		logger.Warn("failed to record processing status", map[string]any{"paper_id": paperID, "error": err.Error()})
	}
	defer func() {
		if err := st.UnmarkProcessing(paperID); err != nil {
			logger.Warn("failed to clear processing status", map[string]any{"paper_id": paperID, "error": err.Error()})
		}
	}()

	httpClient := &http.Client{Timeout: config.Duration(cfg.Arxiv.Timeout)}
	fulltext, err := arxiv.FetchHTMLFulltext(ctx, httpClient, paper)
	if err != nil {
		logger.Error("fetching arxiv html fulltext failed", err, map[string]any{"paper_id": paperID})
		return errs.ExitProcessError
	}

	llmClient, err := buildLLMClient(ctx, cfg)
	if err != nil {
		logger.Error("building llm client failed", err, nil)
		return errs.ExitProcessError
	}

	state := deepgraph.NewState(paperID, title, paper.Abstract, fulltext.Source.URL, a.issueBody,
		cfg.Analysis.MaxResearchIterations, cfg.Analysis.MaxWriteIterations)
	state.FullContent = fulltext.SummaryContext
	state.TotalSections = sectionCount(fulltext.Sections)
	state.SectionsAvailable = len(fulltext.Sections) > 0
	state.FulltextParseStatus = "parsed"

	deps := deepgraph.Deps{
		Client:          llmClient,
		SearchTool:      buildSearchTool(cfg),
		ArxivLoaderTool: deepgraph.NewArxivLoaderTool(arxivClient),
		PaperReaderTool: deepgraph.NewPaperReaderTool(arxiv.NewReader(fulltext)),
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
	}

	result, err := deepgraph.Run(ctx, state, deps)
	if err != nil {
		logger.Error("deep analysis run failed", err, map[string]any{"paper_id": paperID})
		return errs.ExitProcessError
	}

	if err := st.SaveDeepAnalysisReport(paperID, result.ReportMarkdown); err != nil {
		logger.Error("saving deep analysis report failed", err, map[string]any{"paper_id": paperID})
		return errs.ExitProcessError
	}

	notifier := notify.New(cfg.Notification)
	notifier.SendDeepAnalysis(ctx, paperID, title, summarize(result.ReportMarkdown, 280), issueURL(a.repo, a.issueNumber))

	logger.Info("deep analysis complete", map[string]any{
		"paper_id": paperID, "research_iterations": result.ResearchIterations, "write_iterations": result.WriteIterations,
	})
	return errs.ExitSuccess
}

func parseIssueTitle(issueTitle string) (id, title string, ok bool) {
	m := titlePattern.FindStringSubmatch(strings.TrimSpace(issueTitle))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[3]), true
}

func loadConfig(skipConfigCheck bool) (*config.Config, error) {
	if skipConfigCheck {
		return config.LoadSkipValidation("")
	}
	return config.Load("")
}

func buildLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	return llm.NewGeminiClient(ctx, llm.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    config.Duration(float64(cfg.Advanced.LLMTimeout)),
		MaxRetries: cfg.Advanced.LLMMaxRetries,
	})
}

// buildSearchTool builds the researcher's web_search backend: the
// configured provider as primary, DuckDuckGo as fallback (or sole primary,
// if DuckDuckGo is itself the configured provider or the configured
// primary fails to construct, e.g. a missing Tavily API key).
func buildSearchTool(cfg *config.Config) *deepgraph.WebSearchTool {
	factory := search.NewProviderFactory()
	searchCfg := search.Config{MaxResults: cfg.Search.MaxResults, Language: cfg.Notification.Language}
	timeout := config.Duration(cfg.Search.Timeout)

	duckduckgo, _ := factory.CreateProvider(search.ProviderTypeDuckDuckGo, nil)

	primary, err := factory.CreateProvider(search.ProviderType(cfg.Search.API), map[string]string{"api_key": cfg.Search.TavilyAPIKey})
	if err != nil || search.ProviderType(cfg.Search.API) == search.ProviderTypeDuckDuckGo {
		if err != nil {
			logger.Warn("configured search provider unavailable, falling back to duckduckgo", map[string]any{"error": err.Error()})
		}
		return deepgraph.NewWebSearchTool(duckduckgo, nil, searchCfg, timeout)
	}
	return deepgraph.NewWebSearchTool(primary, duckduckgo, searchCfg, timeout)
}

func sectionCount(sections []*model.Section) int {
	n := len(sections)
	for _, s := range sections {
		n += sectionCount(s.Children)
	}
	return n
}

func summarize(s string, maxChars int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return strings.TrimSpace(string(runes[:maxChars])) + "..."
}

func issueURL(repo string, issueNumber int) string {
	if repo == "" {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/issues/%d", repo, issueNumber)
}
