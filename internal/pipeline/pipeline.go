// Package pipeline orchestrates the daily tasks (arxiv, rss, analyze,
// summary, update-file-list, notify) against the persistence, analysis,
// and notification packages, matching the task contracts and exit-code
// scheme of the reference daily_crawl entry point.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"resintel/internal/analysis"
	"resintel/internal/arxiv"
	"resintel/internal/config"
	"resintel/internal/errs"
	"resintel/internal/idtracker"
	"resintel/internal/llm"
	"resintel/internal/logger"
	"resintel/internal/model"
	"resintel/internal/news"
	"resintel/internal/notify"
	"resintel/internal/report"
	"resintel/internal/store"
)

// DedupStatus is the arxiv task's outcome, distinguishing "nothing new"
// from a hard failure so single-task and all-task callers can apply the
// right exit code.
type DedupStatus int

const (
	HasNewContent DedupStatus = iota
	NoNewContent
	ProcessError
)

// Pipeline bundles the collaborators every task needs. It is built once
// per process invocation from Config.
type Pipeline struct {
	cfg *config.Config

	store     *store.Store
	arxiv     *arxiv.Client
	ingestor  *news.Ingestor
	sources   []news.Source
	llm       llm.Client
	notifier  notify.Notifier
	fetched   *idtracker.Tracker
	analyzed  *idtracker.Tracker
	languageD string
}

// New builds a Pipeline from configuration. llmClient may be nil, in which
// case the analyze task produces only pending records and the summary
// task falls back to its template.
func New(cfg *config.Config, llmClient llm.Client, ingestor *news.Ingestor, sources []news.Source) *Pipeline {
	languageDisplay := "English"
	if cfg.Notification.Language == "zh" {
		languageDisplay = "Chinese"
	}

	return &Pipeline{
		cfg:      cfg,
		store:    store.New(cfg.DataDir),
		arxiv:    arxiv.NewClient(arxivConfig(cfg)),
		ingestor: ingestor,
		sources:  sources,
		llm:      llmClient,
		notifier: notify.New(cfg.Notification),
		fetched:  idtracker.Fetched(""),
		analyzed: idtracker.Analyzed(""),

		languageD: languageDisplay,
	}
}

func arxivConfig(cfg *config.Config) arxiv.Config {
	return arxiv.Config{
		Timeout:      config.Duration(cfg.Arxiv.Timeout),
		PageSize:     cfg.Arxiv.MaxResults,
		MaxPages:     cfg.Arxiv.MaxPages,
		RequestDelay: config.Duration(cfg.Arxiv.RequestDelay),
	}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// RunArxiv fetches recently-published papers, dedups them against the
// fetched-ids tracker (FetchRecent itself does not dedup), merges the new
// ones into today's papers file, and marks them seen.
func (p *Pipeline) RunArxiv(ctx context.Context) DedupStatus {
	logger.Info("starting task", map[string]any{"task": "arxiv"})

	if cleaned, err := p.fetched.Cleanup(); err == nil && cleaned > 0 {
		logger.Info("cleaned expired fetched ids", map[string]any{"count": cleaned})
	}

	hours := config.ArxivHours()
	papers, err := p.arxiv.FetchRecent(ctx, p.cfg.Arxiv.Categories, hours)
	if err != nil {
		logger.Error("arxiv fetch failed", err, map[string]any{"task": "arxiv"})
		return ProcessError
	}
	logger.Info("fetched papers", map[string]any{"count": len(papers), "hours": hours})

	seen, err := p.fetched.GetPaperIDs()
	if err != nil {
		logger.Error("reading fetched ids failed", err, map[string]any{"task": "arxiv"})
		return ProcessError
	}

	var fresh []string
	filtered := make([]model.Paper, 0, len(papers))
	for _, paper := range papers {
		if _, ok := seen[paper.ID]; ok {
			continue
		}
		filtered = append(filtered, paper)
		fresh = append(fresh, paper.ID)
	}
	duplicates := len(papers) - len(filtered)
	logger.Info("dedup complete", map[string]any{
		"fetched": len(papers), "duplicates": duplicates, "new": len(filtered),
	})

	if len(filtered) == 0 {
		return NoNewContent
	}

	date := today()
	if _, err := p.store.MergePapers(date, filtered); err != nil {
		logger.Error("merging papers failed", err, map[string]any{"task": "arxiv", "date": date})
		return ProcessError
	}

	if err := p.fetched.MarkPapers(fresh); err != nil {
		logger.Error("marking fetched paper ids failed", err, map[string]any{"task": "arxiv"})
		return ProcessError
	}

	logger.Info("task complete", map[string]any{"task": "arxiv", "new_papers": len(filtered)})
	return HasNewContent
}

// RunRSS fetches all configured news sources (feed + crawler families),
// which already dedup internally against the fetched-ids tracker, merges
// the result into today's news file, and marks the batch seen.
func (p *Pipeline) RunRSS(ctx context.Context) error {
	logger.Info("starting task", map[string]any{"task": "rss"})

	items, err := p.ingestor.FetchAll(ctx, p.sources, p.cfg.News.Hours)
	if err != nil {
		return fmt.Errorf("rss task: %w", err)
	}
	if len(items) == 0 {
		logger.Warn("no news items fetched", map[string]any{"task": "rss"})
		return nil
	}

	date := today()
	if _, err := p.store.MergeNews(date, items); err != nil {
		return fmt.Errorf("rss task: merging news: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := p.fetched.MarkNews(ids); err != nil {
		return fmt.Errorf("rss task: marking news ids: %w", err)
	}

	logger.Info("task complete", map[string]any{"task": "rss", "new_items": len(items)})
	return nil
}

// RunAnalyze loads today's papers/news, skips anything already recorded in
// the analyzed-ids tracker, runs light analysis only on the rest, merges
// the results back in, and marks newly-succeeded ids as analyzed.
func (p *Pipeline) RunAnalyze(ctx context.Context) error {
	logger.Info("starting task", map[string]any{"task": "analyze"})

	date := today()
	existingPapers := p.store.LoadPapers(date)
	existingNews := p.store.LoadNews(date)

	if cleaned, err := p.analyzed.Cleanup(); err == nil && cleaned > 0 {
		logger.Info("cleaned expired analyzed ids", map[string]any{"count": cleaned})
	}

	analyzedPaperIDs, err := p.analyzed.GetPaperIDs()
	if err != nil {
		return fmt.Errorf("analyze task: reading analyzed paper ids: %w", err)
	}
	analyzedNewsIDs, err := p.analyzed.GetNewsIDs()
	if err != nil {
		return fmt.Errorf("analyze task: reading analyzed news ids: %w", err)
	}

	papersPending, _ := analysis.SplitPending(existingPapers, analyzedPaperIDs, func(a model.AnalyzedPaper) string { return a.ID })
	newsPending, _ := analysis.SplitPending(existingNews, analyzedNewsIDs, func(a model.AnalyzedNews) string { return a.ID })

	logger.Info("loaded data", map[string]any{
		"papers": len(existingPapers), "papers_pending": len(papersPending),
		"news": len(existingNews), "news_pending": len(newsPending),
	})

	if len(existingPapers) == 0 && len(existingNews) == 0 {
		logger.Warn("no data to analyze", map[string]any{"task": "analyze"})
		return nil
	}
	if len(papersPending) == 0 && len(newsPending) == 0 {
		logger.Info("all data already analyzed", map[string]any{"task": "analyze"})
		return nil
	}

	if p.llm == nil {
		logger.Warn("llm client unavailable, skipping analysis", map[string]any{"task": "analyze"})
		return nil
	}

	sem := analysis.GlobalSemaphore(p.cfg.Analysis.MaxConcurrent)

	var newPapers []model.AnalyzedPaper
	if len(papersPending) > 0 {
		rawPapers := make([]model.Paper, len(papersPending))
		for i, a := range papersPending {
			rawPapers[i] = a.Paper
		}
		newPapers = analysis.AnalyzePapers(ctx, p.llm, sem, rawPapers, p.languageD)
		stats := analysis.PaperStats(newPapers)
		logger.Info("paper analysis complete", map[string]any{"success": stats.Success, "total": stats.Total})
	}

	var newNews []model.AnalyzedNews
	if len(newsPending) > 0 {
		rawNews := make([]model.NewsItem, len(newsPending))
		for i, a := range newsPending {
			rawNews[i] = a.NewsItem
		}
		newNews = analysis.AnalyzeNews(ctx, p.llm, sem, rawNews, p.languageD)
		stats := analysis.NewsStats(newNews)
		logger.Info("news analysis complete", map[string]any{"success": stats.Success, "total": stats.Total})
	}

	finalPapers := overlayPapers(existingPapers, newPapers)
	finalNews := overlayNews(existingNews, newNews)

	if len(finalPapers) > 0 {
		if err := p.store.SaveAnalyzedPapers(date, finalPapers); err != nil {
			return fmt.Errorf("analyze task: saving papers: %w", err)
		}
	}
	if len(finalNews) > 0 {
		if err := p.store.SaveAnalyzedNews(date, finalNews); err != nil {
			return fmt.Errorf("analyze task: saving news: %w", err)
		}
	}

	var successPaperIDs []string
	for _, a := range newPapers {
		if a.AnalysisStatus == model.AnalysisSuccess {
			successPaperIDs = append(successPaperIDs, a.ID)
		}
	}
	var successNewsIDs []string
	for _, a := range newNews {
		if a.AnalysisStatus == model.AnalysisSuccess {
			successNewsIDs = append(successNewsIDs, a.ID)
		}
	}
	if len(successPaperIDs) > 0 {
		if err := p.analyzed.MarkPapers(successPaperIDs); err != nil {
			return fmt.Errorf("analyze task: marking analyzed papers: %w", err)
		}
	}
	if len(successNewsIDs) > 0 {
		if err := p.analyzed.MarkNews(successNewsIDs); err != nil {
			return fmt.Errorf("analyze task: marking analyzed news: %w", err)
		}
	}

	logger.Info("task complete", map[string]any{
		"task": "analyze", "papers_success": len(successPaperIDs), "news_success": len(successNewsIDs),
	})
	return nil
}

// overlayPapers replaces just-analyzed items in place, preserving the rest
// of the existing slice's order.
func overlayPapers(existing, analyzed []model.AnalyzedPaper) []model.AnalyzedPaper {
	if len(analyzed) == 0 {
		return existing
	}
	byID := make(map[string]model.AnalyzedPaper, len(analyzed))
	for _, a := range analyzed {
		byID[a.ID] = a
	}
	out := make([]model.AnalyzedPaper, len(existing))
	for i, e := range existing {
		if replacement, ok := byID[e.ID]; ok {
			out[i] = replacement
			continue
		}
		out[i] = e
	}
	return out
}

func overlayNews(existing, analyzed []model.AnalyzedNews) []model.AnalyzedNews {
	if len(analyzed) == 0 {
		return existing
	}
	byID := make(map[string]model.AnalyzedNews, len(analyzed))
	for _, a := range analyzed {
		byID[a.ID] = a
	}
	out := make([]model.AnalyzedNews, len(existing))
	for i, e := range existing {
		if replacement, ok := byID[e.ID]; ok {
			out[i] = replacement
			continue
		}
		out[i] = e
	}
	return out
}

// RunSummary loads today's analyzed data and generates the DailyReport.
func (p *Pipeline) RunSummary(ctx context.Context) error {
	logger.Info("starting task", map[string]any{"task": "summary"})

	date := today()
	papers := p.store.LoadPapers(date)
	news := p.store.LoadNews(date)

	logger.Info("loaded analyzed data", map[string]any{"papers": len(papers), "news": len(news)})

	if len(papers) == 0 && len(news) == 0 {
		logger.Warn("no data to summarize", map[string]any{"task": "summary"})
		return nil
	}

	gen := report.NewGenerator(p.llm, p.cfg.Arxiv.Categories)
	rep, err := gen.Generate(ctx, papers, news, date)
	if err != nil {
		return fmt.Errorf("summary task: generating report: %w", err)
	}

	if err := p.store.SaveReport(date, rep); err != nil {
		return fmt.Errorf("summary task: saving report: %w", err)
	}

	logger.Info("task complete", map[string]any{"task": "summary", "date": date})
	return nil
}

// RunUpdateFileList regenerates file-list.json.
func (p *Pipeline) RunUpdateFileList() error {
	logger.Info("starting task", map[string]any{"task": "update-file-list"})
	if err := p.store.WriteFileList(); err != nil {
		return fmt.Errorf("update-file-list task: %w", err)
	}
	logger.Info("task complete", map[string]any{"task": "update-file-list"})
	return nil
}

// RunNotify loads today's report and sends it, best-effort.
func (p *Pipeline) RunNotify(ctx context.Context) bool {
	logger.Info("starting task", map[string]any{"task": "notify"})

	date := today()
	rep, ok := p.store.LoadReport(date)
	if !ok {
		logger.Warn("report file does not exist", map[string]any{"task": "notify", "date": date})
		return false
	}

	success := p.notifier.SendDailyReport(ctx, rep)
	logger.Info("task complete", map[string]any{"task": "notify", "success": success})
	return success
}

// RunAll runs every task in sequence: arxiv -> rss -> analyze -> summary ->
// update-file-list -> notify. A "no new content" result from arxiv does
// not abort the rest; a process error from any task does, and aborts
// every task still to come.
func (p *Pipeline) RunAll(ctx context.Context) errs.ExitCode {
	logger.Info("starting all tasks", nil)

	if status := p.RunArxiv(ctx); status == ProcessError {
		logger.Error("arxiv task failed", nil, map[string]any{"task": "all"})
		return errs.ExitProcessError
	}

	if err := p.RunRSS(ctx); err != nil {
		logger.Error("rss task failed", err, map[string]any{"task": "all"})
		return errs.ExitProcessError
	}
	if err := p.RunAnalyze(ctx); err != nil {
		logger.Error("analyze task failed", err, map[string]any{"task": "all"})
		return errs.ExitProcessError
	}
	if err := p.RunSummary(ctx); err != nil {
		logger.Error("summary task failed", err, map[string]any{"task": "all"})
		return errs.ExitProcessError
	}
	if err := p.RunUpdateFileList(); err != nil {
		logger.Error("update-file-list task failed", err, map[string]any{"task": "all"})
		return errs.ExitProcessError
	}
	p.RunNotify(ctx)

	logger.Info("all tasks complete", nil)
	return errs.ExitSuccess
}
