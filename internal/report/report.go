// Package report aggregates one day's analyzed papers and news into a
// DailyReport: sorted lists, category/keyword histograms, and LLM-generated
// prose summaries with a template fallback when the LLM stage is disabled
// or fails end-to-end.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resintel/internal/llm"
	"resintel/internal/logger"
	"resintel/internal/model"
)

// Generator builds DailyReports from analyzed papers and news.
type Generator struct {
	Client        llm.Client // nil disables LLM summaries; template fallback is used
	Categories    []string   // configured target arXiv categories, for grouping
	UseLLMSummary bool
}

// NewGenerator builds a Generator. Pass a nil client to always use the
// template fallback (e.g. when the LLM is disabled).
func NewGenerator(client llm.Client, categories []string) *Generator {
	return &Generator{Client: client, Categories: categories, UseLLMSummary: client != nil}
}

// Generate assembles one day's DailyReport.
func (g *Generator) Generate(ctx context.Context, papers []model.AnalyzedPaper, news []model.AnalyzedNews, date string) (*model.DailyReport, error) {
	sortedPapers := sortPapers(papers)
	sortedNews := sortNews(news)

	stats := computeStats(sortedPapers, sortedNews)

	summary, categorySummaries, newsSummary := g.generateFullReport(ctx, sortedPapers, sortedNews, stats)

	report := &model.DailyReport{
		Date:              date,
		Summary:           summary,
		CategorySummaries: categorySummaries,
		NewsSummary:       newsSummary,
		Stats:             stats,
		GeneratedAt:       time.Now().UTC(),
	}

	logger.Info("daily report generated", map[string]any{
		"date": date, "papers": len(sortedPapers), "news": len(sortedNews),
	})

	return report, nil
}

// sortPapers orders successfully-analyzed papers first, then by published
// time descending.
func sortPapers(papers []model.AnalyzedPaper) []model.AnalyzedPaper {
	sorted := append([]model.AnalyzedPaper(nil), papers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := statusRank(sorted[i].AnalysisStatus), statusRank(sorted[j].AnalysisStatus)
		if si != sj {
			return si < sj
		}
		return sorted[i].Published.After(sorted[j].Published)
	})
	return sorted
}

// sortNews orders successfully-analyzed news first, then by weight
// descending, then by published time descending.
func sortNews(news []model.AnalyzedNews) []model.AnalyzedNews {
	sorted := append([]model.AnalyzedNews(nil), news...)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := statusRank(sorted[i].AnalysisStatus), statusRank(sorted[j].AnalysisStatus)
		if si != sj {
			return si < sj
		}
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Published.After(sorted[j].Published)
	})
	return sorted
}

func statusRank(s model.AnalysisStatus) int {
	if s == model.AnalysisSuccess {
		return 0
	}
	return 1
}

// computeStats builds the totals, per-category histograms, and top-10
// keyword list across paper tags and news keywords.
func computeStats(papers []model.AnalyzedPaper, news []model.AnalyzedNews) model.DailyStats {
	papersByCat := make(map[string]int)
	for _, p := range papers {
		papersByCat[p.PrimaryCategory]++
	}

	newsByCat := make(map[string]int)
	for _, n := range news {
		if n.LightAnalysis != nil {
			newsByCat[string(n.LightAnalysis.Category)]++
		} else {
			newsByCat[n.SourceCategory]++
		}
	}

	keywordCounts := make(map[string]int)
	var keywordOrder []string
	bump := func(kw string) {
		if _, seen := keywordCounts[kw]; !seen {
			keywordOrder = append(keywordOrder, kw)
		}
		keywordCounts[kw]++
	}
	for _, p := range papers {
		if p.LightAnalysis != nil {
			for _, tag := range p.LightAnalysis.Tags {
				bump(tag)
			}
		}
	}
	for _, n := range news {
		if n.LightAnalysis != nil {
			for _, kw := range n.LightAnalysis.Keywords {
				bump(kw)
			}
		}
	}

	sort.SliceStable(keywordOrder, func(i, j int) bool {
		return keywordCounts[keywordOrder[i]] > keywordCounts[keywordOrder[j]]
	})
	topKeywords := keywordOrder
	if len(topKeywords) > 10 {
		topKeywords = topKeywords[:10]
	}

	return model.DailyStats{
		TotalPapers: len(papers),
		TotalNews:   len(news),
		PapersByCat: papersByCat,
		NewsByCat:   newsByCat,
		TopKeywords: topKeywords,
	}
}

// generateFullReport produces the daily summary, per-category summaries,
// and news summary, falling back to a template summary if the LLM is
// disabled or the summary stage fails end-to-end.
func (g *Generator) generateFullReport(ctx context.Context, papers []model.AnalyzedPaper, news []model.AnalyzedNews, stats model.DailyStats) (string, map[string]string, string) {
	if !g.UseLLMSummary || g.Client == nil {
		return templateSummary(stats), map[string]string{}, ""
	}

	categorySummaries, newsSummary, err := g.generateSections(ctx, papers, news)
	if err != nil {
		logger.Warn("llm report generation failed, falling back to template", map[string]any{"error": err.Error()})
		return templateSummary(stats), map[string]string{}, ""
	}

	dailySummary, err := g.generateDailySummary(ctx, categorySummaries, newsSummary)
	if err != nil {
		logger.Warn("daily summary generation failed, falling back to template", map[string]any{"error": err.Error()})
		return templateSummary(stats), map[string]string{}, ""
	}

	return dailySummary, categorySummaries, newsSummary
}

// generateSections runs the per-category summaries and the news summary
// concurrently, mirroring the reference's asyncio.gather of the two tasks.
func (g *Generator) generateSections(ctx context.Context, papers []model.AnalyzedPaper, news []model.AnalyzedNews) (map[string]string, string, error) {
	papersByCategory := make(map[string][]model.AnalyzedPaper)
	for _, cat := range g.Categories {
		papersByCategory[cat] = nil
	}
	for _, p := range papers {
		if _, tracked := papersByCategory[p.PrimaryCategory]; tracked {
			papersByCategory[p.PrimaryCategory] = append(papersByCategory[p.PrimaryCategory], p)
		}
	}

	var (
		mu                sync.Mutex
		wg                sync.WaitGroup
		categorySummaries = make(map[string]string)
		firstErr          error
	)

	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, cat := range g.Categories {
		catPapers := papersByCategory[cat]
		if len(catPapers) == 0 {
			continue
		}
		cat, catPapers := cat, catPapers
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := g.summarizeCategory(ctx, cat, catPapers)
			if err != nil {
				recordErr(fmt.Errorf("category %s: %w", cat, err))
				return
			}
			mu.Lock()
			categorySummaries[cat] = summary
			mu.Unlock()
		}()
	}

	var newsSummary string
	var newsErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		newsSummary, newsErr = g.summarizeNews(ctx, news)
	}()

	wg.Wait()
	if firstErr != nil {
		return nil, "", firstErr
	}
	if newsErr != nil {
		return nil, "", newsErr
	}
	return categorySummaries, newsSummary, nil
}

func (g *Generator) summarizeCategory(ctx context.Context, category string, papers []model.AnalyzedPaper) (string, error) {
	var content strings.Builder
	for i, p := range papers {
		if p.LightAnalysis == nil {
			continue
		}
		if i > 0 {
			content.WriteString("\n---\n")
		}
		fmt.Fprintf(&content, "Title: %s\nID: %s\nOverview: %s\nTags: %s\n",
			p.Title, p.ID, p.LightAnalysis.Overview, strings.Join(p.LightAnalysis.Tags, ", "))
	}

	prompt := categorySummaryPrompt(category, content.String())
	response, err := g.Client.Chat(ctx, llm.Messages(reportSystemPrompt, prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (g *Generator) summarizeNews(ctx context.Context, news []model.AnalyzedNews) (string, error) {
	if len(news) == 0 {
		return "no major news today.", nil
	}

	var content strings.Builder
	for i, n := range news {
		if n.LightAnalysis == nil {
			continue
		}
		if i > 0 {
			content.WriteString("\n---\n")
		}
		fmt.Fprintf(&content, "Title: %s\nSource: %s\nSummary: %s\nCategory: %s\n",
			n.Title, n.SourceName, n.LightAnalysis.Summary, n.LightAnalysis.Category)
	}

	prompt := newsSummaryPrompt(content.String())
	response, err := g.Client.Chat(ctx, llm.Messages(reportSystemPrompt, prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (g *Generator) generateDailySummary(ctx context.Context, categorySummaries map[string]string, newsSummary string) (string, error) {
	var catBlock strings.Builder
	for cat, summary := range categorySummaries {
		fmt.Fprintf(&catBlock, "### %s\n%s\n\n", cat, summary)
	}
	if catBlock.Len() == 0 {
		catBlock.WriteString("no papers were collected today.\n")
	}

	prompt := dailySummaryPrompt(catBlock.String(), newsSummary)
	response, err := g.Client.Chat(ctx, llm.Messages(reportSystemPrompt, prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// templateSummary produces a deterministic, non-LLM summary from the
// computed stats, used when LLM summaries are disabled or fail outright.
func templateSummary(stats model.DailyStats) string {
	type catCount struct {
		cat   string
		count int
	}
	var cats []catCount
	for cat, count := range stats.PapersByCat {
		cats = append(cats, catCount{cat, count})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].count > cats[j].count })
	if len(cats) > 5 {
		cats = cats[:5]
	}
	var catNames []string
	for _, c := range cats {
		catNames = append(catNames, c.cat)
	}
	catStr := "none"
	if len(catNames) > 0 {
		catStr = strings.Join(catNames, ", ")
	}

	keywords := stats.TopKeywords
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	keywordStr := "none"
	if len(keywords) > 0 {
		keywordStr = strings.Join(keywords, ", ")
	}

	return fmt.Sprintf("today: %d papers, %d news; top categories: %s; top keywords: %s",
		stats.TotalPapers, stats.TotalNews, catStr, keywordStr)
}
