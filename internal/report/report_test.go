package report

import (
	"strings"
	"testing"
	"time"

	"resintel/internal/llm"
	"resintel/internal/model"
)

func paper(id, cat string, status model.AnalysisStatus, published time.Time, tags ...string) model.AnalyzedPaper {
	p := model.AnalyzedPaper{
		Paper: model.Paper{
			ID: id, Title: "Paper " + id, PrimaryCategory: cat, Published: published,
		},
		AnalysisStatus: status,
	}
	if status == model.AnalysisSuccess {
		p.LightAnalysis = &model.PaperLightAnalysis{Overview: "an overview", Tags: tags}
	}
	return p
}

func newsItem(id string, weight float64, status model.AnalysisStatus, published time.Time, keywords ...string) model.AnalyzedNews {
	n := model.AnalyzedNews{
		NewsItem: model.NewsItem{
			ID: id, Title: "News " + id, SourceCategory: "industry", Weight: weight, Published: published,
		},
		AnalysisStatus: status,
	}
	if status == model.AnalysisSuccess {
		n.LightAnalysis = &model.NewsLightAnalysis{Summary: "a summary", Category: model.NewsCategoryLLM, Keywords: keywords}
	}
	return n
}

func TestSortPapersSuccessFirstThenRecency(t *testing.T) {
	now := time.Now()
	papers := []model.AnalyzedPaper{
		paper("old-ok", "cs.CL", model.AnalysisSuccess, now.Add(-48*time.Hour)),
		paper("failed-new", "cs.CL", model.AnalysisFailed, now),
		paper("new-ok", "cs.CL", model.AnalysisSuccess, now.Add(-1*time.Hour)),
	}

	sorted := sortPapers(papers)
	if sorted[0].ID != "new-ok" || sorted[1].ID != "old-ok" || sorted[2].ID != "failed-new" {
		ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestSortNewsByWeightThenRecency(t *testing.T) {
	now := time.Now()
	news := []model.AnalyzedNews{
		newsItem("low", 0.2, model.AnalysisSuccess, now),
		newsItem("high", 0.9, model.AnalysisSuccess, now.Add(-5*time.Hour)),
		newsItem("failed", 0.95, model.AnalysisFailed, now),
	}

	sorted := sortNews(news)
	if sorted[0].ID != "high" || sorted[1].ID != "low" || sorted[2].ID != "failed" {
		ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestComputeStatsHistogramsAndTopKeywords(t *testing.T) {
	now := time.Now()
	papers := []model.AnalyzedPaper{
		paper("p1", "cs.CL", model.AnalysisSuccess, now, "llm", "agents"),
		paper("p2", "cs.CL", model.AnalysisSuccess, now, "llm"),
		paper("p3", "cs.CV", model.AnalysisFailed, now),
	}
	news := []model.AnalyzedNews{
		newsItem("n1", 0.5, model.AnalysisSuccess, now, "llm", "funding"),
	}

	stats := computeStats(papers, news)
	if stats.TotalPapers != 3 || stats.TotalNews != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.PapersByCat["cs.CL"] != 2 || stats.PapersByCat["cs.CV"] != 1 {
		t.Fatalf("unexpected papers histogram: %+v", stats.PapersByCat)
	}
	if stats.NewsByCat["LLM"] != 1 {
		t.Fatalf("unexpected news histogram: %+v", stats.NewsByCat)
	}
	if len(stats.TopKeywords) == 0 || stats.TopKeywords[0] != "llm" {
		t.Fatalf("expected llm to be the top keyword, got %v", stats.TopKeywords)
	}
}

func TestComputeStatsTopKeywordsCapsAtTen(t *testing.T) {
	now := time.Now()
	var tags []string
	for i := 0; i < 15; i++ {
		tags = append(tags, string(rune('a'+i)))
	}
	papers := []model.AnalyzedPaper{paper("p1", "cs.CL", model.AnalysisSuccess, now, tags...)}

	stats := computeStats(papers, nil)
	if len(stats.TopKeywords) != 10 {
		t.Fatalf("expected at most 10 keywords, got %d", len(stats.TopKeywords))
	}
}

func TestGenerateFallsBackToTemplateWithoutLLM(t *testing.T) {
	g := NewGenerator(nil, []string{"cs.CL"})
	now := time.Now()
	papers := []model.AnalyzedPaper{paper("p1", "cs.CL", model.AnalysisSuccess, now, "llm")}

	report, err := g.Generate(t.Context(), papers, nil, "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(report.Summary, "1 papers") {
		t.Fatalf("expected template summary mentioning paper count, got %q", report.Summary)
	}
	if len(report.CategorySummaries) != 0 || report.NewsSummary != "" {
		t.Fatalf("expected empty llm sections in fallback mode: %+v", report)
	}
}

func TestGenerateUsesLLMWhenAvailable(t *testing.T) {
	client := &llm.FakeClient{Fn: func(messages []llm.Message) (string, error) {
		// distinguish by prompt content, since every call shares the same system prompt
		for _, m := range messages {
			if strings.Contains(m.Content, "## Category summaries") {
				return "a daily overview.", nil
			}
		}
		return "a section summary.", nil
	}}
	g := NewGenerator(client, []string{"cs.CL"})
	now := time.Now()
	papers := []model.AnalyzedPaper{paper("p1", "cs.CL", model.AnalysisSuccess, now, "llm")}
	news := []model.AnalyzedNews{newsItem("n1", 0.5, model.AnalysisSuccess, now, "llm")}

	report, err := g.Generate(t.Context(), papers, news, "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary != "a daily overview." {
		t.Fatalf("unexpected daily summary: %q", report.Summary)
	}
	if report.CategorySummaries["cs.CL"] != "a section summary." {
		t.Fatalf("unexpected category summary: %+v", report.CategorySummaries)
	}
	if report.NewsSummary != "a section summary." {
		t.Fatalf("unexpected news summary: %q", report.NewsSummary)
	}
}

func TestGenerateFallsBackOnLLMFailure(t *testing.T) {
	client := &llm.FakeClient{Errs: []error{assertErr{}}}
	g := NewGenerator(client, []string{"cs.CL"})
	now := time.Now()
	papers := []model.AnalyzedPaper{paper("p1", "cs.CL", model.AnalysisSuccess, now, "llm")}

	report, err := g.Generate(t.Context(), papers, nil, "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(report.Summary, "today:") {
		t.Fatalf("expected template fallback summary, got %q", report.Summary)
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
