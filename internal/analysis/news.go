package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"resintel/internal/errs"
	"resintel/internal/llm"
	"resintel/internal/model"
)

const newsSystemPromptTemplate = `You analyze AI industry news items for a daily research digest read in %s.
Write every field in %s. Be factual and neutral; do not speculate beyond
what the title, summary, and content support. Do not include any text
outside the requested JSON fields.`

const newsUserPromptTemplate = `Title: %s

Summary:
%s

Content:
%s

Produce:
- summary: 150-200 words covering what happened and why it is relevant to an AI/ML audience.
- category: one of "AI", "LLM", "open-source", "product", "industry", "other".
- sentiment: one of "positive", "neutral", "negative", reflecting the news itself (not your opinion).
- keywords: up to 5 short keywords.`

var newsAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
		"category": {
			Type: genai.TypeString,
			Enum: []string{"AI", "LLM", "open-source", "product", "industry", "other"},
		},
		"sentiment": {
			Type: genai.TypeString,
			Enum: []string{"positive", "neutral", "negative"},
		},
		"keywords": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"summary", "category", "sentiment", "keywords"},
}

// NewsConfig builds the Config for analyzing news items, with system
// prompt language already substituted in.
func NewsConfig(languageDisplay string) Config[model.NewsItem, model.AnalyzedNews] {
	system := fmt.Sprintf(newsSystemPromptTemplate, languageDisplay, languageDisplay)

	return Config[model.NewsItem, model.AnalyzedNews]{
		SystemPrompt: system,
		BuildUserContent: func(n model.NewsItem) string {
			content := n.Content
			if content == "" {
				content = n.Summary
			}
			return fmt.Sprintf(newsUserPromptTemplate, n.Title, n.Summary, content)
		},
		Schema: newsAnalysisSchema,
		NewOutput: func(n model.NewsItem) model.AnalyzedNews {
			return model.AnalyzedNews{NewsItem: n, AnalysisStatus: model.AnalysisPending}
		},
		ApplyResult: func(out *model.AnalyzedNews, raw string, at time.Time) error {
			var parsed model.NewsLightAnalysis
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				return err
			}
			out.LightAnalysis = &parsed
			out.AnalysisStatus = model.AnalysisSuccess
			out.AnalyzedAt = &at
			out.AnalysisError = ""
			return nil
		},
		ApplyFailure: func(out *model.AnalyzedNews, err error) {
			out.AnalysisStatus = model.AnalysisFailed
			out.AnalysisError = errs.Describe(err)
		},
		ItemID: func(n model.NewsItem) string { return n.ID },
	}
}

// AnalyzeNews runs light analysis over news items concurrently, bounded by sem.
func AnalyzeNews(ctx context.Context, client llm.Client, sem *semaphore.Weighted, items []model.NewsItem, languageDisplay string) []model.AnalyzedNews {
	return Batch(ctx, client, sem, items, NewsConfig(languageDisplay))
}
