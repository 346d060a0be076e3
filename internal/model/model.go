// Package model holds the plain data types shared across the pipeline:
// papers, news items, their light analyses, the daily report, and the
// deep-analysis artifacts.
package model

import "time"

// Paper is an immutable record of a fetched arXiv paper.
type Paper struct {
	ID              string    `json:"id"`               // canonical arXiv id without version, e.g. "2501.12345"
	Title           string    `json:"title"`            // normalized single-line title
	Abstract        string    `json:"abstract"`         // normalized single-line abstract
	Authors         []string  `json:"authors"`          // ordered author names
	Categories      []string  `json:"categories"`       // all arXiv categories on the entry
	PrimaryCategory string    `json:"primary_category"` // must be one of the configured target categories
	AbsURL          string    `json:"abs_url"`          // https://arxiv.org/abs/{id}
	PDFURL          string    `json:"pdf_url"`          // https://arxiv.org/pdf/{id}.pdf
	Published       time.Time `json:"published"`
	Updated         time.Time `json:"updated,omitempty"` // zero value if absent; Updated >= Published when present
	Comment         string    `json:"comment,omitempty"`
}

// Latest returns the most recent of Published/Updated, per the time-window filter rule.
func (p Paper) Latest() time.Time {
	if p.Updated.After(p.Published) {
		return p.Updated
	}
	return p.Published
}

// NewsFetchType distinguishes the two news source families.
type NewsFetchType string

const (
	NewsFetchFeed    NewsFetchType = "feed"
	NewsFetchCrawler NewsFetchType = "crawler"
)

// NewsItem is a record for one ingested news link.
type NewsItem struct {
	ID             string        `json:"id"` // 16-hex prefix of MD5(url), stable across runs
	Title          string        `json:"title"`
	URL            string        `json:"url"`
	SourceName     string        `json:"source_name"`
	SourceCategory string        `json:"source_category"`
	Language       string        `json:"language"`
	Published      time.Time     `json:"published"`
	Weight         float64       `json:"weight"` // in [0,1], inherited from source config
	Summary        string        `json:"summary,omitempty"`
	Content        string        `json:"content,omitempty"`
	FetchType      NewsFetchType `json:"fetch_type"`
	Company        string        `json:"company,omitempty"`
}

// PaperLightAnalysis is the structured per-paper LLM analysis.
type PaperLightAnalysis struct {
	Overview   string   `json:"overview"`   // <=50 words
	Motivation string   `json:"motivation"` // 100-150 words
	Method     string   `json:"method"`     // 100-150 words
	Result     string   `json:"result"`     // 100-150 words
	Conclusion string   `json:"conclusion"` // 100-150 words
	Tags       []string `json:"tags"`       // 3-5 tags
}

// NewsCategory is the LLM-assigned coarse category for a news item.
type NewsCategory string

const (
	NewsCategoryAI         NewsCategory = "AI"
	NewsCategoryLLM        NewsCategory = "LLM"
	NewsCategoryOpenSource NewsCategory = "open-source"
	NewsCategoryProduct    NewsCategory = "product"
	NewsCategoryIndustry   NewsCategory = "industry"
	NewsCategoryOther      NewsCategory = "other"
)

// Sentiment is the LLM-assigned sentiment of a news item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NewsLightAnalysis is the structured per-news LLM analysis.
type NewsLightAnalysis struct {
	Summary   string       `json:"summary"` // 150-200 words
	Category  NewsCategory `json:"category"`
	Sentiment Sentiment    `json:"sentiment"`
	Keywords  []string     `json:"keywords"` // up to 5
}

// AnalysisStatus tracks the state of an item's light analysis.
type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "pending"
	AnalysisSuccess AnalysisStatus = "success"
	AnalysisFailed  AnalysisStatus = "failed"
)

// AnalyzedPaper is a Paper enriched with its light analysis.
type AnalyzedPaper struct {
	Paper
	LightAnalysis  *PaperLightAnalysis `json:"light_analysis,omitempty"`
	AnalyzedAt     *time.Time          `json:"analyzed_at,omitempty"`
	AnalysisStatus AnalysisStatus      `json:"analysis_status"`
	AnalysisError  string              `json:"analysis_error,omitempty"`
}

// IsAnalyzed reports whether this item has a successful light analysis attached.
func (a AnalyzedPaper) IsAnalyzed() bool {
	return a.AnalysisStatus == AnalysisSuccess && a.LightAnalysis != nil
}

// AnalyzedNews is a NewsItem enriched with its light analysis.
type AnalyzedNews struct {
	NewsItem
	LightAnalysis  *NewsLightAnalysis `json:"light_analysis,omitempty"`
	AnalyzedAt     *time.Time         `json:"analyzed_at,omitempty"`
	AnalysisStatus AnalysisStatus     `json:"analysis_status"`
	AnalysisError  string             `json:"analysis_error,omitempty"`
}

// IsAnalyzed reports whether this item has a successful light analysis attached.
func (a AnalyzedNews) IsAnalyzed() bool {
	return a.AnalysisStatus == AnalysisSuccess && a.LightAnalysis != nil
}

// DailyStats summarizes one day's ingestion + analysis.
type DailyStats struct {
	TotalPapers int            `json:"total_papers"`
	TotalNews   int            `json:"total_news"`
	PapersByCat map[string]int `json:"papers_by_category"`
	NewsByCat   map[string]int `json:"news_by_category"`
	TopKeywords []string       `json:"top_keywords"`
}

// DailyReport is the aggregated daily output.
type DailyReport struct {
	Date              string            `json:"date"` // YYYY-MM-DD
	Summary           string            `json:"summary"`
	CategorySummaries map[string]string `json:"category_summaries"`
	NewsSummary       string            `json:"news_summary"`
	Stats             DailyStats        `json:"stats"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// DeepAnalysisResult is the output of one deep-analysis invocation.
type DeepAnalysisResult struct {
	ReportMarkdown      string        `json:"report_markdown"`
	ResearchIterations  int           `json:"research_iterations"`
	WriteIterations     int           `json:"write_iterations"`
	FulltextParseStatus string        `json:"fulltext_parse_status"`
	SectionCount        int           `json:"section_count"`
	Duration            time.Duration `json:"duration"`
	Provider            string        `json:"provider"`
	Model               string        `json:"model"`
}

// Section is one node of the arXiv HTML fulltext heading tree.
type Section struct {
	Level      int        `json:"level"` // heading level, 2-6
	Heading    string     `json:"heading"`
	Number     string     `json:"number,omitempty"` // leading dotted-numeric prefix, e.g. "3.2"
	Title      string     `json:"title"`            // heading text with the numeric prefix stripped
	Paragraphs []string   `json:"paragraphs"`
	Children   []*Section `json:"children,omitempty"`
}

// FulltextSource records where an ArxivHtmlFulltext was retrieved from.
type FulltextSource struct {
	Provider  string    `json:"provider"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FulltextStats carries simple size metrics about a parsed fulltext document.
type FulltextStats struct {
	HTMLChars int `json:"html_chars"`
	Blocks    int `json:"blocks"`
}

// ArxivHtmlFulltext is the parsed tree produced from the official arXiv HTML rendering.
type ArxivHtmlFulltext struct {
	PaperID               string         `json:"paper_id"`
	Source                FulltextSource `json:"source"`
	Title                 string         `json:"title"`
	Authors               []string       `json:"authors"`
	Abstract              string         `json:"abstract"`
	FrontMatterParagraphs []string       `json:"front_matter_paragraphs"`
	Sections              []*Section     `json:"sections"`
	Stats                 FulltextStats  `json:"stats"`
	SummaryContext        string         `json:"summary_context"`
}
