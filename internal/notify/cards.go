package notify

import (
	"fmt"
	"strings"

	"resintel/internal/model"
)

// card element types, mirroring the Feishu interactive-card JSON schema.
type textBlock struct {
	Tag  string `json:"tag"`
	Text any    `json:"text"`
}

type larkText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type button struct {
	Tag  string   `json:"tag"`
	Text larkText `json:"text"`
	Type string   `json:"type"`
	URL  string   `json:"url"`
}

type actionRow struct {
	Tag     string   `json:"tag"`
	Actions []button `json:"actions"`
}

type hr struct {
	Tag string `json:"tag"`
}

func markdown(content string) textBlock {
	return textBlock{Tag: "div", Text: larkText{Tag: "lark_md", Content: content}}
}

// buildDailyCard renders the daily report as a Feishu interactive card:
// overall summary, per-category highlights, the news summary, and, when a
// site URL is configured, a footer action row linking to the day's papers
// and news pages. Individual papers and news headlines are not listed.
func (f *FeishuNotifier) buildDailyCard(report *model.DailyReport) map[string]any {
	var elements []any

	elements = append(elements, markdown(report.Summary))
	elements = append(elements, hr{Tag: "hr"})

	if len(report.CategorySummaries) > 0 {
		elements = append(elements, markdown(fmt.Sprintf("**Category highlights** (%d)", len(report.CategorySummaries))))
		for cat, summary := range report.CategorySummaries {
			elements = append(elements, markdown(fmt.Sprintf("**%s**\n%s", cat, summary)))
		}
		elements = append(elements, hr{Tag: "hr"})
	}

	if report.NewsSummary != "" {
		elements = append(elements, markdown("**News summary**\n"+report.NewsSummary))
		elements = append(elements, hr{Tag: "hr"})
	}

	var bottomActions []button
	if f.siteURL != "" {
		papersURL := fmt.Sprintf("%s/#/papers?date=%s", strings.TrimRight(f.siteURL, "/"), report.Date)
		bottomActions = append(bottomActions, button{
			Tag: "button", Type: "primary", URL: papersURL,
			Text: larkText{Tag: "plain_text", Content: fmt.Sprintf("View all %d papers today", report.Stats.TotalPapers)},
		})
		newsURL := fmt.Sprintf("%s/#/news?date=%s", strings.TrimRight(f.siteURL, "/"), report.Date)
		bottomActions = append(bottomActions, button{
			Tag: "button", Type: "default", URL: newsURL,
			Text: larkText{Tag: "plain_text", Content: fmt.Sprintf("View all %d news today", report.Stats.TotalNews)},
		})
	}
	if len(bottomActions) > 0 {
		elements = append(elements, actionRow{Tag: "action", Actions: bottomActions})
	}

	return map[string]any{
		"header": map[string]any{
			"title":    larkText{Tag: "plain_text", Content: "Research intelligence daily report - " + report.Date},
			"template": "blue",
		},
		"elements": elements,
	}
}

// buildAnalysisCard renders a completed deep-analysis run as a Feishu card
// with a truncated summary and links to the full report and the paper.
func (f *FeishuNotifier) buildAnalysisCard(paperID, paperTitle, summary, issueURL string) map[string]any {
	truncated := truncateRunes(summary, 500)

	actions := []button{
		{Tag: "button", Type: "primary", URL: issueURL, Text: larkText{Tag: "plain_text", Content: "View full analysis"}},
		{Tag: "button", Type: "default", URL: "https://arxiv.org/abs/" + paperID, Text: larkText{Tag: "plain_text", Content: "arXiv source"}},
	}

	elements := []any{
		markdown("**Paper title**: " + paperTitle),
		hr{Tag: "hr"},
		markdown("**Analysis summary**:\n\n" + truncated),
		hr{Tag: "hr"},
		actionRow{Tag: "action", Actions: actions},
	}

	return map[string]any{
		"header": map[string]any{
			"title":    larkText{Tag: "plain_text", Content: "Deep analysis complete - " + paperID},
			"template": "green",
		},
		"elements": elements,
	}
}
