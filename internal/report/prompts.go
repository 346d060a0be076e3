package report

import "fmt"

// Prompt bodies are authored fresh: the reference source's report prompt
// module (src/prompts/report.py) contains only a module docstring, with
// every template string filtered out of the retrieval pack.
const reportSystemPrompt = `You write concise, accurate prose summaries of AI/ML research and news for a ` +
	`daily research-intelligence report. Write in plain Markdown paragraphs, no headings, no bullet lists ` +
	`unless the source content is itself a list.`

func categorySummaryPrompt(category, papersContent string) string {
	return fmt.Sprintf(`Summarize today's papers in the "%s" category in 200-300 characters. Highlight the `+
		`most notable contributions and any shared themes.

%s`, category, papersContent)
}

func newsSummaryPrompt(newsContent string) string {
	return fmt.Sprintf(`Summarize today's AI/ML news in one or two short paragraphs, covering the most `+
		`significant developments.

%s`, newsContent)
}

func dailySummaryPrompt(categorySummariesContent, newsSummaryContent string) string {
	return fmt.Sprintf(`Write a short overview of today's research intelligence report, drawing on the `+
		`category summaries and news summary below. Keep it to one or two paragraphs.

## Category summaries
%s

## News summary
%s`, categorySummariesContent, newsSummaryContent)
}
