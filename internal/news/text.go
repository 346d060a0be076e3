package news

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagsRe        = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`[ \t\f\v]+`)
	newlinesRe    = regexp.MustCompile(`\n{3,}`)
)

// cleanHTMLToText strips script/style blocks and tags from HTML/rich-text,
// unescapes entities, and collapses whitespace/newlines, so feed and
// crawler content can be fed to the LLM as plain text.
func cleanHTMLToText(value string) string {
	if value == "" {
		return ""
	}

	text := scriptStyleRe.ReplaceAllString(value, "")
	text = tagsRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = newlinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// truncateText truncates value to maxLength runes, appending "..." if
// anything was cut.
func truncateText(value string, maxLength int) string {
	if value == "" || maxLength <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= maxLength {
		return value
	}
	return string(runes[:maxLength]) + "..."
}
