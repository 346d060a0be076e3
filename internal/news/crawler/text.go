package crawler

import (
	"crypto/md5"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
)

// GenerateID derives the same stable 16-hex-char id scheme as the feed
// family (news.GenerateID), duplicated here to avoid an import cycle.
func GenerateID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagsRe        = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`[ \t\f\v]+`)
	newlinesRe    = regexp.MustCompile(`\n{3,}`)
)

// cleanText mirrors the news package's HTML cleanup, kept as its own copy
// here to avoid an import cycle (the news package imports this one).
func cleanText(value string) string {
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
