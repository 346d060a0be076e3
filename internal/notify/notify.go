// Package notify sends best-effort outbound notifications about a daily
// report or a completed deep analysis. A failure here is always logged,
// never propagated, since notification is never allowed to fail the
// pipeline run that produced the content it reports on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resintel/internal/config"
	"resintel/internal/logger"
	"resintel/internal/model"
)

// Notifier sends a daily report or a deep-analysis completion as one
// outbound message per call.
type Notifier interface {
	SendDailyReport(ctx context.Context, report *model.DailyReport) bool
	SendDeepAnalysis(ctx context.Context, paperID, paperTitle, summary, issueURL string) bool
}

// New returns a FeishuNotifier if a webhook URL is configured, otherwise a
// DummyNotifier that logs and reports success without sending anything.
func New(cfg config.Notification) Notifier {
	if cfg.FeishuWebhookURL == "" {
		return &DummyNotifier{Reason: "feishu_webhook_url not configured"}
	}
	return NewFeishuNotifier(cfg)
}

// DummyNotifier is the no-op Notifier used when no outbound channel is configured.
type DummyNotifier struct {
	Reason string
}

// SendDailyReport logs and reports success without sending anything.
func (d *DummyNotifier) SendDailyReport(_ context.Context, report *model.DailyReport) bool {
	logger.Info("skipping daily report notification", map[string]any{
		"reason": d.Reason, "date": report.Date,
	})
	return true
}

// SendDeepAnalysis logs and reports success without sending anything.
func (d *DummyNotifier) SendDeepAnalysis(_ context.Context, paperID, paperTitle, _, _ string) bool {
	logger.Info("skipping deep analysis notification", map[string]any{
		"reason": d.Reason, "paper_id": paperID, "paper_title": paperTitle,
	})
	return true
}

// FeishuNotifier posts interactive message cards to a Feishu custom-bot webhook.
type FeishuNotifier struct {
	webhookURL string
	repoOwner  string
	repoName   string
	siteURL    string
	maxRetries int

	httpClient *http.Client
}

// NewFeishuNotifier builds a FeishuNotifier from configuration and the
// GITHUB_REPOSITORY(_OWNER)/SITE_URL environment variables.
func NewFeishuNotifier(cfg config.Notification) *FeishuNotifier {
	ownerRepo, owner := config.GitHubRepository()
	repoOwner, repoName := owner, ""
	if i := strings.IndexByte(ownerRepo, '/'); i >= 0 {
		repoOwner, repoName = ownerRepo[:i], ownerRepo[i+1:]
	} else if ownerRepo != "" {
		repoName = ownerRepo
	}

	siteURL := cfg.SiteURL
	if siteURL == "" && repoOwner != "" {
		siteURL = fmt.Sprintf("https://%s.github.io/%s", repoOwner, repoName)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &FeishuNotifier{
		webhookURL: cfg.FeishuWebhookURL,
		repoOwner:  repoOwner,
		repoName:   repoName,
		siteURL:    siteURL,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// SendDailyReport posts the daily report card. Never returns an error:
// failure is logged and false is returned.
func (f *FeishuNotifier) SendDailyReport(ctx context.Context, report *model.DailyReport) bool {
	card := f.buildDailyCard(report)
	ok := f.sendCard(ctx, card)
	if !ok {
		logger.Warn("daily report notification failed", map[string]any{"date": report.Date})
	}
	return ok
}

// SendDeepAnalysis posts the deep-analysis completion card.
func (f *FeishuNotifier) SendDeepAnalysis(ctx context.Context, paperID, paperTitle, summary, issueURL string) bool {
	card := f.buildAnalysisCard(paperID, paperTitle, summary, issueURL)
	ok := f.sendCard(ctx, card)
	if !ok {
		logger.Warn("deep analysis notification failed", map[string]any{"paper_id": paperID})
	}
	return ok
}

// feishuPayload is the top-level webhook request body.
type feishuPayload struct {
	MsgType string `json:"msg_type"`
	Card    any    `json:"card"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// sendCard POSTs card to the webhook with bounded exponential-backoff
// retries (1s, 2s, 4s, ...), matching the reference's retry loop.
func (f *FeishuNotifier) sendCard(ctx context.Context, card any) bool {
	body, err := json.Marshal(feishuPayload{MsgType: "interactive", Card: card})
	if err != nil {
		logger.Error("failed to marshal feishu card", err, nil)
		return false
	}

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if ok := f.postOnce(ctx, body); ok {
			logger.Info("feishu message sent", nil)
			return true
		}
		if attempt < f.maxRetries {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return false
			}
		}
	}

	logger.Error("feishu message failed after retries", nil, map[string]any{"attempts": f.maxRetries + 1})
	return false
}

func (f *FeishuNotifier) postOnce(ctx context.Context, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		logger.Warn("feishu request failed", map[string]any{"error": err.Error()})
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("feishu webhook returned non-200 status", map[string]any{"status": resp.StatusCode})
		return false
	}

	raw, _ := io.ReadAll(resp.Body)
	var result feishuResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Warn("feishu response unparseable", map[string]any{"error": err.Error()})
		return false
	}
	if result.Code != 0 {
		logger.Warn("feishu api returned an error", map[string]any{"code": result.Code, "msg": result.Msg})
		return false
	}
	return true
}

// buildIssueURL builds a pre-filled GitHub issue-creation link requesting
// deep analysis of a paper, empty if no repository is configured.
func (f *FeishuNotifier) buildIssueURL(paperID, paperTitle string) string {
	if f.repoOwner == "" || f.repoName == "" {
		return ""
	}

	title := fmt.Sprintf("[Analysis] %s: %s", paperID, truncateRunes(paperTitle, 50))
	bodyText := fmt.Sprintf(issueBodyTemplate, paperID, paperTitle, paperID)

	params := url.Values{}
	params.Set("title", title)
	params.Set("body", bodyText)
	params.Set("labels", "agent-task")

	return fmt.Sprintf("https://github.com/%s/%s/issues/new?%s", f.repoOwner, f.repoName, params.Encode())
}

// truncateRunes truncates value to at most maxRunes runes, appending "..."
// if anything was cut. Counting runes (not bytes) keeps a multi-byte UTF-8
// character from being split in the middle.
func truncateRunes(value string, maxRunes int) string {
	runes := []rune(value)
	if len(runes) <= maxRunes {
		return value
	}
	return string(runes[:maxRunes]) + "..."
}

const issueBodyTemplate = `## Deep analysis request

**Paper ID**: %s
**Paper title**: %s
**arXiv link**: https://arxiv.org/abs/%s
`
