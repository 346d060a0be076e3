package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resintel/internal/config"
	"resintel/internal/model"
)

func TestNewReturnsDummyNotifierWhenUnconfigured(t *testing.T) {
	n := New(config.Notification{})
	if _, ok := n.(*DummyNotifier); !ok {
		t.Fatalf("expected a DummyNotifier, got %T", n)
	}
	if ok := n.SendDailyReport(t.Context(), &model.DailyReport{Date: "2026-07-29"}); !ok {
		t.Fatalf("expected dummy notifier to report success")
	}
}

func TestNewReturnsFeishuNotifierWhenConfigured(t *testing.T) {
	n := New(config.Notification{FeishuWebhookURL: "https://example.com/webhook"})
	if _, ok := n.(*FeishuNotifier); !ok {
		t.Fatalf("expected a FeishuNotifier, got %T", n)
	}
}

func TestFeishuNotifierSendDailyReportSucceedsOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload feishuPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if payload.MsgType != "interactive" {
			t.Errorf("unexpected msg_type: %q", payload.MsgType)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok"}`))
	}))
	defer server.Close()

	f := NewFeishuNotifier(config.Notification{FeishuWebhookURL: server.URL, MaxRetries: 1})
	report := &model.DailyReport{Date: "2026-07-29", Summary: "a summary"}

	if ok := f.SendDailyReport(t.Context(), report); !ok {
		t.Fatalf("expected send to succeed")
	}
}

func TestFeishuNotifierSendRetriesThenFails(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewFeishuNotifier(config.Notification{FeishuWebhookURL: server.URL, MaxRetries: 1})
	ok := f.sendCard(t.Context(), map[string]any{"elements": []any{}})
	if ok {
		t.Fatalf("expected send to fail")
	}
	if attempts != 2 {
		t.Fatalf("expected 1 initial attempt + 1 retry = 2 total, got %d", attempts)
	}
}

func TestFeishuNotifierSendFailsOnAPIErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":9499,"msg":"param invalid"}`))
	}))
	defer server.Close()

	f := NewFeishuNotifier(config.Notification{FeishuWebhookURL: server.URL, MaxRetries: 0})
	if ok := f.sendCard(t.Context(), map[string]any{}); ok {
		t.Fatalf("expected send to fail on non-zero api code")
	}
}

func TestBuildIssueURLEmptyWithoutRepo(t *testing.T) {
	f := NewFeishuNotifier(config.Notification{FeishuWebhookURL: "https://example.com"})
	f.repoOwner, f.repoName = "", ""
	if url := f.buildIssueURL("2501.12345", "A Paper Title"); url != "" {
		t.Fatalf("expected empty issue url without a configured repo, got %q", url)
	}
}

func TestBuildIssueURLIncludesRepoAndPaperID(t *testing.T) {
	f := NewFeishuNotifier(config.Notification{FeishuWebhookURL: "https://example.com"})
	f.repoOwner, f.repoName = "owner", "repo"
	url := f.buildIssueURL("2501.12345", "A Paper Title")
	if url == "" {
		t.Fatalf("expected a non-empty issue url")
	}
	if !strings.Contains(url, "owner/repo/issues/new") || !strings.Contains(url, "2501.12345") {
		t.Fatalf("unexpected issue url: %q", url)
	}
}
