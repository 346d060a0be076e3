package llm

import (
	"os"
	"testing"
)

func TestMessagesBuildsSystemThenUser(t *testing.T) {
	msgs := Messages("be terse", "summarize this")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "be terse" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "summarize this" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestMessagesOmitsEmptySystem(t *testing.T) {
	msgs := Messages("", "hello")
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("expected single user message, got %+v", msgs)
	}
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), Config{})
	if err == nil {
		t.Fatalf("expected an error when no API key is provided")
	}
}

func TestNewGeminiClientLiveAPI(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	client, err := NewGeminiClient(t.Context(), Config{APIKey: apiKey})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}
	if client.ModelName() != DefaultModel {
		t.Fatalf("expected default model %q, got %q", DefaultModel, client.ModelName())
	}

	reply, err := client.Chat(t.Context(), Messages("", "reply with the single word: ok"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a non-empty reply")
	}
}
