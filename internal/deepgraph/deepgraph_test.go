package deepgraph

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"resintel/internal/llm"
	"resintel/internal/search"
)

func systemPromptOf(messages []llm.Message) string {
	if len(messages) == 0 {
		return ""
	}
	if messages[0].Role == llm.RoleSystem {
		// runReAct appends an "Available tools" listing to the agent's
		// system prompt; strip it so callers can match the base prompt.
		base, _, _ := strings.Cut(messages[0].Content, "\n\nAvailable tools:")
		return base
	}
	return ""
}

// TestRunForcesWriteAfterMaxResearchIterations exercises the supervisor's
// enforcement of the research-iteration cap: even though the fake LLM would
// keep asking for more research, MaxIterations=1 forces a route to the
// writer on the second supervisor visit without consulting the model.
func TestRunForcesWriteAfterMaxResearchIterations(t *testing.T) {
	writeCalls := 0
	client := &llm.FakeClient{Fn: func(messages []llm.Message) (string, error) {
		switch systemPromptOf(messages) {
		case supervisorSystemPrompt:
			d, _ := json.Marshal(supervisorDecision{Action: "conduct_research", Topic: "background"})
			return string(d), nil
		case researcherSystemPrompt:
			d, _ := json.Marshal(reactDecision{Action: "final", Content: "a research note"})
			return string(d), nil
		case writerSystemPrompt:
			writeCalls++
			return "# Draft report", nil
		case reviewerSystemPrompt:
			d, _ := json.Marshal(reviewerDecision{Action: "approve_report"})
			return string(d), nil
		default:
			t.Fatalf("unexpected call with messages: %+v", messages)
			return "", nil
		}
	}}

	state := NewState("2507.00001", "A Paper", "an abstract", "", "", 1, 3)
	deps := Deps{Client: client, SearchTool: noopTool{}, ArxivLoaderTool: noopTool{}}

	result, err := Run(context.Background(), state, deps)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.ResearchIterations != 1 {
		t.Fatalf("expected exactly 1 research iteration, got %d", state.ResearchIterations)
	}
	if writeCalls != 1 {
		t.Fatalf("expected writer to run once, got %d", writeCalls)
	}
	if result.ReportMarkdown != "# Draft report" {
		t.Fatalf("unexpected report: %q", result.ReportMarkdown)
	}
}

// TestRunTerminatesAtMaxWriteIterations covers S5: a reviewer that always
// requests revision still forces termination once write_iterations reaches
// max_write_iterations, and the final report is the last draft produced.
func TestRunTerminatesAtMaxWriteIterations(t *testing.T) {
	draftN := 0
	client := &llm.FakeClient{Fn: func(messages []llm.Message) (string, error) {
		switch systemPromptOf(messages) {
		case supervisorSystemPrompt:
			d, _ := json.Marshal(supervisorDecision{Action: "research_complete", Summary: "enough"})
			return string(d), nil
		case writerSystemPrompt:
			draftN++
			return "draft v" + string(rune('0'+draftN)), nil
		case reviewerSystemPrompt:
			d, _ := json.Marshal(reviewerDecision{Action: "request_revision", Feedback: "needs more detail"})
			return string(d), nil
		default:
			t.Fatalf("unexpected call with messages: %+v", messages)
			return "", nil
		}
	}}

	state := NewState("2507.00002", "Another Paper", "abstract", "", "", 5, 3)
	deps := Deps{Client: client}

	result, err := Run(context.Background(), state, deps)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if state.WriteIterations != 3 {
		t.Fatalf("expected exactly 3 write iterations, got %d", state.WriteIterations)
	}
	if result.ReportMarkdown != "draft v3" {
		t.Fatalf("expected final report to be the 3rd draft, got %q", result.ReportMarkdown)
	}
}

// noopTool is a Tool stub for tests where the ReAct loop produces a final
// answer without ever invoking a tool.
type noopTool struct{}

func (noopTool) Name() string        { return "noop" }
func (noopTool) Description() string { return "does nothing" }
func (noopTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	return "", nil
}

func TestStringSliceHandlesVariousShapes(t *testing.T) {
	if got := stringSlice([]any{"a", "b", 1}); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected result: %v", got)
	}
	if got := stringSlice("solo"); len(got) != 1 || got[0] != "solo" {
		t.Fatalf("unexpected result for bare string: %v", got)
	}
	if got := stringSlice(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %v", got)
	}
}

func TestDecodeToolArgsRejectsInvalidJSON(t *testing.T) {
	if got := decodeToolArgs(""); got != nil {
		t.Fatalf("expected nil for empty string, got %v", got)
	}
	if got := decodeToolArgs("not json"); got != nil {
		t.Fatalf("expected nil for invalid json, got %v", got)
	}
	got := decodeToolArgs(`{"section":"method"}`)
	if got["section"] != "method" {
		t.Fatalf("unexpected decode result: %v", got)
	}
}

func TestFormatSearchResultsTruncatesLongSnippets(t *testing.T) {
	longSnippet := strings.Repeat("x", 400)
	out := formatSearchResults([]search.Result{{Title: "T", URL: "https://example.com", Snippet: longSnippet, Rank: 1}})
	if !strings.Contains(out, "...") {
		t.Fatalf("expected truncation marker in output: %q", out)
	}
}

func TestPaperReaderToolDescriptionMentionsOverview(t *testing.T) {
	tool := NewPaperReaderTool(nil)
	if !strings.Contains(tool.Description(), "overview") {
		t.Fatalf("expected description to mention the no-args overview behavior: %q", tool.Description())
	}
}
