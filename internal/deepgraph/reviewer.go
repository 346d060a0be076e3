package deepgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"resintel/internal/llm"
)

// reviewerSystemPrompt is authored fresh for the same reason as
// supervisorSystemPrompt: the reference reviewer node is a truncated stub
// whose docstring only states its responsibility -- reviewing report
// quality and either approving the report or requesting revisions.
const reviewerSystemPrompt = `You are the Reviewer agent in a paper deep-analysis workflow. Read the ` +
	`draft report against the paper context and research notes. Call approve_report if the draft is ` +
	`accurate, well-organized, and adequately supported by the research notes. Call request_revision ` +
	`with specific, actionable feedback if it is not.`

type reviewerDecision struct {
	Action   string `json:"action"` // "approve_report" | "request_revision"
	Comment  string `json:"comment,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

var reviewerDecisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"action":   {Type: genai.TypeString, Enum: []string{"approve_report", "request_revision"}},
		"comment":  {Type: genai.TypeString},
		"feedback": {Type: genai.TypeString},
	},
	Required: []string{"action"},
}

// reviewerNode judges the current draft and returns whether it was
// approved. On any failure to reach a clear verdict it defaults to
// approval, per the spec's stated fallback for "neither tool is called".
func reviewerNode(ctx context.Context, state *State, deps Deps) (bool, error) {
	task := fmt.Sprintf("## Paper\n- Title: %s\n- Abstract: %s\n\n## Draft report\n%s\n", state.PaperTitle, state.PaperAbstract, state.DraftReport)

	raw, err := deps.Client.ChatStructured(ctx, llm.Messages(reviewerSystemPrompt, task), reviewerDecisionSchema)
	if err != nil {
		return true, nil
	}

	var decision reviewerDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return true, nil
	}

	if decision.Action == "request_revision" && decision.Feedback != "" {
		state.ReviewFeedback = decision.Feedback
		return false, nil
	}

	return true, nil
}
