package deepgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resintel/internal/llm"
)

// supervisorSystemPrompt is authored fresh: the reference supervisor node
// is a truncated stub whose docstring only states its responsibility --
// research planning, task assignment, and progress evaluation. The tool
// contract below (conduct_research / research_complete) comes from the
// spec's description of the supervisor's two available actions.
const supervisorSystemPrompt = `You are the Supervisor agent coordinating a paper deep-analysis workflow. ` +
	`Review the paper context and the research notes gathered so far, then decide whether more research ` +
	`is needed. Call conduct_research with a specific topic when another research pass would meaningfully ` +
	`improve the final report; call research_complete with a short summary once the notes are sufficient ` +
	`to write the report.`

type supervisorDecision struct {
	Action  string `json:"action"` // "conduct_research" | "research_complete"
	Topic   string `json:"topic,omitempty"`
	Summary string `json:"summary,omitempty"`
}

var supervisorDecisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"action":  {Type: genai.TypeString, Enum: []string{"conduct_research", "research_complete"}},
		"topic":   {Type: genai.TypeString},
		"summary": {Type: genai.TypeString},
	},
	Required: []string{"action"},
}

// supervisorNode decides whether to route to the researcher or the writer.
// It enforces the research_iterations < max_iterations cap itself: the
// reference source defines should_continue_research for exactly this check
// but never wires it into the compiled graph's conditional edges, so the
// cap would otherwise go unenforced. Forcing ActionWrite once the cap is
// hit is this package's adaptation of that orphaned function's intent.
func supervisorNode(ctx context.Context, state *State, deps Deps) error {
	if state.ResearchIterations >= state.MaxIterations {
		state.NextAction = ActionWrite
		state.CurrentResearchTopic = ""
		return nil
	}

	task := buildSupervisorTask(state)
	raw, err := deps.Client.ChatStructured(ctx, llm.Messages(supervisorSystemPrompt, task), supervisorDecisionSchema)
	if err != nil {
		// Default to researcher on failure, matching the spec's stated
		// fallback for "no tool call".
		state.NextAction = ActionResearch
		state.CurrentResearchTopic = defaultResearchTopic(state)
		return nil
	}

	var decision supervisorDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil || decision.Action != "research_complete" {
		state.NextAction = ActionResearch
		topic := decision.Topic
		if topic == "" {
			topic = defaultResearchTopic(state)
		}
		state.CurrentResearchTopic = topic
		return nil
	}

	state.NextAction = ActionWrite
	state.CurrentResearchTopic = ""
	if decision.Summary != "" {
		state.SupervisorMessages = append(state.SupervisorMessages, Message{Role: MsgAssistant, Content: decision.Summary})
	}
	return nil
}

func defaultResearchTopic(state *State) string {
	if state.PaperTitle != "" {
		return "background and related work for: " + state.PaperTitle
	}
	return "background and related work"
}

func buildSupervisorTask(state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Paper\n- ID: %s\n- Title: %s\n- Abstract: %s\n\n", state.PaperID, state.PaperTitle, state.PaperAbstract)
	fmt.Fprintf(&b, "## Progress\n- Research iterations so far: %d / %d\n", state.ResearchIterations, state.MaxIterations)
	if len(state.ResearchNotes) == 0 {
		b.WriteString("- No research notes have been gathered yet.\n")
	} else {
		b.WriteString("\n## Research notes so far\n")
		for i, note := range state.ResearchNotes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, note)
		}
	}
	return b.String()
}
