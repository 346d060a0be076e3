package deepgraph

import (
	"context"
	"fmt"
	"strings"

	"resintel/internal/llm"
)

const writerSystemPrompt = `You are the Writer agent in a multi-agent paper analysis workflow. ` +
	`Draft a deep analysis report in Markdown from the paper metadata and the research notes provided. ` +
	`When reviewer feedback and a previous draft are included, revise the draft to address the feedback ` +
	`rather than starting over.`

// writerNode drafts (or revises) the report from the accumulated research
// notes and paper context. Ported from the reference writer_node, the
// workflow's other fully implemented node.
func writerNode(ctx context.Context, state *State, deps Deps) error {
	var notes strings.Builder
	for i, note := range state.ResearchNotes {
		if i > 0 {
			notes.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&notes, "### Research note %d\n%s", i+1, note)
	}

	var task strings.Builder
	fmt.Fprintf(&task, "Write a deep analysis report based on the following information:\n\n## Paper\n- ID: %s\n- Title: %s\n- Abstract: %s\n",
		state.PaperID, state.PaperTitle, state.PaperAbstract)

	if state.FullContent != "" {
		fmt.Fprintf(&task, "\n## Paper full-text overview\n%s\n", state.FullContent)
	}
	if state.TablesContent != "" {
		fmt.Fprintf(&task, "\n## Paper tables\n%s\n", state.TablesContent)
	}
	if state.FiguresContent != "" {
		fmt.Fprintf(&task, "\n## Paper figures\n%s\n", state.FiguresContent)
	}
	if state.Requirements != "" {
		fmt.Fprintf(&task, "\n## Requirements\n%s\n", state.Requirements)
	}

	fmt.Fprintf(&task, "\n## Research notes\n%s\n", notes.String())

	if state.ReviewFeedback != "" {
		fmt.Fprintf(&task, "\n## Reviewer feedback\n%s\n\nRevise the current draft to address this feedback:\n", state.ReviewFeedback)
		if state.DraftReport != "" {
			fmt.Fprintf(&task, "\n## Current draft\n%s\n", state.DraftReport)
		}
	}

	report, err := deps.Client.Chat(ctx, llm.Messages(writerSystemPrompt, task.String()))
	if err != nil {
		report = fmt.Sprintf("# Report generation failed\n\nError: %v", err)
	}

	state.DraftReport = report
	state.WriteIterations++
	state.ReviewFeedback = ""
	return nil
}
