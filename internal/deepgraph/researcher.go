package deepgraph

import (
	"context"
	"fmt"

	"resintel/internal/llm"
)

const researcherSystemPrompt = `You are the Researcher agent in a multi-agent paper analysis workflow. ` +
	`Given a research topic assigned by the Supervisor, use the available tools to gather relevant ` +
	`information, then summarize your findings as a concise research note. Prefer concrete facts, ` +
	`figures, and comparisons over generic statements.`

// researcherNode runs one research turn: it builds a task prompt from the
// assigned topic and paper context, drives a bounded ReAct loop over the
// available tools, and appends the (possibly compressed) result to
// state.ResearchNotes. Ported from the reference researcher_node, which
// is the only fully implemented node in the original source.
func researcherNode(ctx context.Context, state *State, deps Deps) error {
	topic := state.CurrentResearchTopic
	if topic == "" {
		state.ResearchNotes = append(state.ResearchNotes, "no research topic was assigned.")
		state.ResearchIterations++
		return nil
	}

	abstract := state.PaperAbstract
	if len(abstract) > 500 {
		abstract = abstract[:500]
	}

	task := fmt.Sprintf("Research the following topic:\n\n**Topic**: %s\n\n**Paper context**:\n- Paper ID: %s\n- Title: %s\n- Abstract: %s...\n",
		topic, state.PaperID, state.PaperTitle, abstract)

	var tools []Tool
	for _, t := range []Tool{deps.SearchTool, deps.ArxivLoaderTool} {
		if t != nil {
			tools = append(tools, t)
		}
	}
	if state.SectionsAvailable {
		task += fmt.Sprintf("\nNote: the paper's full text is loaded (%d sections). Use the paper_reader tool to query specific sections or search keywords.\n", state.TotalSections)
		if deps.PaperReaderTool != nil {
			tools = append(tools, deps.PaperReaderTool)
		}
	}
	task += "\nUse the tools to gather information, then produce a research note."

	finalResponse, err := runReAct(ctx, deps.Client, tools, researcherSystemPrompt, task)
	if err != nil {
		finalResponse = fmt.Sprintf("Topic: %s\n\nresearch failed: %v", topic, err)
	}
	if finalResponse == "" {
		finalResponse = fmt.Sprintf("Topic: %s\n\nno useful information was found.", topic)
	}

	if len(finalResponse) > 1500 {
		compressed, err := deps.Client.Chat(ctx, llm.Messages("", compressPrompt(finalResponse)))
		if err == nil && compressed != "" {
			finalResponse = compressed
		}
	}

	state.ResearchNotes = append(state.ResearchNotes, finalResponse)
	state.ResearchIterations++
	state.CurrentResearchTopic = ""
	return nil
}

func compressPrompt(note string) string {
	return "Compress the following research note to 500 characters or fewer, keeping the key information:\n\n" + note
}
