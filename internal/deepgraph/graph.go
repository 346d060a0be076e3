package deepgraph

import (
	"context"
	"fmt"
	"time"

	"resintel/internal/llm"
	"resintel/internal/model"
)

// Node identifies one stage of the workflow.
type Node string

const (
	NodeSupervisor Node = "supervisor"
	NodeResearcher Node = "researcher"
	NodeWriter     Node = "writer"
	NodeReviewer   Node = "reviewer"
)

// Deps bundles the collaborators every node needs. Tools are resolved once
// per run by the caller (cmd/deepanalysis) and may be nil when a capability
// is unavailable, e.g. PaperReaderTool when the paper's fulltext failed to
// parse.
type Deps struct {
	Client llm.Client

	SearchTool      Tool
	ArxivLoaderTool Tool
	PaperReaderTool Tool

	Provider string
	Model    string
}

// Run drives the supervisor -> researcher/writer -> reviewer transition
// loop to completion and returns the resulting DeepAnalysisResult. There is
// no declarative graph to compile: the loop below is the graph, expressed
// as a plain Go switch over Node, matching the design note that the
// workflow be modeled as a pure State -> (Node, State) transition function.
func Run(ctx context.Context, state *State, deps Deps) (*model.DeepAnalysisResult, error) {
	start := time.Now()

	current := NodeSupervisor
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch current {
		case NodeSupervisor:
			if err := supervisorNode(ctx, state, deps); err != nil {
				return nil, fmt.Errorf("deepgraph: supervisor: %w", err)
			}
			switch state.NextAction {
			case ActionResearch:
				current = NodeResearcher
			default:
				current = NodeWriter
			}

		case NodeResearcher:
			if err := researcherNode(ctx, state, deps); err != nil {
				return nil, fmt.Errorf("deepgraph: researcher: %w", err)
			}
			current = NodeSupervisor

		case NodeWriter:
			if err := writerNode(ctx, state, deps); err != nil {
				return nil, fmt.Errorf("deepgraph: writer: %w", err)
			}
			current = NodeReviewer

		case NodeReviewer:
			approved, err := reviewerNode(ctx, state, deps)
			if err != nil {
				return nil, fmt.Errorf("deepgraph: reviewer: %w", err)
			}
			if approved || state.WriteIterations >= state.MaxWriteIterations {
				state.FinalReport = state.DraftReport
				return buildResult(state, time.Since(start), deps), nil
			}
			current = NodeWriter

		default:
			return nil, fmt.Errorf("deepgraph: unknown node %q", current)
		}
	}
}

func buildResult(state *State, duration time.Duration, deps Deps) *model.DeepAnalysisResult {
	return &model.DeepAnalysisResult{
		ReportMarkdown:      state.FinalReport,
		ResearchIterations:  state.ResearchIterations,
		WriteIterations:     state.WriteIterations,
		FulltextParseStatus: state.FulltextParseStatus,
		SectionCount:        state.TotalSections,
		Duration:            duration,
		Provider:            deps.Provider,
		Model:               deps.Model,
	}
}
