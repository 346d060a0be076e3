// Package deepgraph implements the deep-analysis multi-agent workflow: a
// Supervisor plans research, a Researcher runs a ReAct tool loop, a Writer
// drafts a report, and a Reviewer either approves it or sends it back for
// revision. There is no graph-execution library in this stack, so the
// workflow is modeled directly: State is a plain value threaded through a
// small set of node functions, and Run drives a pure Node -> (Node, error)
// transition loop instead of compiling a declarative graph.
package deepgraph

import (
	"time"

	"github.com/google/uuid"
)

// NextAction is the Supervisor's routing decision.
type NextAction string

const (
	ActionResearch NextAction = "research"
	ActionWrite    NextAction = "write"
	ActionEnd      NextAction = "end"
)

// MessageRole tags one entry of the Supervisor's append-only message log.
type MessageRole string

const (
	MsgSystem    MessageRole = "system"
	MsgUser      MessageRole = "user"
	MsgAssistant MessageRole = "assistant"
	MsgTool      MessageRole = "tool"
)

// Message is one tagged entry in the Supervisor's message log.
type Message struct {
	Role    MessageRole
	Content string
}

// State is the single shared value every node reads from and writes to.
// A State is constructed once per deep-analysis run and passed explicitly
// through Run and every node function; nothing here is ever stored in a
// package-level variable, so concurrent deep-analysis runs over different
// papers never share state.
type State struct {
	RunID string

	// Input fields, fixed for the run.
	PaperID       string
	PaperTitle    string
	PaperAbstract string
	PaperHTMLURL  string
	Requirements  string

	// Preprocessed fulltext fields (populated before Run is called).
	FullContent         string
	TablesContent       string
	FiguresContent      string
	SectionsAvailable   bool
	TotalSections       int
	ReferencesCount     int
	FulltextParseStatus string

	// Supervisor state.
	SupervisorMessages   []Message
	CurrentResearchTopic string

	// Research/write state.
	ResearchNotes  []string
	DraftReport    string
	ReviewFeedback string
	FinalReport    string

	// Flow control.
	ResearchIterations int
	MaxIterations      int
	WriteIterations    int
	MaxWriteIterations int
	NextAction         NextAction
	AnalysisStartedAt  time.Time
}

// NewState builds the initial state for one deep-analysis run.
func NewState(paperID, title, abstract, htmlURL, requirements string, maxIterations, maxWriteIterations int) *State {
	return &State{
		RunID:               uuid.NewString(),
		PaperID:             paperID,
		PaperTitle:          title,
		PaperAbstract:       abstract,
		PaperHTMLURL:        htmlURL,
		Requirements:        requirements,
		FulltextParseStatus: "pending",
		MaxIterations:       maxIterations,
		MaxWriteIterations:  maxWriteIterations,
		AnalysisStartedAt:   time.Now().UTC(),
	}
}
