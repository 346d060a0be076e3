package deepgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resintel/internal/llm"
)

// maxToolIterations bounds the researcher's ReAct loop, mirroring the
// reference agent's max_iterations guard against runaway tool calls.
const maxToolIterations = 10

// reactDecision is the structured shape every ReAct step decodes into.
// The llm.Client has no native function-calling, so tool selection is
// expressed as one more structured-output call using the same json_schema
// method as every other decision in this package, rather than adding a
// separate tool-binding path to internal/llm for this one caller.
type reactDecision struct {
	Action       string `json:"action"` // "tool" | "final"
	ToolName     string `json:"tool_name,omitempty"`
	ToolArgsJSON string `json:"tool_args_json,omitempty"`
	Content      string `json:"content,omitempty"`
}

var reactDecisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"action":         {Type: genai.TypeString, Enum: []string{"tool", "final"}},
		"tool_name":      {Type: genai.TypeString},
		"tool_args_json": {Type: genai.TypeString},
		"content":        {Type: genai.TypeString},
	},
	Required: []string{"action"},
}

// runReAct drives one bounded think-act loop: at each step the model either
// calls a tool or produces a final answer. It never returns a hard error on
// loop exhaustion, mirroring extract_final_response's permissive fallback:
// the researcher still gets whatever partial answer is available.
func runReAct(ctx context.Context, client llm.Client, tools []Tool, systemPrompt, task string) (string, error) {
	toolsByName := make(map[string]Tool, len(tools))
	var toolDocs strings.Builder
	for _, t := range tools {
		toolsByName[t.Name()] = t
		fmt.Fprintf(&toolDocs, "- %s\n", t.Description())
	}

	fullSystem := systemPrompt
	if toolDocs.Len() > 0 {
		fullSystem += "\n\nAvailable tools:\n" + toolDocs.String()
	}

	var transcript strings.Builder
	transcript.WriteString(task)

	var lastContent string
	for i := 0; i < maxToolIterations; i++ {
		raw, err := client.ChatStructured(ctx, llm.Messages(fullSystem, transcript.String()), reactDecisionSchema)
		if err != nil {
			if lastContent != "" {
				return lastContent, nil
			}
			return "", fmt.Errorf("deepgraph: react decision failed: %w", err)
		}

		var decision reactDecision
		if err := json.Unmarshal([]byte(raw), &decision); err != nil {
			if lastContent != "" {
				return lastContent, nil
			}
			return strings.TrimSpace(raw), nil
		}

		if decision.Action != "tool" || decision.ToolName == "" {
			if decision.Content != "" {
				return decision.Content, nil
			}
			if lastContent != "" {
				return lastContent, nil
			}
			return "no answer produced.", nil
		}

		tool, ok := toolsByName[decision.ToolName]
		if !ok {
			transcript.WriteString(fmt.Sprintf("\n\n[tool error] unknown tool %q\n", decision.ToolName))
			continue
		}

		args := decodeToolArgs(decision.ToolArgsJSON)
		result, err := tool.Execute(ctx, args)
		if err != nil {
			result = fmt.Sprintf("tool %s failed: %v", decision.ToolName, err)
		}
		lastContent = result
		fmt.Fprintf(&transcript, "\n\n[tool call] %s(%s)\n[tool result]\n%s\n", decision.ToolName, decision.ToolArgsJSON, result)
	}

	if lastContent != "" {
		return lastContent, nil
	}
	return "reached the tool iteration limit without a final answer.", nil
}

func decodeToolArgs(argsJSON string) map[string]any {
	if argsJSON == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil
	}
	return args
}
