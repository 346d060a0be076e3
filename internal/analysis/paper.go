package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"resintel/internal/errs"
	"resintel/internal/llm"
	"resintel/internal/model"
)

const paperSystemPromptTemplate = `You analyze AI/ML research papers for a daily research digest read in %s.
Write every field in %s. Be precise and avoid hype; if the abstract is
ambiguous, say so instead of guessing. Do not include any text outside the
requested JSON fields.`

const paperUserPromptTemplate = `Title: %s

Abstract:
%s

Produce:
- overview: one sentence, at most 50 words, what the paper is about.
- motivation: 100-150 words on the problem and why it matters.
- method: 100-150 words on the core approach.
- result: 100-150 words on the key findings.
- conclusion: 100-150 words on the implication/significance.
- tags: 3-5 short topical tags (e.g. "retrieval", "alignment", "efficiency").`

var paperAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overview":   {Type: genai.TypeString},
		"motivation": {Type: genai.TypeString},
		"method":     {Type: genai.TypeString},
		"result":     {Type: genai.TypeString},
		"conclusion": {Type: genai.TypeString},
		"tags": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"overview", "motivation", "method", "result", "conclusion", "tags"},
}

// PaperConfig builds the Config for analyzing papers, with system prompt
// language already substituted in.
func PaperConfig(languageDisplay string) Config[model.Paper, model.AnalyzedPaper] {
	system := fmt.Sprintf(paperSystemPromptTemplate, languageDisplay, languageDisplay)

	return Config[model.Paper, model.AnalyzedPaper]{
		SystemPrompt: system,
		BuildUserContent: func(p model.Paper) string {
			return fmt.Sprintf(paperUserPromptTemplate, p.Title, p.Abstract)
		},
		Schema: paperAnalysisSchema,
		NewOutput: func(p model.Paper) model.AnalyzedPaper {
			return model.AnalyzedPaper{Paper: p, AnalysisStatus: model.AnalysisPending}
		},
		ApplyResult: func(out *model.AnalyzedPaper, raw string, at time.Time) error {
			var parsed model.PaperLightAnalysis
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				return err
			}
			out.LightAnalysis = &parsed
			out.AnalysisStatus = model.AnalysisSuccess
			out.AnalyzedAt = &at
			out.AnalysisError = ""
			return nil
		},
		ApplyFailure: func(out *model.AnalyzedPaper, err error) {
			out.AnalysisStatus = model.AnalysisFailed
			out.AnalysisError = errs.Describe(err)
		},
		ItemID: func(p model.Paper) string { return p.ID },
	}
}

// AnalyzePapers runs light analysis over papers concurrently, bounded by sem.
func AnalyzePapers(ctx context.Context, client llm.Client, sem *semaphore.Weighted, papers []model.Paper, languageDisplay string) []model.AnalyzedPaper {
	return Batch(ctx, client, sem, papers, PaperConfig(languageDisplay))
}
