// Package analysis runs bounded-concurrency structured LLM analysis over a
// batch of items (papers or news), isolating one item's failure from the
// rest of the batch and preserving the batch's input order in its output.
package analysis

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"resintel/internal/errs"
	"resintel/internal/llm"
	"resintel/internal/logger"
	"resintel/internal/model"
)

// DefaultMaxConcurrent is the fallback shared concurrency cap when none is
// configured.
const DefaultMaxConcurrent = 5

var (
	globalOnce sync.Once
	globalSem  *semaphore.Weighted
)

// GlobalSemaphore returns the process-wide semaphore shared across paper
// and news analysis batches, creating it with maxConcurrent slots on first
// use. Sharing one semaphore across both item kinds (rather than one per
// kind) means a paper batch and a news batch run in the same run never
// together exceed the configured LLM concurrency budget.
func GlobalSemaphore(maxConcurrent int) *semaphore.Weighted {
	globalOnce.Do(func() {
		if maxConcurrent <= 0 {
			maxConcurrent = DefaultMaxConcurrent
		}
		globalSem = semaphore.NewWeighted(int64(maxConcurrent))
	})
	return globalSem
}

// ResetGlobalSemaphore clears the process-wide semaphore singleton. Test-only.
func ResetGlobalSemaphore() {
	globalOnce = sync.Once{}
	globalSem = nil
}

// Config describes how to analyze one kind of item (Paper or NewsItem)
// with the generic Batch runner below. It plays the role the reference
// implementation's BaseLightAnalyzer abstract methods play, expressed as
// function fields since Go has no abstract classes.
type Config[TIn any, TOut any] struct {
	// SystemPrompt is the fully-formatted system message (language already
	// substituted in).
	SystemPrompt string
	// BuildUserContent renders the user-turn prompt for one item.
	BuildUserContent func(item TIn) string
	// Schema constrains the structured JSON response.
	Schema *genai.Schema
	// NewOutput creates the pending-status output wrapper for one item.
	NewOutput func(item TIn) TOut
	// ApplyResult parses the raw JSON response and writes it, plus
	// success status and timestamp, onto output. A returned error is
	// treated as a parse failure.
	ApplyResult func(output *TOut, rawJSON string, at time.Time) error
	// ApplyFailure records a failed analysis attempt onto output.
	ApplyFailure func(output *TOut, err error)
	// ItemID returns a log-friendly id for one item.
	ItemID func(item TIn) string
}

// Batch analyzes every item concurrently, bounded by sem, tolerating
// per-item failure (recorded via cfg.ApplyFailure rather than aborting the
// batch), and returns results in the same order as items.
func Batch[TIn any, TOut any](ctx context.Context, client llm.Client, sem *semaphore.Weighted, items []TIn, cfg Config[TIn, TOut]) []TOut {
	if len(items) == 0 {
		return nil
	}

	results := make([]TOut, len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		i, item := i, item
		go func() {
			defer wg.Done()
			results[i] = analyzeOne(ctx, client, sem, item, cfg)
		}()
	}

	wg.Wait()
	return results
}

func analyzeOne[TIn any, TOut any](ctx context.Context, client llm.Client, sem *semaphore.Weighted, item TIn, cfg Config[TIn, TOut]) TOut {
	output := cfg.NewOutput(item)
	itemID := cfg.ItemID(item)

	if err := sem.Acquire(ctx, 1); err != nil {
		cfg.ApplyFailure(&output, err)
		return output
	}
	defer sem.Release(1)

	messages := llm.Messages(cfg.SystemPrompt, cfg.BuildUserContent(item))

	start := time.Now()
	raw, err := client.ChatStructured(ctx, messages, cfg.Schema)
	if err != nil {
		kind := errs.Classify(err)
		logger.Warn("item analysis failed", map[string]any{"item": itemID, "kind": string(kind), "error": err.Error()})
		cfg.ApplyFailure(&output, err)
		return output
	}

	if err := cfg.ApplyResult(&output, raw, time.Now().UTC()); err != nil {
		logger.Warn("item analysis result unparseable", map[string]any{"item": itemID, "error": err.Error()})
		cfg.ApplyFailure(&output, errs.New(errs.KindParse, err))
		return output
	}

	logger.Debug("item analyzed", map[string]any{"item": itemID, "elapsed_ms": time.Since(start).Milliseconds()})
	return output
}

// Stats summarizes a batch's outcome.
type Stats struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// PaperStats computes Stats over an analyzed-paper batch.
func PaperStats(items []model.AnalyzedPaper) Stats {
	return computeStats(len(items), func(i int) bool { return items[i].AnalysisStatus == model.AnalysisSuccess })
}

// NewsStats computes Stats over an analyzed-news batch.
func NewsStats(items []model.AnalyzedNews) Stats {
	return computeStats(len(items), func(i int) bool { return items[i].AnalysisStatus == model.AnalysisSuccess })
}

func computeStats(total int, isSuccess func(i int) bool) Stats {
	if total == 0 {
		return Stats{SuccessRate: 1.0}
	}
	success := 0
	for i := 0; i < total; i++ {
		if isSuccess(i) {
			success++
		}
	}
	return Stats{
		Total:       total,
		Success:     success,
		Failed:      total - success,
		SuccessRate: float64(success) / float64(total),
	}
}

// SplitPending partitions items into those whose id is not yet in
// seenIDs (pending analysis) and those already recorded (skip, since a
// prior run already produced a successful analysis for them). Callers
// merge the skipped items' previously persisted analysis back in; this
// package only decides which items still need an LLM call, so a resumed
// run never re-pays for an item it already analyzed successfully.
func SplitPending[TIn any](items []TIn, seenIDs map[string]struct{}, idOf func(TIn) string) (pending, skipped []TIn) {
	pending = make([]TIn, 0, len(items))
	skipped = make([]TIn, 0)
	for _, item := range items {
		if _, ok := seenIDs[idOf(item)]; ok {
			skipped = append(skipped, item)
			continue
		}
		pending = append(pending, item)
	}
	return pending, skipped
}
