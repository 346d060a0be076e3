// Package store persists papers, news, and reports as per-date JSON files
// under the data directory, plus the cross-directory file-list index.
// Reads are tolerant of missing or malformed files; writes are atomic and
// merge-on-write so a resumed run never clobbers a prior success.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resintel/internal/logger"
	"resintel/internal/model"
)

// Store is a directory-rooted reader/writer for the pipeline's per-date
// JSON files and file-list index.
type Store struct {
	dataDir string
}

// New builds a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) papersPath(date string) string {
	return filepath.Join(s.dataDir, "papers", date+".json")
}
func (s *Store) newsPath(date string) string { return filepath.Join(s.dataDir, "news", date+".json") }
func (s *Store) reportsPath(date string) string {
	return filepath.Join(s.dataDir, "reports", date+".json")
}

// LoadPapers reads papers/{date}.json, tolerating a missing or malformed
// file by returning an empty slice with a logged warning.
func (s *Store) LoadPapers(date string) []model.AnalyzedPaper {
	var items []model.AnalyzedPaper
	loadJSON(s.papersPath(date), &items)
	return items
}

// LoadNews reads news/{date}.json, tolerating a missing or malformed file
// by returning an empty slice with a logged warning.
func (s *Store) LoadNews(date string) []model.AnalyzedNews {
	var items []model.AnalyzedNews
	loadJSON(s.newsPath(date), &items)
	return items
}

// LoadReport reads reports/{date}.json, returning (nil, false) if it is
// missing or malformed.
func (s *Store) LoadReport(date string) (*model.DailyReport, bool) {
	b, ok := readResolvedFile(s.reportsPath(date))
	if !ok {
		return nil, false
	}
	var report model.DailyReport
	if err := json.Unmarshal(b, &report); err != nil {
		logger.Warn("report file is malformed", map[string]any{"path": s.reportsPath(date), "error": err.Error()})
		return nil, false
	}
	return &report, true
}

// SaveReport writes the DailyReport to reports/{date}.json atomically.
func (s *Store) SaveReport(date string, report *model.DailyReport) error {
	return writeJSONAtomic(s.reportsPath(date), report)
}

// MergePapers loads the existing papers/{date}.json, merges incoming on
// top by id per mergePapersByIDKeepSuccess's policy, re-sorts by published descending, and
// writes the result atomically. Returns the merged slice.
func (s *Store) MergePapers(date string, incoming []model.Paper) ([]model.AnalyzedPaper, error) {
	existing := s.LoadPapers(date)
	merged := mergePapersByIDKeepSuccess(existing, incoming)
	if err := writeJSONAtomic(s.papersPath(date), merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// MergeNews loads the existing news/{date}.json, merges incoming on top by
// id per mergeNewsByIDKeepSuccess's policy, re-sorts by published descending, and writes
// the result atomically. Returns the merged slice.
func (s *Store) MergeNews(date string, incoming []model.NewsItem) ([]model.AnalyzedNews, error) {
	existing := s.LoadNews(date)
	merged := mergeNewsByIDKeepSuccess(existing, incoming)
	if err := writeJSONAtomic(s.newsPath(date), merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// SaveAnalyzedPapers writes the full batch of analyzed papers for date,
// re-sorted by published descending, atomically.
func (s *Store) SaveAnalyzedPapers(date string, items []model.AnalyzedPaper) error {
	sortPapersByPublished(items)
	return writeJSONAtomic(s.papersPath(date), items)
}

// SaveAnalyzedNews writes the full batch of analyzed news for date,
// re-sorted by published descending, atomically.
func (s *Store) SaveAnalyzedNews(date string, items []model.AnalyzedNews) error {
	sortNewsByPublished(items)
	return writeJSONAtomic(s.newsPath(date), items)
}

// mergePapersByIDKeepSuccess merges incoming base records onto the
// existing day's file: an existing success-status record is kept fully
// unchanged; otherwise the incoming base fields overlay the existing
// record's non-analysis fields (or a fresh pending record is inserted).
func mergePapersByIDKeepSuccess(existing []model.AnalyzedPaper, incoming []model.Paper) []model.AnalyzedPaper {
	byID := make(map[string]model.AnalyzedPaper, len(existing))
	order := make([]string, 0, len(existing))
	for _, e := range existing {
		if _, seen := byID[e.ID]; !seen {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	for _, p := range incoming {
		if prior, ok := byID[p.ID]; ok {
			if prior.AnalysisStatus == model.AnalysisSuccess {
				continue
			}
			prior.Paper = p
			byID[p.ID] = prior
			continue
		}
		order = append(order, p.ID)
		byID[p.ID] = model.AnalyzedPaper{Paper: p, AnalysisStatus: model.AnalysisPending}
	}

	merged := make([]model.AnalyzedPaper, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sortPapersByPublished(merged)
	return merged
}

// mergeNewsByIDKeepSuccess is mergePapersByIDKeepSuccess's twin for news items.
func mergeNewsByIDKeepSuccess(existing []model.AnalyzedNews, incoming []model.NewsItem) []model.AnalyzedNews {
	byID := make(map[string]model.AnalyzedNews, len(existing))
	order := make([]string, 0, len(existing))
	for _, e := range existing {
		if _, seen := byID[e.ID]; !seen {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	for _, n := range incoming {
		if prior, ok := byID[n.ID]; ok {
			if prior.AnalysisStatus == model.AnalysisSuccess {
				continue
			}
			prior.NewsItem = n
			byID[n.ID] = prior
			continue
		}
		order = append(order, n.ID)
		byID[n.ID] = model.AnalyzedNews{NewsItem: n, AnalysisStatus: model.AnalysisPending}
	}

	merged := make([]model.AnalyzedNews, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sortNewsByPublished(merged)
	return merged
}

// sortPapersByPublished re-sorts in place by published descending, with a
// zero published time sorting last.
func sortPapersByPublished(items []model.AnalyzedPaper) {
	sort.SliceStable(items, func(i, j int) bool {
		return publishedKey(items[i].Published) > publishedKey(items[j].Published)
	})
}

func sortNewsByPublished(items []model.AnalyzedNews) {
	sort.SliceStable(items, func(i, j int) bool {
		return publishedKey(items[i].Published) > publishedKey(items[j].Published)
	})
}

func publishedKey(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// loadJSON reads path into v, tolerating a missing or malformed file by
// leaving v at its zero value and logging a warning. Accepts both a JSON
// array and a legacy line-delimited-JSON form (one array element per line).
func loadJSON(path string, v any) {
	b, ok := readResolvedFile(path)
	if !ok {
		return
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(b, v); err != nil {
			logger.Warn("data file is malformed, treating as empty", map[string]any{"path": path, "error": err.Error()})
		}
		return
	}

	if err := unmarshalJSONLines(trimmed, v); err != nil {
		logger.Warn("data file is malformed, treating as empty", map[string]any{"path": path, "error": err.Error()})
	}
}

// unmarshalJSONLines supports the legacy line-delimited form by rewrapping
// non-empty lines into a JSON array before decoding.
func unmarshalJSONLines(trimmed string, v any) error {
	lines := strings.Split(trimmed, "\n")
	var elements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		elements = append(elements, line)
	}
	return json.Unmarshal([]byte("["+strings.Join(elements, ",")+"]"), v)
}

// readResolvedFile reads path, falling back to a legacy ".jsonl" sibling
// when path itself does not exist, matching the reference's tolerant
// extension resolution.
func readResolvedFile(path string) ([]byte, bool) {
	b, err := os.ReadFile(path)
	if err == nil {
		return b, true
	}
	if !os.IsNotExist(err) {
		logger.Warn("failed to read data file", map[string]any{"path": path, "error": err.Error()})
		return nil, false
	}

	legacy := resolveLegacyPath(path)
	if legacy == path {
		return nil, false
	}
	b, err = os.ReadFile(legacy)
	if err != nil {
		return nil, false
	}
	return b, true
}

// resolveLegacyPath maps a ".json" path to its ".jsonl" sibling.
func resolveLegacyPath(path string) string {
	if strings.HasSuffix(path, ".json") {
		return strings.TrimSuffix(path, ".json") + ".jsonl"
	}
	return path
}

// writeJSONAtomic marshals v with indentation and writes it to path via a
// temp-file-then-rename, normalizing a legacy ".jsonl" target to ".json".
func writeJSONAtomic(path string, v any) error {
	if strings.HasSuffix(path, ".jsonl") {
		path = strings.TrimSuffix(path, ".jsonl") + ".json"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling data file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("writing data temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming data temp file: %w", err)
	}
	return nil
}
