package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resintel/internal/model"
)

func TestMergePapersKeepsSuccessRecordFullyUnchanged(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	original := model.Paper{ID: "1", Title: "Original Title", Published: now}
	if _, err := s.MergePapers("2026-07-29", []model.Paper{original}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	analyzed := s.LoadPapers("2026-07-29")
	analyzed[0].AnalysisStatus = model.AnalysisSuccess
	analyzed[0].LightAnalysis = &model.PaperLightAnalysis{Overview: "an overview"}
	if err := s.SaveAnalyzedPapers("2026-07-29", analyzed); err != nil {
		t.Fatalf("save analyzed: %v", err)
	}

	reFetched := model.Paper{ID: "1", Title: "Re-fetched Title Changed Upstream", Published: now}
	merged, err := s.MergePapers("2026-07-29", []model.Paper{reFetched})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	if merged[0].Title != "Original Title" {
		t.Fatalf("expected success record kept unchanged, got title %q", merged[0].Title)
	}
	if merged[0].LightAnalysis == nil || merged[0].LightAnalysis.Overview != "an overview" {
		t.Fatalf("expected analysis fields preserved, got %+v", merged[0].LightAnalysis)
	}
}

func TestMergePapersOverlaysPendingRecord(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	if _, err := s.MergePapers("2026-07-29", []model.Paper{{ID: "1", Title: "v1", Published: now}}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	merged, err := s.MergePapers("2026-07-29", []model.Paper{{ID: "1", Title: "v2", Published: now}})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if merged[0].Title != "v2" || merged[0].AnalysisStatus != model.AnalysisPending {
		t.Fatalf("expected pending record overlaid with incoming fields, got %+v", merged[0])
	}
}

func TestMergePapersInsertsNewAsPending(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now().UTC()

	merged, err := s.MergePapers("2026-07-29", []model.Paper{{ID: "1", Title: "new", Published: now}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 1 || merged[0].AnalysisStatus != model.AnalysisPending {
		t.Fatalf("expected one new pending record, got %+v", merged)
	}
}

func TestMergePapersSortsByPublishedDescendingWithMissingLast(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now().UTC()

	merged, err := s.MergePapers("2026-07-29", []model.Paper{
		{ID: "no-date"},
		{ID: "newer", Published: now},
		{ID: "older", Published: now.Add(-24 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	ids := []string{merged[0].ID, merged[1].ID, merged[2].ID}
	if ids[0] != "newer" || ids[1] != "older" || ids[2] != "no-date" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestLoadPapersToleratesMissingFile(t *testing.T) {
	s := New(t.TempDir())
	items := s.LoadPapers("2026-07-29")
	if items != nil {
		t.Fatalf("expected nil for a missing file, got %+v", items)
	}
}

func TestLoadPapersToleratesMalformedFile(t *testing.T) {
	dir := t.TempDir()
	papersDir := filepath.Join(dir, "papers")
	if err := os.MkdirAll(papersDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(papersDir, "2026-07-29.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(dir)
	items := s.LoadPapers("2026-07-29")
	if len(items) != 0 {
		t.Fatalf("expected empty slice for malformed file, got %+v", items)
	}
}

func TestLoadPapersAcceptsLegacyLineDelimitedForm(t *testing.T) {
	dir := t.TempDir()
	papersDir := filepath.Join(dir, "papers")
	if err := os.MkdirAll(papersDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	jsonl := `{"id":"1","title":"a","analysis_status":"pending"}` + "\n" + `{"id":"2","title":"b","analysis_status":"pending"}` + "\n"
	if err := os.WriteFile(filepath.Join(papersDir, "2026-07-29.jsonl"), []byte(jsonl), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(dir)
	items := s.LoadPapers("2026-07-29")
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "2" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestSaveReportAndLoadReportRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	report := &model.DailyReport{Date: "2026-07-29", Summary: "a summary", GeneratedAt: time.Now().UTC()}

	if err := s.SaveReport("2026-07-29", report); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok := s.LoadReport("2026-07-29")
	if !ok {
		t.Fatalf("expected report to load")
	}
	if loaded.Summary != "a summary" {
		t.Fatalf("unexpected summary: %q", loaded.Summary)
	}
}

func TestLoadReportMissingReturnsFalse(t *testing.T) {
	s := New(t.TempDir())
	_, ok := s.LoadReport("2026-07-29")
	if ok {
		t.Fatalf("expected missing report to report false")
	}
}

func TestWriteFileListSortsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	papersDir := filepath.Join(dir, "papers")
	if err := os.MkdirAll(papersDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"2026-07-27.json", "2026-07-29.json", "2026-07-28.json"} {
		if err := os.WriteFile(filepath.Join(papersDir, name), []byte("[]"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	s := New(dir)
	if err := s.WriteFileList(); err != nil {
		t.Fatalf("write file list: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "file-list.json"))
	if err != nil {
		t.Fatalf("read file list: %v", err)
	}

	var list FileList
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"2026-07-29.json", "2026-07-28.json", "2026-07-27.json"}
	for i, name := range want {
		if list.Papers[i] != name {
			t.Fatalf("unexpected order at %d: got %v, want %v", i, list.Papers, want)
		}
	}
	if len(list.News) != 0 || len(list.Reports) != 0 {
		t.Fatalf("expected empty news/reports lists, got %+v", list)
	}
}
