// Package idtracker maintains durable sets of previously-seen item ids so
// the daily pipeline can skip content it has already fetched or analyzed.
// Two independent trackers exist — one keyed to the fetched-ids file, one
// keyed to the analyzed-ids file — rather than a single shared instance,
// since fetching and analysis progress independently and a paper can be
// fetched long before it is successfully analyzed.
package idtracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RetentionDays is the default number of days an id record is kept before cleanup removes it.
const RetentionDays = 30

const timeLayout = time.RFC3339

type fileData struct {
	Papers map[string]string `json:"papers"`
	News   map[string]string `json:"news"`
}

// Tracker is a durable, file-backed set of seen ids for papers and news,
// each stamped with the ISO timestamp of first sight.
type Tracker struct {
	mu            sync.Mutex
	path          string
	retentionDays int
	data          fileData
	loaded        bool
}

// New creates a tracker backed by the JSON file at path. The file is not
// read until the first operation that needs it.
func New(path string, retentionDays int) *Tracker {
	if retentionDays <= 0 {
		retentionDays = RetentionDays
	}
	return &Tracker{
		path:          path,
		retentionDays: retentionDays,
		data:          fileData{Papers: map[string]string{}, News: map[string]string{}},
	}
}

// Load reads the backing file if it exists. Safe to call repeatedly; only
// the first call does any I/O. A malformed or unreadable file is treated as
// empty rather than returned as an error, since a tracker always has a
// usable (if empty) starting state.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

func (t *Tracker) load() error {
	if t.loaded {
		return nil
	}
	t.loaded = true

	b, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil
	}

	var fd fileData
	if err := json.Unmarshal(b, &fd); err != nil {
		return nil
	}
	if fd.Papers == nil {
		fd.Papers = map[string]string{}
	}
	if fd.News == nil {
		fd.News = map[string]string{}
	}
	t.data = fd
	return nil
}

// Save persists the tracker state atomically via a temp-file-then-rename.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save()
}

func (t *Tracker) save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating tracker directory: %w", err)
	}

	b, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tracker data: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing tracker temp file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("renaming tracker temp file: %w", err)
	}
	return nil
}

// Cleanup removes records older than the tracker's retention window and
// persists the result if anything was removed. Returns the number of
// records removed.
func (t *Tracker) Cleanup() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -t.retentionDays).Format(timeLayout)
	removed := 0

	for _, category := range []map[string]string{t.data.Papers, t.data.News} {
		for id, ts := range category {
			if ts < cutoff {
				delete(category, id)
				removed++
			}
		}
	}

	if removed > 0 {
		if err := t.save(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// GetPaperIDs returns the current set of tracked paper ids.
func (t *Tracker) GetPaperIDs() (map[string]struct{}, error) {
	return t.getIDs(func() map[string]string { return t.data.Papers })
}

// GetNewsIDs returns the current set of tracked news ids.
func (t *Tracker) GetNewsIDs() (map[string]struct{}, error) {
	return t.getIDs(func() map[string]string { return t.data.News })
}

func (t *Tracker) getIDs(pick func() map[string]string) (map[string]struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(pick()))
	for id := range pick() {
		set[id] = struct{}{}
	}
	return set, nil
}

// MarkPapers records the given paper ids as seen now, if not already
// present, and persists the result.
func (t *Tracker) MarkPapers(ids []string) error {
	return t.mark(ids, func() map[string]string { return t.data.Papers })
}

// MarkNews records the given news ids as seen now, if not already present,
// and persists the result.
func (t *Tracker) MarkNews(ids []string) error {
	return t.mark(ids, func() map[string]string { return t.data.News })
}

func (t *Tracker) mark(ids []string, pick func() map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(timeLayout)
	category := pick()
	for _, id := range ids {
		if _, exists := category[id]; !exists {
			category[id] = now
		}
	}
	return t.save()
}

var (
	mu              sync.Mutex
	fetchedTracker  *Tracker
	analyzedTracker *Tracker
)

// FetchedPath is the default location of the fetched-ids tracker file.
const FetchedPath = "data/fetched_ids.json"

// AnalyzedPath is the default location of the analyzed-ids tracker file.
const AnalyzedPath = "data/analyzed_ids.json"

// Fetched returns the process-wide tracker for fetched-but-not-necessarily-analyzed
// ids, creating it on first use. Passing a non-empty path overrides the
// default only on first call.
func Fetched(path string) *Tracker {
	mu.Lock()
	defer mu.Unlock()
	if fetchedTracker == nil {
		if path == "" {
			path = FetchedPath
		}
		fetchedTracker = New(path, RetentionDays)
	}
	return fetchedTracker
}

// Analyzed returns the process-wide tracker for successfully-analyzed ids,
// creating it on first use. This is a DISTINCT singleton from Fetched: the
// two must never alias the same underlying Tracker, since an item can be
// fetched without yet being analyzed.
func Analyzed(path string) *Tracker {
	mu.Lock()
	defer mu.Unlock()
	if analyzedTracker == nil {
		if path == "" {
			path = AnalyzedPath
		}
		analyzedTracker = New(path, RetentionDays)
	}
	return analyzedTracker
}

// ResetSingletons clears both process-wide trackers. Test-only.
func ResetSingletons() {
	mu.Lock()
	defer mu.Unlock()
	fetchedTracker = nil
	analyzedTracker = nil
}
