package store

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileList is the cross-directory index of available per-date files,
// written to file-list.json at the data root.
type FileList struct {
	Papers      []string  `json:"papers"`
	News        []string  `json:"news"`
	Reports     []string  `json:"reports"`
	LastUpdated time.Time `json:"last_updated"`
}

func (s *Store) fileListPath() string { return filepath.Join(s.dataDir, "file-list.json") }

// WriteFileList enumerates *.json under papers/, news/, and reports/,
// sorts each list in reverse lexicographic order (YYYY-MM-DD naming sorts
// newest-first), and writes the combined index atomically.
func (s *Store) WriteFileList() error {
	list := FileList{
		Papers:      sortedJSONFilenames(filepath.Join(s.dataDir, "papers")),
		News:        sortedJSONFilenames(filepath.Join(s.dataDir, "news")),
		Reports:     sortedJSONFilenames(filepath.Join(s.dataDir, "reports")),
		LastUpdated: time.Now().UTC(),
	}
	return writeJSONAtomic(s.fileListPath(), list)
}

// sortedJSONFilenames lists the base filenames of every *.json file
// directly under dir, sorted in reverse lexicographic order. A missing
// directory yields an empty list rather than an error.
func sortedJSONFilenames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}
