package news

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"resintel/internal/logger"
)

// DefaultSourcesPath is the default location of the news sources config file.
const DefaultSourcesPath = "config/news_sources.yaml"

// sourcesFile is the on-disk shape of the sources config file: a single
// top-level "sources" list.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the news source list from a YAML config file. An empty
// path falls back to DefaultSourcesPath. A missing or empty file yields no
// sources (not an error); a malformed file is an error, since an
// unparseable source list is a configuration mistake worth surfacing
// rather than silently ingesting nothing.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		path = DefaultSourcesPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("news sources config not found, no sources loaded", map[string]any{"path": path})
			return nil, nil
		}
		return nil, fmt.Errorf("reading news sources config: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parsing news sources config: %w", err)
	}

	enabled, rss, crawler := 0, 0, 0
	for _, s := range file.Sources {
		if !s.Enabled {
			continue
		}
		enabled++
		if s.FetchType == FetchRSS {
			rss++
		} else if s.FetchType == FetchCrawler {
			crawler++
		}
	}
	logger.Info("loaded news sources", map[string]any{
		"total": len(file.Sources), "enabled": enabled, "rss": rss, "crawler": crawler,
	})

	return file.Sources, nil
}

// FetchType distinguishes which family fetches a given source.
type FetchType string

const (
	FetchRSS     FetchType = "rss"
	FetchCrawler FetchType = "crawler"
)

// Source describes one configured news source, covering both the
// feed-backed family (RSSURL set) and the crawler family (BlogURL +
// Extractor set).
type Source struct {
	Name      string    `mapstructure:"name" yaml:"name"`
	FetchType FetchType `mapstructure:"fetch_type" yaml:"fetch_type"`
	Enabled   bool      `mapstructure:"enabled" yaml:"enabled"`
	RSSURL    string    `mapstructure:"rss_url" yaml:"rss_url"`
	BlogURL   string    `mapstructure:"blog_url" yaml:"blog_url"`
	Extractor string    `mapstructure:"extractor" yaml:"extractor"`
	Category  string    `mapstructure:"category" yaml:"category"`
	Language  string    `mapstructure:"language" yaml:"language"`
	Weight    float64   `mapstructure:"weight" yaml:"weight"`
	Company   string    `mapstructure:"company" yaml:"company"`
	JSRender  bool      `mapstructure:"js_render" yaml:"js_render"`
}
