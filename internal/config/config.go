// Package config loads and validates the pipeline's runtime configuration
// from a config file, environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration, mirroring the enumerated
// schema in the external-interfaces section of the specification.
type Config struct {
	LLM          LLM          `mapstructure:"llm"`
	Arxiv        Arxiv        `mapstructure:"arxiv"`
	Search       Search       `mapstructure:"search"`
	Analysis     Analysis     `mapstructure:"analysis"`
	Notification Notification `mapstructure:"notification"`
	News         News         `mapstructure:"news"`
	Advanced     Advanced     `mapstructure:"advanced"`
	DataDir      string       `mapstructure:"data_dir"`
	Logging      Logging      `mapstructure:"logging"`
}

// LLM holds LLM provider configuration. All fields are required.
type LLM struct {
	Provider string `mapstructure:"provider"` // e.g. "gemini"
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// Arxiv holds arXiv fetch configuration.
type Arxiv struct {
	Categories   []string `mapstructure:"categories"`
	MaxResults   int      `mapstructure:"max_results"`
	MaxPages     int      `mapstructure:"max_pages"`
	RequestDelay float64  `mapstructure:"request_delay"`
	Timeout      float64  `mapstructure:"timeout"`
}

// Search holds web-search provider configuration for the deep-analysis researcher.
type Search struct {
	API          string  `mapstructure:"api"` // "tavily" | "duckduckgo"
	TavilyAPIKey string  `mapstructure:"tavily_api_key"`
	MaxResults   int     `mapstructure:"max_results"`
	Timeout      float64 `mapstructure:"timeout"`
}

// Analysis holds light/deep analysis concurrency and iteration bounds.
type Analysis struct {
	MaxConcurrent         int `mapstructure:"max_concurrent"`
	Timeout               int `mapstructure:"timeout"`
	MaxResearchIterations int `mapstructure:"max_research_iterations"`
	MaxWriteIterations    int `mapstructure:"max_write_iterations"`
}

// Notification holds outbound notification configuration.
type Notification struct {
	FeishuWebhookURL string `mapstructure:"feishu_webhook_url"`
	SiteURL          string `mapstructure:"site_url"`
	Language         string `mapstructure:"language"` // "zh" | "en"
	MaxPapers        int    `mapstructure:"max_papers"`
	MaxNews          int    `mapstructure:"max_news"`
	Timeout          int    `mapstructure:"timeout"`
	MaxRetries       int    `mapstructure:"max_retries"`
}

// News holds news-ingestion configuration.
type News struct {
	Hours                int     `mapstructure:"hours"`
	RSSTimeout           float64 `mapstructure:"rss_timeout"`
	RSSMaxConcurrent     int     `mapstructure:"rss_max_concurrent"`
	CrawlerMaxConcurrent int     `mapstructure:"crawler_max_concurrent"`
	CrawlerTimeout       float64 `mapstructure:"crawler_timeout"`
	Headless             bool    `mapstructure:"headless"`
}

// Advanced holds overflow/tuning knobs.
type Advanced struct {
	LLMTimeout       int     `mapstructure:"llm_timeout"`
	LLMMaxRetries    int     `mapstructure:"llm_max_retries"`
	RSSHours         int     `mapstructure:"rss_hours"`
	RSSMaxConcurrent int     `mapstructure:"rss_max_concurrent"`
	RSSTimeout       float64 `mapstructure:"rss_timeout"`
}

// Logging holds logging configuration.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads configuration from a config file (if configFile is non-empty,
// or ".resintel.yaml" in the working directory / home directory otherwise),
// environment variables, and defaults, and rejects a configuration missing
// required fields. Environment variables (viper.AutomaticEnv) take
// precedence over the config file, and the config file over defaults; a
// value in the config file does not override an environment variable for
// the same key. The API-key, webhook and site-URL variables read in
// bindEnvironmentVariables are applied with viper.Set, so they override
// the file as well.
func Load(configFile string) (*Config, error) {
	return load(configFile, true)
}

// LoadSkipValidation loads configuration the same way Load does, but never
// rejects the result for missing required fields. This backs the CLI's
// --skip-config-check flag, used for task invocations (e.g.
// update-file-list) that need no LLM or search credentials at all.
func LoadSkipValidation(configFile string) (*Config, error) {
	return load(configFile, false)
}

func load(configFile string, validateConfig bool) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".resintel")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validateConfig {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it with defaults if necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the global configuration singleton. Test-only.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("data_dir", "data")

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.model", "gemini-flash-lite-latest")

	viper.SetDefault("arxiv.categories", []string{"cs.AI", "cs.CL", "cs.LG"})
	viper.SetDefault("arxiv.max_results", 100)
	viper.SetDefault("arxiv.max_pages", 20)
	viper.SetDefault("arxiv.request_delay", 3.0)
	viper.SetDefault("arxiv.timeout", 60.0)

	viper.SetDefault("search.api", "tavily")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", 30.0)

	viper.SetDefault("analysis.max_concurrent", 20)
	viper.SetDefault("analysis.timeout", 60)
	viper.SetDefault("analysis.max_research_iterations", 5)
	viper.SetDefault("analysis.max_write_iterations", 3)

	viper.SetDefault("notification.language", "en")
	viper.SetDefault("notification.max_papers", 10)
	viper.SetDefault("notification.max_news", 5)
	viper.SetDefault("notification.timeout", 30)
	viper.SetDefault("notification.max_retries", 3)

	viper.SetDefault("news.hours", 168)
	viper.SetDefault("news.rss_timeout", 30.0)
	viper.SetDefault("news.rss_max_concurrent", 10)
	viper.SetDefault("news.crawler_max_concurrent", 3)
	viper.SetDefault("news.crawler_timeout", 60.0)
	viper.SetDefault("news.headless", true)

	viper.SetDefault("advanced.llm_timeout", 60)
	viper.SetDefault("advanced.llm_max_retries", 3)
	viper.SetDefault("advanced.rss_hours", 24)
	viper.SetDefault("advanced.rss_max_concurrent", 20)
	viper.SetDefault("advanced.rss_timeout", 30.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvironmentVariables() {
	bindEnvKeys("llm.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys("search.tavily_api_key", []string{"TAVILY_API_KEY"})
	bindEnvKeys("notification.feishu_webhook_url", []string{"FEISHU_WEBHOOK_URL"})
	bindEnvKeys("notification.site_url", []string{"SITE_URL"})
}

func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// ArxivHours resolves the ARXIV_HOURS override (default 25), per the
// external-interfaces environment variable table.
func ArxivHours() int {
	if v := os.Getenv("ARXIV_HOURS"); v != "" {
		var hours int
		if _, err := fmt.Sscanf(v, "%d", &hours); err == nil && hours > 0 {
			return hours
		}
	}
	return 25
}

// GitHubRepository returns the configured owner/repo and owner, used to
// build links in notifications.
func GitHubRepository() (ownerRepo, owner string) {
	return os.Getenv("GITHUB_REPOSITORY"), os.Getenv("GITHUB_REPOSITORY_OWNER")
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.LLM.APIKey == "" {
		errs = append(errs, "LLM API key is required. Set GEMINI_API_KEY or llm.api_key in config file")
	}
	if cfg.LLM.Provider == "" {
		errs = append(errs, "llm.provider is required")
	}
	if len(cfg.Arxiv.Categories) == 0 {
		errs = append(errs, "arxiv.categories must not be empty")
	}

	switch cfg.Search.API {
	case "tavily":
		if cfg.Search.TavilyAPIKey == "" {
			errs = append(errs, "search.api=tavily requires TAVILY_API_KEY")
		}
	case "duckduckgo":
		// no credential required
	default:
		errs = append(errs, fmt.Sprintf("unsupported search.api: %s", cfg.Search.API))
	}

	durations := map[string]float64{
		"arxiv.timeout":    cfg.Arxiv.Timeout,
		"search.timeout":   cfg.Search.Timeout,
		"news.rss_timeout": cfg.News.RSSTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Duration is a convenience conversion from the float-seconds config fields
// used throughout the wire-contract section to a time.Duration.
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
