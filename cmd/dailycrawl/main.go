// Command daily_crawl runs one or all of the daily research-intelligence
// pipeline tasks: fetching new arXiv papers and news, running bounded
// light analysis over anything not yet analyzed, aggregating the daily
// report, refreshing the file-list index, and sending the best-effort
// outbound notification.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resintel/internal/config"
	"resintel/internal/errs"
	"resintel/internal/idtracker"
	"resintel/internal/llm"
	"resintel/internal/logger"
	"resintel/internal/news"
	"resintel/internal/news/crawler"
	"resintel/internal/pipeline"
)

func main() {
	os.Exit(int(run()))
}

// run parses flags and executes the requested task, returning the process
// exit code rather than calling os.Exit directly so it stays testable.
func run() errs.ExitCode {
	var (
		task            string
		skipConfigCheck bool
		code            = errs.ExitConfigError
	)

	cmd := &cobra.Command{
		Use:   "daily_crawl",
		Short: "Run one or all daily research-intelligence pipeline tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = execute(cmd.Context(), task, skipConfigCheck)
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "arxiv|rss|analyze|summary|notify|update-file-list|all")
	cmd.Flags().BoolVar(&skipConfigCheck, "skip-config-check", false, "skip required-field configuration validation")
	if err := cmd.MarkFlagRequired("task"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitConfigError
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitConfigError
	}
	return code
}

func execute(ctx context.Context, task string, skipConfigCheck bool) errs.ExitCode {
	cfg, err := loadConfig(skipConfigCheck)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return errs.ExitConfigError
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	llmClient := buildLLMClient(ctx, cfg)

	sources, err := news.LoadSources(news.DefaultSourcesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading news sources: %v\n", err)
		return errs.ExitConfigError
	}

	ingestor := news.NewIngestor(
		news.NewFeedFetcher(config.Duration(cfg.News.RSSTimeout), cfg.News.RSSMaxConcurrent),
		crawler.New(config.Duration(cfg.News.CrawlerTimeout), cfg.News.CrawlerMaxConcurrent),
		idtracker.Fetched(""),
	)

	p := pipeline.New(cfg, llmClient, ingestor, sources)
	return runTask(ctx, p, task)
}

func loadConfig(skipConfigCheck bool) (*config.Config, error) {
	if skipConfigCheck {
		return config.LoadSkipValidation("")
	}
	return config.Load("")
}

// buildLLMClient returns nil if no API key is configured or client
// construction fails, leaving analyze/summary to fall back to their
// no-LLM behavior rather than aborting the whole run.
func buildLLMClient(ctx context.Context, cfg *config.Config) llm.Client {
	if cfg.LLM.APIKey == "" {
		return nil
	}
	client, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    config.Duration(float64(cfg.Advanced.LLMTimeout)),
		MaxRetries: cfg.Advanced.LLMMaxRetries,
	})
	if err != nil {
		logger.Error("building llm client failed, continuing without analysis", err, nil)
		return nil
	}
	return client
}

func runTask(ctx context.Context, p *pipeline.Pipeline, task string) errs.ExitCode {
	switch task {
	case "arxiv":
		if p.RunArxiv(ctx) == pipeline.ProcessError {
			return errs.ExitProcessError
		}
		return errs.ExitSuccess
	case "rss":
		return exitFor(p.RunRSS(ctx))
	case "analyze":
		return exitFor(p.RunAnalyze(ctx))
	case "summary":
		return exitFor(p.RunSummary(ctx))
	case "update-file-list":
		return exitFor(p.RunUpdateFileList())
	case "notify":
		p.RunNotify(ctx)
		return errs.ExitSuccess
	case "all":
		return p.RunAll(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown task %q\n", task)
		return errs.ExitConfigError
	}
}

func exitFor(err error) errs.ExitCode {
	if err != nil {
		logger.Error("task failed", err, nil)
		return errs.ExitProcessError
	}
	return errs.ExitSuccess
}
