package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/autoleech/internal/crawling"
	"github.com/jonathan/autoleech/internal/observability"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the source listing once and print its topics",
	Long:  "Fetches the forum listing and its newest topic pages exactly like one poll cycle, without delivering anything.",
	RunE:  runCrawl,
}

var (
	crawlJSON      bool
	crawlMaxTopics int
	crawlInterval  time.Duration
)

func init() {
	crawlCmd.Flags().BoolVar(&crawlJSON, "json", false, "Print topics as JSON")
	crawlCmd.Flags().IntVar(&crawlMaxTopics, "max-topics", 0, "Override TBL_MAX_TOPICS")
	crawlCmd.Flags().DurationVar(&crawlInterval, "interval", crawling.DefaultRequestInterval, "Pause between page requests (negative disables pacing)")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if crawlMaxTopics > 0 {
		cfg.MaxTopics = crawlMaxTopics
	}

	gateway := newGateway(cfg, newFetcher(cfg, logger), crawlInterval, logger)
	topics, err := gateway.ListTopics(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", cfg.BaseURL, err)
	}

	if crawlJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(topics)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintTopics(topics)
	return nil
}
