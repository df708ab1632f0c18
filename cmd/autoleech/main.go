// Package main provides the autoleech CLI: the monitor service and its
// operator tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/autoleech/internal/config"
	"github.com/jonathan/autoleech/internal/logging"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "autoleech",
	Short: "Forum torrent auto-leech monitor",
	Long: "autoleech polls a forum for new torrent attachments, posts each new file to a Telegram chat " +
		"and hands it to a leech client. Operators start and stop the monitor with a bot command.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional JSON config file; environment variables take precedence")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the effective configuration and builds its logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, logger, nil
}
