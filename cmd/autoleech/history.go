package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/db"
	"github.com/jonathan/autoleech/internal/observability"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled monitor runs and deliveries",
	Long:  "Reads the delivery journal in DATABASE_URL. Prints deliveries by default, or runs with --runs.",
	RunE:  runHistory,
}

var (
	historyRuns  bool
	historyRunID string
	historyLimit int
)

func init() {
	historyCmd.Flags().BoolVar(&historyRuns, "runs", false, "List monitor runs instead of deliveries")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Only deliveries of this run id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", db.DefaultListLimit, "Maximum rows to print")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for history")
	}

	filters := db.DeliveryFilters{Limit: historyLimit}
	if historyRunID != "" {
		if filters.RunID, err = uuid.Parse(historyRunID); err != nil {
			return fmt.Errorf("invalid --run: %w", err)
		}
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if historyRuns {
		runs, err := database.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		printer.PrintRuns(runs)
		return nil
	}

	deliveries, err := database.ListDeliveries(ctx, filters)
	if err != nil {
		return err
	}
	printer.PrintDeliveries(deliveries)
	return nil
}
