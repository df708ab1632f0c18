package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/autoleech/internal/bot"
	"github.com/jonathan/autoleech/internal/config"
	"github.com/jonathan/autoleech/internal/crawling"
	"github.com/jonathan/autoleech/internal/db"
	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/observability"
	"github.com/jonathan/autoleech/internal/ratelimit"
	"github.com/jonathan/autoleech/internal/server"
	"github.com/jonathan/autoleech/internal/workpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const stopTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and, when HTTP_ADDR is set, the operator HTTP API",
	Long: "Start the operator command surface. The monitor stays idle until an operator sends " +
		"/<command>; '/<command> stop' stops it. SIGINT or SIGTERM shuts everything down.",
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg := newTelegram(cfg)
	fetcher := newFetcher(cfg, logger)
	gateway := newGateway(cfg, fetcher, crawling.DefaultRequestInterval, logger)

	leecher, err := newLeecher(cfg, tg, logger)
	if err != nil {
		return fmt.Errorf("failed to configure leech: %w", err)
	}

	var (
		journal    monitor.Journal
		deliveries server.DeliveryLister
	)
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		journal, deliveries = database, database
		logger.Info("serve: delivery journal enabled")
	}

	controller := monitor.NewController(monitor.Deps{
		Source:   gateway,
		Fetcher:  fetcher,
		Sink:     tg,
		Resolver: tg,
		Leecher:  leecher,
		Journal:  journal,
		Pool:     workpool.New(cfg.Workers),
		Logger:   logger.With("component", "monitor"),
	}, monitor.Options{
		UploadChat:    cfg.UploadChat,
		CommandChat:   cfg.CommandChat,
		OwnerID:       cfg.OwnerID,
		LeechCommand:  cfg.LeechCommand,
		PollInterval:  cfg.PollInterval.Std(),
		CaptionTag:    cfg.CaptionTag,
		DedupCapacity: cfg.DedupCapacity,
	})
	if cfg.UploadChat.IsZero() {
		logger.Warn("serve: AUTO_TBL_CHANNEL is not set; start commands will be refused")
	}

	limits := ratelimit.LoadConfig()
	commandLimiter := ratelimit.NewLimiter(limits)
	defer commandLimiter.Stop()

	commands := bot.New(tg, controller, commandLimiter, bot.Config{
		Command:    cfg.Command,
		IsOperator: cfg.IsOperator,
	}, logger.With("component", "bot"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return commands.Run(gctx) })

	if cfg.HTTPAddr != "" {
		srv, err := newAPIServer(cfg, controller, deliveries, limits, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := controller.Stop(stopCtx); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
		logger.Warn("serve: monitor did not stop cleanly", "error", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintStatus(controller.Status())
	return runErr
}

// newAPIServer builds the operator HTTP API. JWT_SECRET is required once
// HTTP_ADDR is set.
func newAPIServer(cfg *config.Config, controller server.Controller, deliveries server.DeliveryLister, limits *ratelimit.Config, logger *slog.Logger) (*server.Server, error) {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("HTTP API: %w", err)
	}
	return server.New(server.Config{Addr: cfg.HTTPAddr}, server.Deps{
		Controller:  controller,
		Journal:     deliveries,
		JWT:         server.NewJWTService(jwtCfg),
		RateLimiter: ratelimit.NewLimiter(limits),
		Authorize:   cfg.IsOperator,
		Logger:      logger.With("component", "server"),
	})
}
