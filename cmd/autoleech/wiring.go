package main

import (
	"log/slog"
	"time"

	"github.com/jonathan/autoleech/internal/config"
	"github.com/jonathan/autoleech/internal/crawling"
	"github.com/jonathan/autoleech/internal/fetch"
	"github.com/jonathan/autoleech/internal/leech"
	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/telegram"
)

// newTelegram builds the Bot API client. The nil http.Client gives every
// request, long polls included, telegram.DefaultHTTPTimeout.
func newTelegram(cfg *config.Config) *telegram.Client {
	return telegram.New(nil, cfg.TelegramAPIURL, cfg.BotToken)
}

// newFetcher builds the HTTP client shared by the gateway and payload downloads.
func newFetcher(cfg *config.Config, logger *slog.Logger) *fetch.Client {
	return fetch.New(&fetch.Options{
		Timeout:    cfg.FetchTimeout.Std(),
		UseBrowser: cfg.UseBrowser,
	}, logger.With("component", "fetch"))
}

// newGateway builds the source gateway over fetcher.
func newGateway(cfg *config.Config, fetcher crawling.PageFetcher, interval time.Duration, logger *slog.Logger) *crawling.Gateway {
	return crawling.NewGateway(fetcher, crawling.GatewayConfig{
		BaseURL:         cfg.BaseURL,
		MaxTopics:       cfg.MaxTopics,
		RequestInterval: interval,
	}, logger.With("component", "crawling"))
}

// newLeecher selects the downstream action: qBittorrent when QBIT_URL is
// set, otherwise a command relayed into the command chat.
func newLeecher(cfg *config.Config, notifier leech.Notifier, logger *slog.Logger) (monitor.Leecher, error) {
	logger = logger.With("component", "leech")
	if cfg.QbitURL == "" {
		logger.Info("leech: relay mode")
		return leech.NewRelayLeecher(notifier, logger), nil
	}
	q, err := leech.NewQbitLeecher(leech.QbitConfig{
		URL:      cfg.QbitURL,
		Username: cfg.QbitUsername,
		Password: cfg.QbitPassword,
		Category: cfg.QbitCategory,
		Timeout:  cfg.FetchTimeout.Std(),
	}, notifier, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("leech: qbittorrent mode", "url", cfg.QbitURL)
	return q, nil
}
