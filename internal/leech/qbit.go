package leech

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	qbittorrent "github.com/autobrr/go-qbittorrent"
	"github.com/jonathan/autoleech/internal/types"
)

// QbitError is returned for failed qBittorrent Web API calls.
type QbitError struct {
	Endpoint string
	Message  string
	Cause    error
}

func (e *QbitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("qbittorrent %s: %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	return fmt.Sprintf("qbittorrent %s: %s", e.Endpoint, e.Message)
}

func (e *QbitError) Unwrap() error {
	return e.Cause
}

// QbitConfig configures a QbitLeecher.
type QbitConfig struct {
	URL      string
	Username string
	Password string
	Category string
	Timeout  time.Duration
}

// QbitLeecher adds delivered torrents to qBittorrent through its Web API and
// reports each queued title to the resolved chat.
type QbitLeecher struct {
	client   *qbittorrent.Client
	category string
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewQbitLeecher creates a QbitLeecher. notifier may be nil.
func NewQbitLeecher(cfg QbitConfig, notifier Notifier, logger *slog.Logger) (*QbitLeecher, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &QbitError{Endpoint: "config", Message: fmt.Sprintf("invalid URL %q", cfg.URL), Cause: err}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := qbittorrent.NewClient(qbittorrent.Config{
		Host:     base.String(),
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  int(cfg.Timeout.Round(time.Second) / time.Second),
	})
	return &QbitLeecher{
		client:   client,
		category: cfg.Category,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Leech queues req.Link. The client logs in again by itself when the
// session expires (403 from torrents/add).
func (q *QbitLeecher) Leech(ctx context.Context, req types.TriggerRequest) error {
	if req.Link == "" {
		return &QbitError{Endpoint: "torrents/add", Message: "empty link"}
	}
	if err := q.login(ctx); err != nil {
		return err
	}

	opts := map[string]string{}
	if q.category != "" {
		opts["category"] = q.category
	}
	if err := q.client.AddTorrentFromUrlCtx(ctx, req.Link, opts); err != nil {
		return &QbitError{Endpoint: "torrents/add", Message: "torrent not added", Cause: err}
	}

	q.logger.Info("leech: queued in qbittorrent", "title", req.Title, "request_id", req.ID)
	if q.notifier != nil && req.Chat.ID != 0 {
		text := "Queued for qBittorrent: " + req.Title
		if err := q.notifier.SendMessage(ctx, types.ChatRefFromID(req.Chat.ID), text, 0); err != nil {
			q.logger.Warn("leech: notify chat", "chat_id", req.Chat.ID, "error", err)
		}
	}
	return nil
}

// login opens the first session. Later expiries are handled by the client.
func (q *QbitLeecher) login(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loggedIn {
		return nil
	}
	if err := q.client.LoginCtx(ctx); err != nil {
		return &QbitError{Endpoint: "auth/login", Message: "login rejected", Cause: err}
	}
	q.loggedIn = true
	return nil
}
