package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/types"
)

// DefaultTriggerTitle is used when a delivered file has no title.
const DefaultTriggerTitle = "TamilAuto"

// Leecher performs the downstream action for a delivered file.
type Leecher interface {
	Leech(ctx context.Context, req types.TriggerRequest) error
}

// Trigger hands delivered files to the Leecher. It is best-effort: every
// failure is logged and reported to the caller, never retried.
type Trigger struct {
	leecher  Leecher
	resolver ChatResolver
	cache    *ChatCache
	override types.ChatRef
	fallback types.ChatRef
	command  string
	issuerID int64
	logger   *slog.Logger
}

// TriggerConfig configures a Trigger.
type TriggerConfig struct {
	// Override is the command chat recorded when the run started.
	Override types.ChatRef
	// Fallback is the configured default command chat.
	Fallback types.ChatRef
	// Command is the synthesized command name, without slash.
	Command  string
	IssuerID int64
}

// NewTrigger creates a Trigger that resolves destinations through cache.
func NewTrigger(leecher Leecher, resolver ChatResolver, cache *ChatCache, cfg TriggerConfig, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Command == "" {
		cfg.Command = "qbleech"
	}
	return &Trigger{
		leecher:  leecher,
		resolver: resolver,
		cache:    cache,
		override: cfg.Override,
		fallback: cfg.Fallback,
		command:  cfg.Command,
		issuerID: cfg.IssuerID,
		logger:   logger,
	}
}

// Fire triggers the downstream action for link. A missing destination is a
// no-op and returns nil.
func (t *Trigger) Fire(ctx context.Context, link, title string) (err error) {
	ref := t.override
	if ref.IsZero() {
		ref = t.fallback
	}
	if ref.IsZero() || t.leecher == nil {
		t.logger.Info("trigger: command chat not configured, skipping", "link", link)
		return nil
	}

	chat, err := t.cache.Resolve(ctx, ref, t.resolver)
	if err != nil {
		t.logger.Error("trigger: resolve command chat", "chat", ref.String(), "error", err)
		return fmt.Errorf("resolve command chat %s: %w", ref, err)
	}

	if title == "" {
		title = DefaultTriggerTitle
	}
	req := types.TriggerRequest{
		ID:        uuid.New(),
		Chat:      chat,
		Link:      link,
		Title:     title,
		IssuerID:  t.issuerID,
		Command:   t.command,
		Args:      []string{link},
		Qbit:      true,
		Leech:     true,
		CreatedAt: time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("trigger: leech action panicked", "link", link, "panic", r)
			err = fmt.Errorf("leech action panicked: %v", r)
		}
	}()
	if err := t.leecher.Leech(ctx, req); err != nil {
		t.logger.Error("trigger: leech action failed", "link", link, "error", err)
		return err
	}
	t.logger.Info("trigger: queued for leech", "title", title, "request_id", req.ID)
	return nil
}
