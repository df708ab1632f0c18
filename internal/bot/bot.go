// Package bot is the operator command surface: it long-polls the Bot API
// and turns "/<command> [stop]" messages from operators into monitor
// lifecycle calls.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/autoleech/internal/monitor"
	"github.com/jonathan/autoleech/internal/ratelimit"
	"github.com/jonathan/autoleech/internal/telegram"
	"github.com/jonathan/autoleech/internal/types"
)

// Operator-facing replies.
const (
	ReplyMisconfigured  = "AUTO_TBL_CHANNEL is not configured. Set it in the environment to enable this feature."
	ReplyAlreadyRunning = "Auto-leech is already running."
	ReplyStarted        = "Auto-leech started. New torrents will be posted automatically."
	ReplyNotRunning     = "Auto-leech is not running."
	ReplyStopped        = "Auto-leech stopped."
)

const (
	defaultRetryDelay = time.Second
	replyTimeout      = 15 * time.Second
)

// API is the subset of the Bot API the command surface uses.
type API interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	SendMessage(ctx context.Context, chat types.ChatRef, text string, replyTo int64) error
}

// Controller is the monitor lifecycle driven by commands.
type Controller interface {
	Start(ctx context.Context, req monitor.StartRequest) (monitor.Status, error)
	Stop(ctx context.Context) error
}

// Config configures a Bot.
type Config struct {
	// Command is the command name without the leading slash.
	Command string
	// IsOperator reports whether a user may issue commands.
	IsOperator  func(userID int64) bool
	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// Bot dispatches operator commands. Each command runs on its own goroutine so
// a stop waiting on the poll loop never blocks update polling.
type Bot struct {
	api        API
	controller Controller
	limiter    *ratelimit.Limiter
	cfg        Config
	logger     *slog.Logger

	username string
	wg       sync.WaitGroup
}

// New creates a Bot. A nil limiter disables throttling.
func New(api API, controller Controller, limiter *ratelimit.Limiter, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.IsOperator == nil {
		cfg.IsOperator = func(int64) bool { return false }
	}
	cfg.Command = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Command), "/"))
	return &Bot{
		api:        api,
		controller: controller,
		limiter:    limiter,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// commands to finish.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return err
	}
	b.username = me.Username
	b.logger.Info("bot: polling", "username", me.Username, "command", "/"+b.cfg.Command)

	defer b.wg.Wait()

	var offset int64
	for {
		updates, next, err := b.api.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bot: stopped")
				return nil
			}
			if telegram.IsPollTimeout(err) {
				b.logger.Debug("bot: poll timeout", "error", err)
			} else {
				b.logger.Warn("bot: get updates", "error", err)
			}
			select {
			case <-ctx.Done():
				b.logger.Info("bot: stopped")
				return nil
			case <-time.After(b.cfg.RetryDelay):
			}
			continue
		}
		offset = next

		for _, u := range updates {
			b.dispatch(ctx, u)
		}
	}
}

// dispatch runs the update's command, if any, on its own goroutine.
func (b *Bot) dispatch(ctx context.Context, u telegram.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				b.logger.Error("bot: command panicked", "update_id", u.UpdateID, "panic", p)
			}
		}()
		b.handle(ctx, u)
	}()
}

// handle executes one update synchronously.
func (b *Bot) handle(ctx context.Context, u telegram.Update) {
	msg := u.Msg()
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	name, arg, ok := ParseCommand(text, b.username)
	if !ok || name != b.cfg.Command {
		return
	}

	userID := msg.From.ID
	if !b.cfg.IsOperator(userID) {
		b.logger.Debug("bot: ignoring non-operator", "user_id", userID)
		return
	}
	if allowed, info := b.limiter.Allow(strconv.FormatInt(userID, 10)); !allowed {
		b.logger.Warn("bot: command throttled", "user_id", userID, "retry_after", info.RetryAfter)
		return
	}

	chat := types.ChatRefFromID(msg.Chat.ID)
	logger := b.logger.With("user", msg.From.DisplayName(), "user_id", userID, "chat", chat.String())

	var reply string
	if strings.EqualFold(strings.TrimSpace(arg), "stop") {
		reply = b.stop(logger)
	} else {
		reply = b.start(ctx, chat, logger)
	}
	if reply == "" {
		return
	}

	// Replies still go out while the process is shutting down.
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	if err := b.api.SendMessage(replyCtx, chat, reply, msg.MessageID); err != nil {
		logger.Warn("bot: reply failed", "error", err)
	}
}

func (b *Bot) start(ctx context.Context, issuer types.ChatRef, logger *slog.Logger) string {
	status, err := b.controller.Start(ctx, monitor.StartRequest{IssuerChat: issuer})
	switch {
	case err == nil:
		logger.Info("bot: monitor started", "run_id", status.RunID.String(), "command_chat", status.CommandChat.String())
		return ReplyStarted
	case errors.Is(err, monitor.ErrMisconfigured):
		return ReplyMisconfigured
	case errors.Is(err, monitor.ErrAlreadyRunning):
		return ReplyAlreadyRunning
	default:
		logger.Error("bot: start failed", "error", err)
		return ""
	}
}

// stop waits for the loop without a deadline.
func (b *Bot) stop(logger *slog.Logger) string {
	err := b.controller.Stop(context.Background())
	switch {
	case err == nil:
		logger.Info("bot: monitor stopped")
		return ReplyStopped
	case errors.Is(err, monitor.ErrNotRunning):
		return ReplyNotRunning
	default:
		logger.Error("bot: stop failed", "error", err)
		return ""
	}
}

// ParseCommand splits "/name[@bot] [arg]" into a lower-cased name and the
// trimmed argument. Commands addressed to a different bot are rejected when
// botUsername is known.
func ParseCommand(text, botUsername string) (name, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest := text, ""
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i:])
	}

	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		target := head[at+1:]
		head = head[:at]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", "", false
		}
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), rest, true
}
