// Package leech implements the downstream action run for every delivered
// torrent: either queueing it directly in qBittorrent or relaying a leech
// command to a chat where a leech bot listens.
package leech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonathan/autoleech/internal/types"
)

// Notifier posts text into a chat.
type Notifier interface {
	SendMessage(ctx context.Context, chat types.ChatRef, text string, replyTo int64) error
}

// RelayLeecher posts the synthesized command text (e.g. "/qbleech <link>")
// into the resolved chat.
//
// The command is sent by this bot, and Telegram does not deliver a bot's
// messages in private chats or groups to other bots. A leech bot only sees
// the relayed command when the command chat is a channel it reads, so
// any other chat type logs a warning once.
type RelayLeecher struct {
	notifier Notifier
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewRelayLeecher creates a RelayLeecher.
func NewRelayLeecher(notifier Notifier, logger *slog.Logger) *RelayLeecher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayLeecher{notifier: notifier, logger: logger}
}

// Leech relays req as a command message.
func (l *RelayLeecher) Leech(ctx context.Context, req types.TriggerRequest) error {
	if req.Link == "" {
		return fmt.Errorf("relay: empty link")
	}
	if req.Chat.Type != types.ChatTypeChannel {
		l.warnOnce.Do(func() {
			l.logger.Warn("leech: relay target is not a channel; other bots do not receive bot messages there",
				"chat_id", req.Chat.ID, "chat_type", req.Chat.Type)
		})
	}
	chat := types.ChatRefFromID(req.Chat.ID)
	if err := l.notifier.SendMessage(ctx, chat, req.Text(), 0); err != nil {
		return fmt.Errorf("relay command to %s: %w", chat, err)
	}
	l.logger.Debug("leech: relayed command", "chat", chat.String(), "request_id", req.ID)
	return nil
}
