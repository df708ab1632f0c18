// Package telegram adapts tgbotapi to what the monitor needs: receiving
// operator commands, resolving chats and uploading documents.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonathan/autoleech/internal/types"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultPollTimeout is the server-side long poll duration.
const DefaultPollTimeout = 30 * time.Second

// DefaultHTTPTimeout bounds every request, long polls included.
const DefaultHTTPTimeout = 60 * time.Second

// Client wraps a tgbotapi.BotAPI. It is safe for concurrent use.
type Client struct {
	api   *tgbotapi.BotAPI
	http  *http.Client
	token string
}

// New creates a Client without contacting the Bot API. httpClient may be
// nil, in which case requests time out after DefaultHTTPTimeout.
func New(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	// tgbotapi.NewBotAPIWithClient calls getMe; the bot does that itself
	// once its poll loop starts.
	api := &tgbotapi.BotAPI{Token: token, Client: httpClient, Buffer: 100}
	api.SetAPIEndpoint(strings.TrimRight(baseURL, "/") + "/bot%s/%s")

	return &Client{api: api, http: httpClient, token: token}
}

// ctxDoer binds a request context onto every call tgbotapi makes.
type ctxDoer struct {
	ctx  context.Context
	http *http.Client
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.http.Do(req.WithContext(d.ctx))
}

// bot returns a shallow copy of the BotAPI whose requests honour ctx.
func (c *Client) bot(ctx context.Context) *tgbotapi.BotAPI {
	b := *c.api
	b.Client = ctxDoer{ctx: ctx, http: c.http}
	return &b
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	me, err := c.bot(ctx).GetMe()
	if err != nil {
		return nil, c.wrap("getMe", err)
	}
	return fromUser(&me), nil
}

// GetUpdates long-polls for updates at or after offset and returns them with
// the offset to use next.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	cfg := tgbotapi.NewUpdate(int(offset))
	cfg.Timeout = secs
	raw, err := c.bot(reqCtx).GetUpdates(cfg)
	if err != nil {
		return nil, offset, c.wrap("getUpdates", err)
	}

	updates := make([]Update, 0, len(raw))
	next := offset
	for _, u := range raw {
		updates = append(updates, fromUpdate(u))
		if id := int64(u.UpdateID); id >= next {
			next = id + 1
		}
	}
	return updates, next, nil
}

// SendMessage posts plain text to chat, optionally as a reply.
func (c *Client) SendMessage(ctx context.Context, chat types.ChatRef, text string, replyTo int64) error {
	if chat.IsZero() {
		return fmt.Errorf("telegram sendMessage: missing chat")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("telegram sendMessage: empty text")
	}

	var msg tgbotapi.MessageConfig
	if id, ok := chat.ID(); ok {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chat.String(), text)
	}
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = int(replyTo)

	_, err := c.bot(ctx).Send(msg)
	return c.wrap("sendMessage", err)
}

// SendDocument uploads payload as a document named filename.
func (c *Client) SendDocument(ctx context.Context, chat types.ChatRef, filename string, payload []byte, caption string) error {
	if chat.IsZero() {
		return fmt.Errorf("telegram sendDocument: missing chat")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "file"
	}

	file := tgbotapi.FileBytes{Name: filename, Bytes: payload}
	var doc tgbotapi.DocumentConfig
	if id, ok := chat.ID(); ok {
		doc = tgbotapi.NewDocument(id, file)
	} else {
		doc = tgbotapi.NewDocument(0, file)
		doc.ChannelUsername = chat.String()
	}
	doc.Caption = strings.TrimSpace(caption)

	_, err := c.bot(ctx).Send(doc)
	return c.wrap("sendDocument", err)
}

// GetChat resolves a chat reference. A missing type is inferred from the id.
func (c *Client) GetChat(ctx context.Context, ref types.ChatRef) (types.ResolvedChat, error) {
	if ref.IsZero() {
		return types.ResolvedChat{}, fmt.Errorf("telegram getChat: missing chat")
	}

	var cfg tgbotapi.ChatInfoConfig
	if id, ok := ref.ID(); ok {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = ref.String()
	}

	chat, err := c.bot(ctx).GetChat(cfg)
	if err != nil {
		return types.ResolvedChat{}, c.wrap("getChat", err)
	}
	resolved := types.ResolvedChat{ID: chat.ID, Type: chat.Type}
	if resolved.Type == "" {
		resolved.Type = types.InferChatType(chat.ID)
	}
	return resolved, nil
}

func fromUpdate(u tgbotapi.Update) Update {
	return Update{
		UpdateID:      int64(u.UpdateID),
		Message:       fromMessage(u.Message),
		EditedMessage: fromMessage(u.EditedMessage),
		ChannelPost:   fromMessage(u.ChannelPost),
	}
}

func fromMessage(m *tgbotapi.Message) *Message {
	if m == nil {
		return nil
	}
	out := &Message{
		MessageID: int64(m.MessageID),
		Date:      int64(m.Date),
		From:      fromUser(m.From),
		Text:      m.Text,
		Caption:   m.Caption,
	}
	if m.Chat != nil {
		out.Chat = &Chat{ID: m.Chat.ID, Type: m.Chat.Type, Title: m.Chat.Title, Username: m.Chat.UserName}
	}
	return out
}

func fromUser(u *tgbotapi.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
