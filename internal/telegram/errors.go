package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// APIError is an ok=false answer from the Bot API.
type APIError struct {
	Method      string
	ErrorCode   int
	Description string
	// RetryAfter is the flood-control wait in seconds, when reported.
	RetryAfter int
}

func (e *APIError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	switch {
	case e.ErrorCode > 0 && desc != "":
		return fmt.Sprintf("telegram %s: %d: %s", e.Method, e.ErrorCode, desc)
	case desc != "":
		return fmt.Sprintf("telegram %s: %s", e.Method, desc)
	case e.ErrorCode > 0:
		return fmt.Sprintf("telegram %s: error %d", e.Method, e.ErrorCode)
	default:
		return fmt.Sprintf("telegram %s: ok=false", e.Method)
	}
}

// wrap converts a tgbotapi error into an *APIError or a method-prefixed
// error. Request URLs embed the bot token, so *url.Error is unwrapped and
// any remaining occurrence of the token is masked.
func (c *Client) wrap(method string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &APIError{Method: method, ErrorCode: apiErr.Code, Description: c.mask(apiErr.Message), RetryAfter: apiErr.RetryAfter}
	}
	var apiVal tgbotapi.Error
	if errors.As(err, &apiVal) {
		return &APIError{Method: method, ErrorCode: apiVal.Code, Description: c.mask(apiVal.Message), RetryAfter: apiVal.RetryAfter}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return fmt.Errorf("telegram %s: %s", method, c.mask(err.Error()))
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}

func (c *Client) mask(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "<redacted>")
}

// IsPollTimeout reports whether err is the expected expiry of a long poll.
func IsPollTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}
