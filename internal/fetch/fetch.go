// Package fetch provides HTTP retrieval for listing pages and torrent payloads.
// Pages can optionally be rendered in a headless browser for sites that gate
// content behind JavaScript challenges.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent mimics a desktop browser; the forum rejects bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// DefaultMaxPayload caps the size of a downloaded payload.
const DefaultMaxPayload int64 = 10 << 20

// Result holds the raw content of a fetched page.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	MaxPayload int64
	// UseBrowser renders pages with headless Chrome instead of plain HTTP.
	// Payload downloads always use HTTP.
	UseBrowser bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		UserAgent:  DefaultUserAgent,
		MaxPayload: DefaultMaxPayload,
	}
}

// Client fetches pages and payloads. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Client. Zero option fields fall back to the defaults.
func New(opts *Options, logger *slog.Logger) *Client {
	o := *DefaultOptions()
	if opts != nil {
		if opts.Timeout > 0 {
			o.Timeout = opts.Timeout
		}
		if opts.UserAgent != "" {
			o.UserAgent = opts.UserAgent
		}
		if opts.MaxPayload > 0 {
			o.MaxPayload = opts.MaxPayload
		}
		o.Headers = opts.Headers
		o.UseBrowser = opts.UseBrowser
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: o.Timeout},
		opts:   o,
		logger: logger,
	}
}

// Page retrieves the HTML of a page.
func (c *Client) Page(ctx context.Context, urlStr string) (*Result, error) {
	if err := validateURL(urlStr); err != nil {
		return nil, err
	}

	if c.opts.UseBrowser {
		html, err := RenderHTML(ctx, urlStr, c.opts.Timeout+browserSettle, c.logger)
		if err != nil {
			return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
		}
		return &Result{URL: urlStr, HTML: html, ContentType: "text/html", StatusCode: http.StatusOK}, nil
	}

	body, resp, err := c.get(ctx, urlStr, 0)
	if resp == nil {
		return nil, err
	}
	result := &Result{
		URL:         urlStr,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	return result, err
}

// Fetch downloads the payload behind link. Non-200 responses and payloads
// larger than the configured maximum are errors.
func (c *Client) Fetch(ctx context.Context, link string) ([]byte, error) {
	if err := validateURL(link); err != nil {
		return nil, err
	}
	body, _, err := c.get(ctx, link, c.opts.MaxPayload)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, &Error{URL: link, Message: "empty payload"}
	}
	return body, nil
}

// get performs a GET request. The response is returned alongside a status
// error so callers can inspect it. limit <= 0 means unlimited.
func (c *Client) get(ctx context.Context, urlStr string, limit int64) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, resp, &Error{URL: urlStr, Message: fmt.Sprintf("payload exceeds %d bytes", limit)}
	}

	if resp.StatusCode != http.StatusOK {
		return body, resp, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return body, resp, nil
}

func validateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	return nil
}
