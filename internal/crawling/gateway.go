package crawling

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/autoleech/internal/fetch"
	"github.com/jonathan/autoleech/internal/types"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the forum listing that is polled.
	DefaultBaseURL = "https://www.1tamilmv.land/"
	// DefaultMaxTopics is the bounded window of topics returned per call.
	DefaultMaxTopics = 15
	// DefaultRequestInterval is the minimum spacing between page requests.
	DefaultRequestInterval = 1 * time.Second
)

// PageFetcher retrieves the HTML of a page.
type PageFetcher interface {
	Page(ctx context.Context, url string) (*fetch.Result, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	BaseURL   string
	MaxTopics int
	// RequestInterval paces page requests. Negative disables pacing.
	RequestInterval time.Duration
}

// Gateway lists the newest topics of the forum with their torrent files.
type Gateway struct {
	pages     PageFetcher
	baseURL   string
	maxTopics int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewGateway creates a Gateway backed by pages.
func NewGateway(pages PageFetcher, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = DefaultMaxTopics
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		pages:     pages,
		baseURL:   cfg.BaseURL,
		maxTopics: cfg.MaxTopics,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// ListTopics fetches the listing and returns at most MaxTopics topics that
// carry at least one torrent file, in listing order. A listing failure is
// returned; a topic page failure is logged and that topic is omitted.
func (g *Gateway) ListTopics(ctx context.Context) ([]types.Topic, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	listing, err := g.pages.Page(ctx, g.baseURL)
	if err != nil {
		return nil, &CrawlError{Message: "failed to fetch listing", Cause: err}
	}

	topicURLs, err := ExtractTopicLinks(listing.HTML, g.baseURL, g.maxTopics)
	if err != nil {
		return nil, &CrawlError{Message: "failed to extract topic links", Cause: err}
	}
	g.logger.Debug("crawl: listing parsed", "topics", len(topicURLs))

	topics := make([]types.Topic, 0, len(topicURLs))
	for _, topicURL := range topicURLs {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		topic, err := g.topic(ctx, topicURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Error("crawl: topic skipped", "topic", topicURL, "error", err)
			continue
		}
		if len(topic.Files) == 0 {
			continue
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (g *Gateway) topic(ctx context.Context, topicURL string) (types.Topic, error) {
	page, err := g.pages.Page(ctx, topicURL)
	if err != nil {
		return types.Topic{}, &TopicParseError{TopicURL: topicURL, Message: "fetch failed", Cause: err}
	}
	files, err := ExtractFiles(page.HTML, topicURL)
	if err != nil {
		return types.Topic{}, &TopicParseError{TopicURL: topicURL, Message: "parse failed", Cause: err}
	}

	topic := types.Topic{TopicURL: topicURL, Files: files}
	if len(files) > 0 {
		topic.Title = files[0].Title
		topic.Size = files[0].Size
	}
	return topic, nil
}
