package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/types"
	"github.com/jonathan/autoleech/internal/workpool"
)

const (
	// DefaultPollInterval is the sleep between two poll cycles.
	DefaultPollInterval = 15 * time.Minute
	// DefaultCaptionTag is appended to every delivered caption.
	DefaultCaptionTag = "#tmv torrent file"

	defaultFilename = "tbl_torrent"
)

// Source lists the current topics of the monitored site. Implementations
// are expected to cap the number of topics they return.
type Source interface {
	ListTopics(ctx context.Context) ([]types.Topic, error)
}

// PayloadFetcher downloads the payload behind a file link.
type PayloadFetcher interface {
	Fetch(ctx context.Context, link string) ([]byte, error)
}

// Deliverer uploads a payload to a chat.
type Deliverer interface {
	SendDocument(ctx context.Context, chat types.ChatRef, filename string, payload []byte, caption string) error
}

// Journal records runs and deliveries. It is write-only from the monitor's
// side and never feeds the DedupStore.
type Journal interface {
	RecordRunStarted(ctx context.Context, run types.RunRecord) error
	RecordRunStopped(ctx context.Context, runID uuid.UUID, reason string) error
	RecordDelivery(ctx context.Context, d types.Delivery) error
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	RunID        uuid.UUID
	UploadChat   types.ChatRef
	PollInterval time.Duration
	CaptionTag   string
}

// Engine owns one run's poll loop and dedup state.
type Engine struct {
	source  Source
	fetcher PayloadFetcher
	sink    Deliverer
	trigger *Trigger
	journal Journal
	pool    *workpool.Pool
	seen    *DedupStore
	cfg     EngineConfig
	logger  *slog.Logger
	stats   counters
}

// NewEngine wires an Engine. journal may be nil.
func NewEngine(source Source, fetcher PayloadFetcher, sink Deliverer, trigger *Trigger, journal Journal,
	pool *workpool.Pool, seen *DedupStore, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CaptionTag == "" {
		cfg.CaptionTag = DefaultCaptionTag
	}
	if pool == nil {
		pool = workpool.New(0)
	}
	if seen == nil {
		seen = NewDedupStore(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:  source,
		fetcher: fetcher,
		sink:    sink,
		trigger: trigger,
		journal: journal,
		pool:    pool,
		seen:    seen,
		cfg:     cfg,
		logger:  logger,
	}
}

// Stats returns the run's counters.
func (e *Engine) Stats() Stats { return e.stats.snapshot() }

// Run polls until ctx is cancelled. The first cycle starts immediately.
// Cycle-level failures never end the loop; the returned error is always
// ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("monitor: started", "upload_chat", e.cfg.UploadChat.String(), "interval", e.cfg.PollInterval)

	for {
		if err := e.RunCycle(ctx); err != nil {
			e.logger.Info("monitor: stopped", "run_id", e.cfg.RunID)
			return err
		}

		timer := time.NewTimer(e.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("monitor: stopped", "run_id", e.cfg.RunID)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle performs one poll: list topics, deliver unseen files, mark
// evaluated topics. It returns a non-nil error only when ctx was cancelled.
func (e *Engine) RunCycle(ctx context.Context) error {
	defer func() {
		e.stats.cycles.Add(1)
		e.stats.lastCycleNs.Store(time.Now().UnixNano())
	}()

	topics, err := workpool.Do(ctx, e.pool, e.source.ListTopics)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.stats.sourceErrors.Add(1)
		e.logger.Error("monitor: list topics", "error", err)
		topics = nil
	}

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}

		newFiles := e.seen.NewFiles(topic.Files)
		if e.seen.SeenTopic(topic.TopicURL) && len(newFiles) == 0 {
			continue
		}

		for _, file := range newFiles {
			if err := e.processFile(ctx, topic, file); err != nil {
				return err
			}
		}

		if !e.seen.SeenTopic(topic.TopicURL) {
			e.stats.topicsSeen.Add(1)
		}
		e.seen.MarkTopic(topic.TopicURL)
	}
	return nil
}

// processFile runs fetch -> deliver -> trigger for one file. Per-file
// failures are logged and swallowed; only cancellation is returned.
func (e *Engine) processFile(ctx context.Context, topic types.Topic, file types.File) error {
	payload, err := workpool.Do(ctx, e.pool, func(ctx context.Context) ([]byte, error) {
		return e.fetcher.Fetch(ctx, file.Link)
	})
	if err != nil || len(payload) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("empty payload")
		}
		e.stats.fetchFailures.Add(1)
		e.logger.Error("monitor: download payload", "link", file.Link, "error", err)
		return nil
	}

	filename := SafeFilename(file.Title, file.Kind)
	caption := Caption(file, e.cfg.CaptionTag)
	if err := e.sink.SendDocument(ctx, e.cfg.UploadChat, filename, payload, caption); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.stats.deliveryFailures.Add(1)
		e.logger.Error("monitor: send document", "link", file.Link, "error", err)
		return nil
	}

	if !e.seen.SeenLink(file.Link) {
		e.stats.linksSeen.Add(1)
	}
	e.seen.MarkLink(file.Link)
	e.stats.delivered.Add(1)
	e.logger.Info("monitor: posted file", "title", file.Title, "size", file.Size)
	e.recordDelivery(ctx, topic, file, filename)

	if e.trigger != nil {
		if err := e.trigger.Fire(ctx, file.Link, file.Title); err != nil {
			e.stats.triggerFailures.Add(1)
		}
	}
	return nil
}

func (e *Engine) recordDelivery(ctx context.Context, topic types.Topic, file types.File, filename string) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordDelivery(ctx, types.Delivery{
		RunID:       e.cfg.RunID,
		TopicURL:    topic.TopicURL,
		Link:        file.Link,
		Title:       file.Title,
		Size:        file.Size,
		Filename:    filename,
		Chat:        e.cfg.UploadChat,
		DeliveredAt: time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("monitor: journal delivery", "link", file.Link, "error", err)
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^0-9A-Za-z._-]+`)

// SafeFilename derives an upload filename from a file title, keeping only
// [0-9A-Za-z._-] and falling back to a generic name.
func SafeFilename(title string, kind types.FileKind) string {
	safe := strings.Trim(unsafeFilenameChars.ReplaceAllString(title, "_"), "_")
	if safe == "" {
		safe = defaultFilename
	}
	return safe + kind.Extension()
}

// Caption builds the document caption: title, size, then the topical tag.
func Caption(file types.File, tag string) string {
	if tag == "" {
		tag = DefaultCaptionTag
	}
	return fmt.Sprintf("%s\n📦 %s\n%s", file.Title, file.Size, tag)
}
