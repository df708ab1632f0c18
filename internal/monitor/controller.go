package monitor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/types"
	"github.com/jonathan/autoleech/internal/workpool"
)

// Deps are the collaborators shared by every run.
type Deps struct {
	Source   Source
	Fetcher  PayloadFetcher
	Sink     Deliverer
	Resolver ChatResolver
	Leecher  Leecher
	// Journal is optional.
	Journal Journal
	Pool    *workpool.Pool
	Logger  *slog.Logger
}

// Options hold the operator configuration read at start.
type Options struct {
	UploadChat    types.ChatRef
	CommandChat   types.ChatRef
	OwnerID       int64
	LeechCommand  string
	PollInterval  time.Duration
	CaptionTag    string
	DedupCapacity int
}

// StartRequest describes who asked for a run and where downstream commands go.
type StartRequest struct {
	// CommandChat overrides the configured command chat for this run.
	CommandChat types.ChatRef
	// IssuerChat is the operator's own chat, the last fallback for CommandChat.
	IssuerChat types.ChatRef
}

// Status describes the controller's current (or last) run.
type Status struct {
	Running     bool          `json:"running"`
	RunID       uuid.UUID     `json:"run_id,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	UploadChat  types.ChatRef `json:"upload_chat,omitempty"`
	CommandChat types.ChatRef `json:"command_chat,omitempty"`
	Stats       Stats         `json:"stats"`
}

// run is the handle of one monitor run.
type run struct {
	id          uuid.UUID
	startedAt   time.Time
	commandChat types.ChatRef
	engine      *Engine
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	reason      string
}

// Controller guarantees that at most one monitor run is active in the
// process. Start and Stop may be called concurrently from any goroutine.
type Controller struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	current *run
	last    *run
}

// NewController creates an idle Controller.
func NewController(deps Deps, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Pool == nil {
		deps.Pool = workpool.New(0)
	}
	return &Controller{deps: deps, opts: opts}
}

// UploadChat returns the configured delivery destination.
func (c *Controller) UploadChat() types.ChatRef { return c.opts.UploadChat }

// Start launches a run unless one is active. It returns ErrMisconfigured
// when no upload chat is configured and ErrAlreadyRunning, without side
// effects, when a run is active.
func (c *Controller) Start(_ context.Context, req StartRequest) (Status, error) {
	if c.opts.UploadChat.IsZero() {
		return Status{}, ErrMisconfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.statusLocked(), ErrAlreadyRunning
	}

	commandChat := req.CommandChat
	if commandChat.IsZero() {
		commandChat = c.opts.CommandChat
	}
	if commandChat.IsZero() {
		commandChat = req.IssuerChat
	}

	r := c.newRun(commandChat)
	c.current = r
	c.last = r
	go c.loop(r)

	return c.statusLocked(), nil
}

// Stop cancels the active run and waits until its loop has exited and
// cleared the run handle, or until ctx ends. It returns ErrNotRunning when
// no run is active.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	r := c.current
	if r == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	r.cancel()
	// The loop's cleanup takes c.mu; waiting under it would deadlock.
	c.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Status reports the active run, or the last one when idle.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	r := c.current
	if r == nil {
		r = c.last
	}
	st := Status{Running: c.current != nil, UploadChat: c.opts.UploadChat}
	if r != nil {
		st.RunID = r.id
		st.StartedAt = r.startedAt
		st.CommandChat = r.commandChat
		st.Stats = r.engine.Stats()
	}
	return st
}

// newRun builds a run with a fresh DedupStore and ChatCache.
func (c *Controller) newRun(commandChat types.ChatRef) *run {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	logger := c.deps.Logger.With("run_id", id.String())

	cache := &ChatCache{}
	trigger := NewTrigger(c.deps.Leecher, c.deps.Resolver, cache, TriggerConfig{
		Override: commandChat,
		Fallback: c.opts.CommandChat,
		Command:  c.opts.LeechCommand,
		IssuerID: c.opts.OwnerID,
	}, logger)

	engine := NewEngine(c.deps.Source, c.deps.Fetcher, c.deps.Sink, trigger, c.deps.Journal,
		c.deps.Pool, NewDedupStore(c.opts.DedupCapacity), EngineConfig{
			RunID:        id,
			UploadChat:   c.opts.UploadChat,
			PollInterval: c.opts.PollInterval,
			CaptionTag:   c.opts.CaptionTag,
		}, logger)

	return &run{
		id:          id,
		startedAt:   time.Now().UTC(),
		commandChat: commandChat,
		engine:      engine,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		reason:      "stopped",
	}
}

// loop runs the engine and, on every exit path, clears the run handle
// before signalling done.
func (c *Controller) loop(r *run) {
	logger := c.deps.Logger.With("run_id", r.id.String())

	defer close(r.done)
	defer func() {
		c.mu.Lock()
		if c.current == r {
			c.current = nil
		}
		c.mu.Unlock()
	}()
	defer c.journalStopped(r)
	defer func() {
		if p := recover(); p != nil {
			r.reason = "crashed"
			logger.Error("monitor: loop crashed", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	if c.deps.Journal != nil {
		err := c.deps.Journal.RecordRunStarted(r.ctx, types.RunRecord{
			ID:          r.id,
			UploadChat:  c.opts.UploadChat,
			CommandChat: r.commandChat,
			StartedAt:   r.startedAt,
		})
		if err != nil {
			logger.Warn("monitor: journal run start", "error", err)
		}
	}

	if err := r.engine.Run(r.ctx); err != nil && r.ctx.Err() == nil {
		r.reason = "failed"
		logger.Error("monitor: loop exited", "error", err)
	}
}

func (c *Controller) journalStopped(r *run) {
	if c.deps.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.deps.Journal.RecordRunStopped(ctx, r.id, r.reason); err != nil {
		c.deps.Logger.Warn("monitor: journal run stop", "run_id", r.id.String(), "error", err)
	}
}
