package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/types"
)

type fakeSource struct {
	mu     sync.Mutex
	topics []types.Topic
	err    error
	calls  int
}

func (s *fakeSource) set(topics ...types.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = topics
}

func (s *fakeSource) ListTopics(context.Context) ([]types.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]types.Topic(nil), s.topics...), nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeFetcher returns the link itself as payload so the sink can tell files apart.
type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, link string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, link)
	if f.fail[link] {
		return nil, errors.New("download failed")
	}
	return []byte(link), nil
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type sentDoc struct {
	chat     types.ChatRef
	link     string
	filename string
	caption  string
}

type fakeSink struct {
	mu        sync.Mutex
	fail      map[string]bool
	panicOn   string
	attempts  []string
	delivered []sentDoc
}

func (s *fakeSink) SendDocument(_ context.Context, chat types.ChatRef, filename string, payload []byte, caption string) error {
	link := string(payload)
	if s.panicOn != "" && link == s.panicOn {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, link)
	if s.fail[link] {
		return errors.New("telegram http 500")
	}
	s.delivered = append(s.delivered, sentDoc{chat: chat, link: link, filename: filename, caption: caption})
	return nil
}

func (s *fakeSink) setFail(link string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail == nil {
		s.fail = map[string]bool{}
	}
	s.fail[link] = fail
}

func (s *fakeSink) deliveredLinks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.delivered))
	for _, d := range s.delivered {
		out = append(out, d.link)
	}
	return out
}

func (s *fakeSink) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

type fakeResolver struct {
	mu    sync.Mutex
	chat  types.ResolvedChat
	err   error
	calls []types.ChatRef
}

func (r *fakeResolver) GetChat(_ context.Context, ref types.ChatRef) (types.ResolvedChat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ref)
	if r.err != nil {
		return types.ResolvedChat{}, r.err
	}
	return r.chat, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeLeecher struct {
	mu       sync.Mutex
	err      error
	panicMsg string
	requests []types.TriggerRequest
}

func (l *fakeLeecher) Leech(_ context.Context, req types.TriggerRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.panicMsg != "" {
		panic(l.panicMsg)
	}
	return l.err
}

func (l *fakeLeecher) links() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.requests))
	for _, r := range l.requests {
		out = append(out, r.Link)
	}
	return out
}

type fakeJournal struct {
	mu         sync.Mutex
	started    []types.RunRecord
	stopped    map[uuid.UUID]string
	deliveries []types.Delivery
}

func (j *fakeJournal) RecordRunStarted(_ context.Context, run types.RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, run)
	return nil
}

func (j *fakeJournal) RecordRunStopped(_ context.Context, runID uuid.UUID, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped == nil {
		j.stopped = map[uuid.UUID]string{}
	}
	j.stopped[runID] = reason
	return nil
}

func (j *fakeJournal) RecordDelivery(_ context.Context, d types.Delivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deliveries = append(j.deliveries, d)
	return nil
}

func (j *fakeJournal) startedRuns() []types.RunRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]types.RunRecord(nil), j.started...)
}

func (j *fakeJournal) stopReason(id uuid.UUID) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.stopped[id]
	return r, ok
}

func torrent(title, link string) types.File {
	return types.File{Kind: types.FileKindTorrent, Title: title, Link: link, Size: "1.4GB"}
}

func topic(url string, files ...types.File) types.Topic {
	t := types.Topic{TopicURL: url, Files: files}
	if len(files) > 0 {
		t.Title = files[0].Title
		t.Size = files[0].Size
	}
	return t
}
