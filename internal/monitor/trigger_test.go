package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/autoleech/internal/logging"
	"github.com/jonathan/autoleech/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrigger(l Leecher, r ChatResolver, cfg TriggerConfig) *Trigger {
	return NewTrigger(l, r, &ChatCache{}, cfg, logging.Discard())
}

func TestTrigger_NoDestinationIsNoop(t *testing.T) {
	l := &fakeLeecher{}
	r := &fakeResolver{}
	tr := newTestTrigger(l, r, TriggerConfig{})

	err := tr.Fire(context.Background(), "https://x/a.torrent", "A")
	require.NoError(t, err)
	assert.Empty(t, l.requests)
	assert.Equal(t, 0, r.callCount())
}

func TestTrigger_OverrideWinsOverFallback(t *testing.T) {
	l := &fakeLeecher{}
	r := &fakeResolver{chat: types.ResolvedChat{ID: 77, Type: types.ChatTypePrivate}}
	tr := newTestTrigger(l, r, TriggerConfig{Override: "77", Fallback: "@default", Command: "qbleech", IssuerID: 1})

	require.NoError(t, tr.Fire(context.Background(), "https://x/a.torrent", "Movie"))

	require.Len(t, r.calls, 1)
	assert.Equal(t, types.ChatRef("77"), r.calls[0])

	require.Len(t, l.requests, 1)
	req := l.requests[0]
	assert.Equal(t, int64(77), req.Chat.ID)
	assert.Equal(t, "https://x/a.torrent", req.Link)
	assert.Equal(t, "Movie", req.Title)
	assert.Equal(t, int64(1), req.IssuerID)
	assert.Equal(t, "/qbleech https://x/a.torrent", req.Text())
	assert.True(t, req.Qbit)
	assert.True(t, req.Leech)
	assert.NotEqual(t, uuid.Nil, req.ID)
}

func TestTrigger_FallbackUsedWithoutOverride(t *testing.T) {
	l := &fakeLeecher{}
	r := &fakeResolver{chat: types.ResolvedChat{ID: -1001}}
	tr := newTestTrigger(l, r, TriggerConfig{Fallback: "@default"})

	require.NoError(t, tr.Fire(context.Background(), "L", ""))
	require.Len(t, l.requests, 1)
	assert.Equal(t, types.ChatRef("@default"), r.calls[0])
	assert.Equal(t, DefaultTriggerTitle, l.requests[0].Title)
}

func TestTrigger_ResolveFailureAbandons(t *testing.T) {
	l := &fakeLeecher{}
	r := &fakeResolver{err: errors.New("chat not found")}
	tr := newTestTrigger(l, r, TriggerConfig{Override: "@missing"})

	err := tr.Fire(context.Background(), "L", "T")
	require.Error(t, err)
	assert.Empty(t, l.requests)
}

func TestTrigger_LeechErrorReturned(t *testing.T) {
	l := &fakeLeecher{err: errors.New("qbittorrent unreachable")}
	r := &fakeResolver{chat: types.ResolvedChat{ID: 1}}
	tr := newTestTrigger(l, r, TriggerConfig{Override: "1"})

	err := tr.Fire(context.Background(), "L", "T")
	assert.ErrorContains(t, err, "qbittorrent unreachable")
}

func TestTrigger_LeechPanicRecovered(t *testing.T) {
	l := &fakeLeecher{panicMsg: "nil map"}
	r := &fakeResolver{chat: types.ResolvedChat{ID: 1}}
	tr := newTestTrigger(l, r, TriggerConfig{Override: "1"})

	var err error
	assert.NotPanics(t, func() {
		err = tr.Fire(context.Background(), "L", "T")
	})
	assert.ErrorContains(t, err, "panicked")
}

func TestTrigger_ResolvesOncePerCache(t *testing.T) {
	l := &fakeLeecher{}
	r := &fakeResolver{chat: types.ResolvedChat{ID: 1}}
	tr := newTestTrigger(l, r, TriggerConfig{Override: "1"})

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Fire(context.Background(), "L", "T"))
	}
	assert.Equal(t, 1, r.callCount())
	assert.Len(t, l.requests, 3)
}
