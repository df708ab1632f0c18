package monitor

import (
	"context"

	"github.com/jonathan/autoleech/internal/types"
)

// ChatResolver turns a destination reference into a chat descriptor.
type ChatResolver interface {
	GetChat(ctx context.Context, ref types.ChatRef) (types.ResolvedChat, error)
}

// ChatCache memoizes a single ChatRef resolution. Resolving a different
// reference replaces the cached entry. A fresh cache is created for every
// monitor run, so configuration changes apply on restart.
type ChatCache struct {
	key   types.ChatRef
	value types.ResolvedChat
	ok    bool
}

// Resolve returns the cached descriptor for ref or asks resolver for it.
// Failed resolutions are not cached.
func (c *ChatCache) Resolve(ctx context.Context, ref types.ChatRef, resolver ChatResolver) (types.ResolvedChat, error) {
	if c.ok && c.key == ref {
		return c.value, nil
	}
	chat, err := resolver.GetChat(ctx, ref)
	if err != nil {
		return types.ResolvedChat{}, err
	}
	if chat.Type == "" {
		chat.Type = types.InferChatType(chat.ID)
	}
	c.key, c.value, c.ok = ref, chat, true
	return chat, nil
}

// Reset drops the cached entry.
func (c *ChatCache) Reset() {
	*c = ChatCache{}
}
