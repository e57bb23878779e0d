// Package chatmodel carries per-conversation identity through
// context.Context, so collaborators deep in the call chain (session
// tracking, passthrough delivery) can key their state by conversation
// instead of sharing it process-wide.
package chatmodel

import (
	"context"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/google/uuid"
)

// ChatContext is the per-conversation context for the agent.
type ChatContext interface {
	GetConversationID() string
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	conversationID string
	metadata       sync.Map
}

func (c *chatContext) GetConversationID() string {
	return c.conversationID
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a ChatContext with the given conversation ID,
// generating one when empty.
func NewChatContext(conversationID string) ChatContext {
	return &chatContext{
		conversationID: values.StringsCoalesce(conversationID, NewConversationID()),
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetConversationID retrieves the conversation ID from the provided
// context, empty when none is set.
func GetConversationID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetConversationID()
	}
	return ""
}

// NewConversationID generates a new conversation ID.
func NewConversationID() string {
	return uuid.New().String()
}
