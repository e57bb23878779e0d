// Package store keeps per-conversation message history for the agent.
package store

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/llms"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "store")

// MaxHistory is the number of messages kept per conversation. Older
// messages are discarded; the system prompt is not stored and is
// re-applied on every model call.
const MaxHistory = 50

// MessageStore keeps conversation history keyed by conversation ID.
type MessageStore interface {
	// Messages returns the stored history, oldest first.
	Messages(ctx context.Context, conversationID string) []llms.Message
	// Add appends messages, trimming history to the last MaxHistory.
	Add(ctx context.Context, conversationID string, msgs ...llms.Message) error
	// Reset drops the conversation's history.
	Reset(ctx context.Context, conversationID string) error
}
