package triktools

import (
	"context"
	"sync"

	"github.com/molefas/trikbridge/chatmodel"
)

type sessionKey struct {
	conversationID string
	trikID         string
}

// Sessions tracks the live session token per conversation and trik. One
// instance is shared by every tool built from the same catalog load, so
// a token returned by one tool's call is picked up by the next call to
// any tool in the same trik within the same conversation. Conversations
// are isolated from each other; a context without a conversation ID
// falls back to a single shared scope. Last writer wins; the server
// owns token lifetime.
type Sessions struct {
	mu     sync.Mutex
	tokens map[sessionKey]string
}

// NewSessions returns an empty session map.
func NewSessions() *Sessions {
	return &Sessions{
		tokens: make(map[sessionKey]string),
	}
}

// Get returns the current session token for a trik, empty when none.
func (s *Sessions) Get(ctx context.Context, trikID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[sessionKey{chatmodel.GetConversationID(ctx), trikID}]
}

// Set overwrites the trik's session token.
func (s *Sessions) Set(ctx context.Context, trikID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionKey{chatmodel.GetConversationID(ctx), trikID}] = sessionID
}

// Len returns the number of live tokens across all conversations.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
