package store

import (
	"context"
	"sync"

	"github.com/molefas/trikbridge/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

// NewMemoryStore returns a process-local MessageStore.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(_ context.Context, conversationID string) []llms.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	msgs := m.storage[conversationID]
	out := make([]llms.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (m *inMemory) Add(_ context.Context, conversationID string, msgs ...llms.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	history := append(m.storage[conversationID], msgs...)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	m.storage[conversationID] = history
	return nil
}

func (m *inMemory) Reset(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, conversationID)
	}
	return nil
}
