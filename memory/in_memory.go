package memory

import (
	"sync"

	"github.com/hupe1980/legion/core"
)

// InMemoryStore is a volatile Store implementation keeping transcripts in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Slices are copied on the way in and out to
// prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string][]core.Message)}
}

// Load implements Store.
func (s *InMemoryStore) Load(conversationID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.conversations[conversationID]
	if !ok {
		return []core.Message{}, nil
	}

	out := make([]core.Message, len(stored))
	copy(out, stored)

	return out, nil
}

// Save implements Store.
func (s *InMemoryStore) Save(conversationID string, messages []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]core.Message, len(messages))
	copy(stored, messages)

	s.conversations[conversationID] = stored

	return nil
}

// Delete removes a conversation. Unknown ids are a no-op.
func (s *InMemoryStore) Delete(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)
}

// Len returns the number of stored conversations.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations)
}
