package history

import (
	"context"
	"sync"

	"github.com/loquax-ai/loquax/pkg/llm"
)

// MemStore is an in-memory [Store] for tests and ephemeral deployments.
// Snapshots are lost when the process exits.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]llm.Message)}
}

// Load implements [Store].
func (m *MemStore) Load(_ context.Context, sessionID string) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.sessions[sessionID]
	out := make([]llm.Message, len(stored))
	copy(out, stored)
	return out, nil
}

// Save implements [Store].
func (m *MemStore) Save(_ context.Context, sessionID string, msgs []llm.Message) error {
	snapshot := make([]llm.Message, len(msgs))
	copy(snapshot, msgs)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = snapshot
	return nil
}

// Delete implements [Store].
func (m *MemStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
