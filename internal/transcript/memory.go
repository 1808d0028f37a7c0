package transcript

import (
	"context"
	"fmt"
	"sync"

	"psychsession/pkg"
)

// MemoryStore is an in-process DocumentStore used by tests and the demo
// CLI.  A mutex guards the map; per-session ordering is the caller's
// concern, as with any DocumentStore.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]pkg.TranscriptEntry
	order []string
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]pkg.TranscriptEntry)}
}

func (m *MemoryStore) Insert(_ context.Context, id string, entries []pkg.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return fmt.Errorf("session %s already exists", id)
	}
	m.docs[id] = append([]pkg.TranscriptEntry(nil), entries...)
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) ([]pkg.TranscriptEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return append([]pkg.TranscriptEntry(nil), entries...), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, entries []pkg.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.docs[id] = append([]pkg.TranscriptEntry(nil), entries...)
	return nil
}

func (m *MemoryStore) ListIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}
