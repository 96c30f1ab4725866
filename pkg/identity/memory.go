package identity

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store. It is used by --ephemeral runs and tests.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore { return &MemoryStore{} }

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id, s.id != "", nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string) error {
	id, err := normalize(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.id = id
	s.mu.Unlock()

	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.id = ""
	s.mu.Unlock()

	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
