package history

import (
	"context"
	"fmt"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the history in process memory, newest first.
type MemoryStore struct {
	mu         sync.RWMutex
	maxEntries int
	entries    map[Kind][]Entry
}

// NewMemoryStore creates a store that keeps at most maxEntries per kind (0 = unbounded).
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[Kind][]Entry),
	}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	if !entry.Kind.IsValid() {
		return fmt.Errorf("invalid history entry kind: %q", entry.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]Entry{entry}, s.entries[entry.Kind]...)
	if s.maxEntries > 0 && len(list) > s.maxEntries {
		list = list[:s.maxEntries]
	}
	s.entries[entry.Kind] = list
	return nil
}

func (s *MemoryStore) List(_ context.Context, kind Kind, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[kind]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	res := make([]Entry, len(list))
	copy(res, list)
	return res, nil
}
