package cachestore

import (
	"context"
	"slices"
	"sync"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][][]float32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][][]float32),
	}
}

// Load returns a copy of the entry for docID.
func (s *MemoryStore) Load(ctx context.Context, docID string) ([][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[docID]
	if !ok {
		return nil, entities.ErrCacheMiss
	}
	return cloneEntry(e), nil
}

// Save stores a copy of embeddings under docID.
func (s *MemoryStore) Save(ctx context.Context, docID string, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[docID] = cloneEntry(embeddings)
	return nil
}

// Delete removes the entry for docID.
func (s *MemoryStore) Delete(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, docID)
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e [][]float32) [][]float32 {
	out := make([][]float32, len(e))
	for i, v := range e {
		out[i] = slices.Clone(v)
	}
	return out
}
