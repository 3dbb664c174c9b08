package branch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stategraph/pkg/platform/sentinel"
)

// MemoryStore keeps branch records in a map. It doubles as the test fake.
type MemoryStore struct {
	mu       sync.RWMutex
	branches map[string]Branch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{branches: make(map[string]Branch)}
}

func (s *MemoryStore) Save(_ context.Context, b Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b.Name]; ok {
		return fmt.Errorf("branch %s: %w", b.Name, sentinel.ErrConflict)
	}
	s.branches[b.Name] = b
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name string) (Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.branches[name]; ok {
		return b, nil
	}
	return Branch{}, sentinel.ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

func (s *MemoryStore) UpdateSchemaHash(_ context.Context, name, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[name]
	if !ok {
		return sentinel.ErrNotFound
	}
	b.SchemaHash = hash
	s.branches[name] = b
	return nil
}
