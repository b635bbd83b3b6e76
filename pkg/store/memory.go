package store

import (
	"context"
	"errors"
	"sync"
)

var errForcedFailure = errors.New("store: forced failure")

// MemoryStore is an in-process Store for tests and memory-only mode.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string

	// FailAll forces every operation to fail, for exercising the
	// fail-open paths of the layers above.
	FailAll bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailAll {
		return "", errForcedFailure
	}
	value, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errForcedFailure
	}
	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errForcedFailure
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) GetAllKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailAll {
		return nil, errForcedFailure
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) MultiGet(ctx context.Context, keys []string) ([]Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailAll {
		return nil, errForcedFailure
	}
	values := make([]Value, len(keys))
	for i, key := range keys {
		if v, ok := s.entries[key]; ok {
			values[i] = Value{Value: v, OK: true}
		}
	}
	return values, nil
}

func (s *MemoryStore) MultiSet(ctx context.Context, pairs []Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errForcedFailure
	}
	for _, p := range pairs {
		s.entries[p.Key] = p.Value
	}
	return nil
}

func (s *MemoryStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errForcedFailure
	}
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored keys (test helper).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
