package kv

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a thread-safe Store that keeps everything in a map.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
	closed  bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: map[string]string{},
	}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return "", false, err
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.entries[key] = value
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	delete(s.entries, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *InMemoryStore) snapshot() map[string]string {
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func (s *InMemoryStore) ensureOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

var _ Store = (*InMemoryStore)(nil)
