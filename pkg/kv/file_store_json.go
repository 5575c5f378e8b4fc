package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// JSONFileStore persists all entries as a single JSON object on disk.
// Every mutation rewrites the file through a temp file + rename.
type JSONFileStore struct {
	mu     sync.Mutex
	path   string
	store  *InMemoryStore
	closed bool
}

func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, errors.New("json file store path is required")
	}
	s := &JSONFileStore{
		path:  path,
		store: NewInMemoryStore(),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONFileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return "", false, err
	}
	return s.store.Get(ctx, key)
}

func (s *JSONFileStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		return err
	}
	return s.persistLocked()
}

func (s *JSONFileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return err
	}
	return s.persistLocked()
}

func (s *JSONFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *JSONFileStore) loadFromDisk() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "could not read %s", s.path)
	}
	if len(b) == 0 {
		return nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal(b, &entries); err != nil {
		return errors.Wrapf(err, "could not decode %s", s.path)
	}
	s.store.entries = entries
	return nil
}

func (s *JSONFileStore) persistLocked() error {
	b, err := json.MarshalIndent(s.store.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func (s *JSONFileStore) ensureOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

var _ Store = (*JSONFileStore)(nil)
