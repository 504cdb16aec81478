package storage

import (
	"context"
	"errors"
	"sync"
)

// InMemoryStore is a thread-safe in-memory implementation of Store
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string // namespace -> key -> value
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string]map[string]string),
	}
}

func (s *InMemoryStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, errors.New("namespace is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[namespace][key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, namespace, key, value string) error {
	if namespace == "" {
		return errors.New("namespace is required")
	}
	if key == "" {
		return errors.New("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[namespace]; !ok {
		s.values[namespace] = make(map[string]string)
	}
	s.values[namespace][key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, namespace string, keys ...string) error {
	if namespace == "" {
		return errors.New("namespace is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.values[namespace]
	if !ok {
		return nil // Already doesn't exist, no error
	}
	for _, k := range keys {
		delete(ns, k)
	}

	// Clean up empty namespace map
	if len(ns) == 0 {
		delete(s.values, namespace)
	}
	return nil
}

// Keys returns a copy of the keys held for namespace.
func (s *InMemoryStore) Keys(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values[namespace]))
	for k := range s.values[namespace] {
		keys = append(keys, k)
	}
	return keys
}
