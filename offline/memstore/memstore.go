// Package memstore implements an in-memory snapshot store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Breeze/breeze.sharp-sub000"
)

// Store implements breeze.SnapshotStore backed by process memory.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ breeze.SnapshotStore = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store { return &Store{data: make(map[string][]byte)} }

// Get returns a copy of the snapshot stored under key, or nil.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = clone(value)
	return nil
}

// Delete removes the snapshot stored under key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// DeletePrefix removes every snapshot whose key starts with prefix.
func (s *Store) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
	return nil
}

// Clear removes every snapshot.
func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
	return nil
}

// Keys returns the stored keys matching prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
