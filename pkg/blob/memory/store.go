// Package memory provides an in-memory blob adapter used in tests.
// It implements the same prefix semantics as the production backends:
// Delete and Rename apply to the exact key and to every key nested under
// it as a prefix.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/excalidrive/excalidrive/pkg/blob"
)

// ProviderName is the storage provider tag recorded on items.
const ProviderName = "memory"

// Store is an in-memory implementation of blob.Adapter.
type Store struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	closed bool
}

// New creates an empty in-memory blob store.
func New() *Store {
	return &Store{
		blobs: make(map[string][]byte),
	}
}

// Save stores a copy of data under key.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return blob.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Read returns a copy of the content at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, blob.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, ok := s.blobs[key]
	if !ok {
		return nil, blob.ErrKeyNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the key and every key under it as a prefix.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return blob.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	delete(s.blobs, key)
	for k := range s.blobs {
		if strings.HasPrefix(k, key+"/") {
			delete(s.blobs, k)
		}
	}
	return nil
}

// Rename moves the key and every key under it as a prefix.
// Missing sources are a no-op.
func (s *Store) Rename(ctx context.Context, oldKey, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return blob.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if data, ok := s.blobs[oldKey]; ok {
		s.blobs[newKey] = data
		delete(s.blobs, oldKey)
	}
	for k, data := range s.blobs {
		if strings.HasPrefix(k, oldKey+"/") {
			s.blobs[newKey+k[len(oldKey):]] = data
			delete(s.blobs, k)
		}
	}
	return nil
}

// Provider returns the storage provider tag.
func (s *Store) Provider() string {
	return ProviderName
}

// HealthCheck always succeeds while the store is open.
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return blob.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Len returns the number of stored blobs (for testing).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Keys returns all stored keys (for testing).
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}

// Ensure Store implements blob.Adapter.
var _ blob.Adapter = (*Store)(nil)
