package docstore

import (
	"context"
	"errors"
	"sync"
)

// MemoryBackend keeps documents in process memory. Used by tests and the
// "memory" storage backend.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// Kind implements Backend.
func (b *MemoryBackend) Kind() string { return "memory" }

// Load implements Backend.
func (b *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.docs[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Mutate implements Backend.
func (b *MemoryBackend) Mutate(_ context.Context, name string, fn func([]byte) ([]byte, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := fn(append([]byte(nil), b.docs[name]...))
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	b.docs[name] = append([]byte(nil), next...)
	return nil
}

// Set replaces the raw bytes of a document.
func (b *MemoryBackend) Set(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[name] = append([]byte(nil), data...)
}
