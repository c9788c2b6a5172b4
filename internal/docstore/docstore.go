// Package docstore persists whole keyed documents. Every mutation reloads the
// latest stored snapshot, applies one change and rewrites the full document.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/m3rciful/relaybot/core/logger"
)

// ErrNoChange is returned by a mutation callback to skip the write.
var ErrNoChange = errors.New("docstore: no change")

// Backend stores raw named documents.
type Backend interface {
	// Kind names the storage technology for logs ("file", "sql", ...).
	Kind() string
	// Load returns the stored bytes, or nil when the document does not exist.
	Load(ctx context.Context, name string) ([]byte, error)
	// Mutate runs fn against the current bytes and stores its result atomically.
	// When fn returns ErrNoChange nothing is written and Mutate returns nil.
	Mutate(ctx context.Context, name string, fn func(current []byte) ([]byte, error)) error
}

// Document is a typed view over a named document holding {key: T} entries.
type Document[T any] struct {
	name    string
	backend Backend
	mu      sync.Mutex
}

// NewDocument binds a typed document to the backend.
func NewDocument[T any](backend Backend, name string) *Document[T] {
	return &Document[T]{name: name, backend: backend}
}

// Name returns the document name.
func (d *Document[T]) Name() string { return d.name }

// Snapshot returns the latest stored entries. Missing, unreadable or corrupt
// documents yield an empty map.
func (d *Document[T]) Snapshot(ctx context.Context) map[string]T {
	raw, err := d.backend.Load(ctx, d.name)
	if err != nil {
		logger.Warn(ctx, "store", "storage.read_failed",
			slog.String("doc", d.name),
			slog.String("backend", d.backend.Kind()),
			slog.String("err", err.Error()),
		)
		return make(map[string]T)
	}
	return d.decode(ctx, raw)
}

// Update applies fn to the latest stored entries under the document lock and
// persists the whole document. Returning ErrNoChange from fn skips the write.
func (d *Document[T]) Update(ctx context.Context, fn func(entries map[string]T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.backend.Mutate(ctx, d.name, func(current []byte) ([]byte, error) {
		entries := d.decode(ctx, current)
		if err := fn(entries); err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("docstore: encode %s: %w", d.name, err)
		}
		return data, nil
	})
	if err != nil {
		return fmt.Errorf("docstore: update %s: %w", d.name, err)
	}
	return nil
}

func (d *Document[T]) decode(ctx context.Context, raw []byte) map[string]T {
	entries := make(map[string]T)
	if len(raw) == 0 {
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn(ctx, "store", "storage.corrupt",
			slog.String("doc", d.name),
			slog.String("backend", d.backend.Kind()),
			slog.String("err", err.Error()),
		)
		return make(map[string]T)
	}
	if entries == nil {
		entries = make(map[string]T)
	}
	return entries
}
