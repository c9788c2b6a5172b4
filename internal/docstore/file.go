package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"github.com/m3rciful/relaybot/core/logger"
)

// FileBackend keeps each document in <dir>/<name>.json and replaces it with
// an atomic rename on every write.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// Kind implements Backend.
func (b *FileBackend) Kind() string { return "file" }

// Path returns the file backing the named document.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Mutate implements Backend. An unreadable file is treated as empty and gets
// overwritten by the write that follows.
func (b *FileBackend) Mutate(ctx context.Context, name string, fn func([]byte) ([]byte, error)) error {
	current, err := b.Load(ctx, name)
	if err != nil {
		logger.Warn(ctx, "store", "storage.read_failed",
			slog.String("doc", name),
			slog.String("backend", b.Kind()),
			slog.String("err", err.Error()),
		)
		current = nil
	}
	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(b.Path(name), next, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", b.Path(name), err)
	}
	return nil
}
