package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/relaybot/core/database"
)

type entry struct {
	Count int `json:"count"`
}

func increment(key string) func(map[string]entry) error {
	return func(entries map[string]entry) error {
		e := entries[key]
		e.Count++
		entries[key] = e
		return nil
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": NewSQLBackend(db),
	}
}

func TestDocumentMissingIsEmpty(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument[entry](backend, "users")
			assert.Empty(t, doc.Snapshot(context.Background()))
		})
	}
}

func TestDocumentUpdatePersists(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument[entry](backend, "users")
			require.NoError(t, doc.Update(ctx, increment("1")))
			require.NoError(t, doc.Update(ctx, increment("1")))
			require.NoError(t, doc.Update(ctx, increment("2")))

			reopened := NewDocument[entry](backend, "users")
			snap := reopened.Snapshot(ctx)
			assert.Equal(t, map[string]entry{"1": {Count: 2}, "2": {Count: 1}}, snap)
		})
	}
}

func TestDocumentNoChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument[entry](backend, "conversations")
			err := doc.Update(ctx, func(map[string]entry) error { return ErrNoChange })
			require.NoError(t, err)

			raw, err := backend.Load(ctx, "conversations")
			require.NoError(t, err)
			assert.Nil(t, raw, "nothing must be written")
		})
	}
}

func TestDocumentCallbackErrorPropagates(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")
	doc := NewDocument[entry](NewMemoryBackend(), "users")

	err := doc.Update(ctx, func(map[string]entry) error { return sentinel })
	require.ErrorIs(t, err, sentinel)
	assert.Empty(t, doc.Snapshot(ctx))
}

func TestDocumentCorruptSelfHeals(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		backend := NewMemoryBackend()
		backend.Set("users", []byte("{not json"))
		doc := NewDocument[entry](backend, "users")

		assert.Empty(t, doc.Snapshot(ctx))
		require.NoError(t, doc.Update(ctx, increment("7")))
		assert.Equal(t, map[string]entry{"7": {Count: 1}}, doc.Snapshot(ctx))
	})

	t.Run("file", func(t *testing.T) {
		backend, err := NewFileBackend(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(backend.Path("users"), []byte("]]"), 0o644))
		doc := NewDocument[entry](backend, "users")

		assert.Empty(t, doc.Snapshot(ctx))
		require.NoError(t, doc.Update(ctx, increment("7")))

		data, err := os.ReadFile(backend.Path("users"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"7":{"count":1}}`, string(data))
	})

	t.Run("null", func(t *testing.T) {
		backend := NewMemoryBackend()
		backend.Set("users", []byte("null"))
		doc := NewDocument[entry](backend, "users")
		require.NoError(t, doc.Update(ctx, increment("1")))
		assert.Equal(t, map[string]entry{"1": {Count: 1}}, doc.Snapshot(ctx))
	})
}

func TestDocumentConcurrentDistinctKeys(t *testing.T) {
	ctx := context.Background()
	const workers = 20
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument[entry](backend, "users")
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					assert.NoError(t, doc.Update(ctx, increment(fmt.Sprint(id))))
				}(i)
			}
			wg.Wait()

			snap := doc.Snapshot(ctx)
			require.Len(t, snap, workers)
			for i := 0; i < workers; i++ {
				assert.Equal(t, 1, snap[fmt.Sprint(i)].Count)
			}
		})
	}
}

// Two Document values sharing one backend model two handles onto the same
// stored document; the backend-level reload keeps both writers' entries.
func TestDocumentReloadsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := NewDocument[entry](backend, "users")
			b := NewDocument[entry](backend, "users")
			require.NoError(t, a.Update(ctx, increment("a")))
			require.NoError(t, b.Update(ctx, increment("b")))
			require.NoError(t, a.Update(ctx, increment("a")))

			assert.Equal(t, map[string]entry{"a": {Count: 2}, "b": {Count: 1}}, b.Snapshot(ctx))
		})
	}
}
