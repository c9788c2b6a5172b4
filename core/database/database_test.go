package database

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/relaybot/core/logger"
)

func TestConfigDSNs(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "relay", SSLMode: "disable"}
	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=relay sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:pw@db:5432/relay?sslmode=disable", cfg.URL())
}

func TestMigrationSource(t *testing.T) {
	fsys, origin, err := migrationSource("")
	require.NoError(t, err)
	assert.Equal(t, "embedded", origin)
	files := listMigrations(fsys)
	require.NotEmpty(t, files)
	assert.Equal(t, "000001_create_documents.up.sql", files[0])

	dir := t.TempDir()
	_, origin, err = migrationSource(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, origin)

	_, _, err = migrationSource(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err := resolveMigrationsPath("sql")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "sql"), got)
}

func TestMigrationFileAccounting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_create_documents.up.sql",
		"000001_create_documents.down.sql",
		"000002_add_index.up.sql",
		"000003_more.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files := listMigrations(os.DirFS(dir))
	assert.Equal(t, migrationFiles{
		"000001_create_documents.up.sql",
		"000002_add_index.up.sql",
		"000003_more.up.sql",
	}, files)

	assert.Len(t, files.between(1, 3), 2)
	assert.Empty(t, files.between(3, 3))
	assert.Equal(t, migrationFiles{"000002_add_index.up.sql"}, files.between(1, 2))
	assert.Equal(t, uint64(0), parseVersion("bogus.up.sql"))
	assert.Equal(t, uint64(2), parseVersion("000002_add_index.up.sql"))
}

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "relay.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM documents"))
	assert.Zero(t, count)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenSQLiteLogsDottedEvent(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { logger.L = prev })

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Contains(t, buf.String(), `"event":"db.connected"`)
	assert.Contains(t, buf.String(), `"component":"db"`)
}
