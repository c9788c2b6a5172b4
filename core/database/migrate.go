package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/migrations"
)

const (
	migrateWait    = 30 * time.Second
	previewEntries = 6
)

// RunMigrations applies every pending up migration. The embedded set is used
// unless cfg.MigrationsPath points at a directory.
func RunMigrations(cfg Config) error {
	ctx := logger.Background()
	if err := WaitForPostgres(cfg.URL(), migrateWait); err != nil {
		logger.Error(ctx, "db.migrate", "wait", slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	fsys, origin, err := migrationSource(cfg.MigrationsPath)
	if err != nil {
		logger.Error(ctx, "db.migrate", "resolve", slog.String("err", err.Error()))
		return err
	}
	files := listMigrations(fsys)
	logger.Debug(ctx, "db.migrate", "resolve", append(
		[]slog.Attr{slog.String("path", origin)},
		files.attrs()...,
	)...)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.URL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "init", slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := files.between(uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "applied", applied.attrs()...)
	}
	logger.Info(ctx, "db.migrate", "summary",
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

// migrationSource returns the filesystem holding the migrations and a label
// for logs.
func migrationSource(path string) (fs.FS, string, error) {
	if strings.TrimSpace(path) == "" {
		return migrations.FS, "embedded", nil
	}
	dir, err := resolveMigrationsPath(path)
	if err != nil {
		return nil, "", err
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, "", fmt.Errorf("migrations directory %s: not found", dir)
	}
	return os.DirFS(dir), dir, nil
}

func resolveMigrationsPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, path), nil
}

// migrationFiles are up migration names sorted by version.
type migrationFiles []string

func listMigrations(fsys fs.FS) migrationFiles {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil
	}
	slices.Sort(names)
	return names
}

// between returns the files with from < version <= to.
func (f migrationFiles) between(from, to uint64) migrationFiles {
	var out migrationFiles
	for _, name := range f {
		if v := parseVersion(name); v > from && v <= to {
			out = append(out, name)
		}
	}
	return out
}

func (f migrationFiles) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(f))}
	preview, truncated := logger.SummarizeStrings(f, previewEntries)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}
