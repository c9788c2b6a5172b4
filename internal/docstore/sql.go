package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	selectDocument = `SELECT body FROM documents WHERE name = ?`
	upsertDocument = `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
)

// SQLBackend stores documents as rows of the documents table. Each mutation
// runs inside one transaction; on Postgres the row is locked with FOR UPDATE.
type SQLBackend struct {
	db        *sqlx.DB
	forUpdate bool
}

// NewSQLBackend wraps an open database that already has the documents table.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{
		db:        db,
		forUpdate: db.DriverName() == "postgres",
	}
}

// Kind implements Backend.
func (b *SQLBackend) Kind() string { return "sql:" + b.db.DriverName() }

// Load implements Backend.
func (b *SQLBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := b.db.GetContext(ctx, &body, b.db.Rebind(selectDocument), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return []byte(body), nil
}

// Mutate implements Backend.
func (b *SQLBackend) Mutate(ctx context.Context, name string, fn func([]byte) ([]byte, error)) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := selectDocument
	if b.forUpdate {
		query += " FOR UPDATE"
	}
	var (
		body    string
		current []byte
	)
	err = tx.GetContext(ctx, &body, tx.Rebind(query), name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("select document: %w", err)
	default:
		current = []byte(body)
	}

	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(upsertDocument), name, string(next), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
