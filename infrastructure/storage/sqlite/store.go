// Package sqlite provides a durable ports.Store on top of SQLite.
//
// Every collection lives in a single records table keyed by
// (collection, id). A global sequence number preserves insertion order for
// Scan and survives upserts, so Put never moves a record.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/ahrav/go-panel/infrastructure/storage/sqlite/migrations"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store persists panel records in SQLite.
//
// The pool is limited to one connection. That serializes writers, which
// makes Atomically blocks mutually exclusive without extra locking. As a
// consequence fn passed to Atomically must only use its tx argument.
type Store struct {
	sqlDB *sql.DB
	queries
}

// Open opens the database at path, creating it if needed, and applies the
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, queries: queries{db: sqlDB}}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Replace implements ports.Collections. Outside Atomically it runs in its own
// transaction so readers never observe a half-replaced collection.
func (s *Store) Replace(ctx context.Context, collection string, records []ports.Record) error {
	return s.Atomically(ctx, func(tx ports.Collections) error {
		return tx.Replace(ctx, collection, records)
	})
}

// Atomically implements ports.Store by running fn inside a SQL transaction.
func (s *Store) Atomically(ctx context.Context, fn func(tx ports.Collections) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return ports.NewStorageError("", "Atomically", fmt.Errorf("begin: %w", err))
	}
	if err := fn(queries{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return ports.NewStorageError("", "Atomically", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// execer is the subset shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ports.Collections against either the pool or a
// transaction.
type queries struct {
	db execer
}

const nextSeq = `(SELECT COALESCE(MAX(seq), 0) + 1 FROM records)`

func (q queries) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := q.db.QueryRowContext(
		ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewRecordError(collection, id, "Get", domain.ErrNotFound)
	}
	if err != nil {
		return nil, ports.NewStorageError(collection, "Get", err)
	}
	return data, nil
}

func (q queries) Scan(ctx context.Context, collection string) ([]ports.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT id, data FROM records WHERE collection = ? ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, ports.NewStorageError(collection, "Scan", err)
	}
	defer rows.Close()

	out := []ports.Record{}
	for rows.Next() {
		var rec ports.Record
		if err := rows.Scan(&rec.ID, &rec.Data); err != nil {
			return nil, ports.NewStorageError(collection, "Scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewStorageError(collection, "Scan", err)
	}
	return out, nil
}

func (q queries) Insert(ctx context.Context, collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO records (collection, id, seq, data) VALUES (?, ?, `+nextSeq+`, ?)`,
		collection, id, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewRecordError(collection, id, "Insert", domain.ErrDuplicate)
		}
		return ports.NewStorageError(collection, "Insert", err)
	}
	return nil
}

func (q queries) Put(ctx context.Context, collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO records (collection, id, seq, data) VALUES (?, ?, `+nextSeq+`, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, data,
	)
	if err != nil {
		return ports.NewStorageError(collection, "Put", err)
	}
	return nil
}

func (q queries) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return ports.NewStorageError(collection, "Delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ports.NewStorageError(collection, "Delete", err)
	}
	if n == 0 {
		return domain.NewRecordError(collection, id, "Delete", domain.ErrNotFound)
	}
	return nil
}

// Replace on queries assumes it already runs inside a transaction.
func (q queries) Replace(ctx context.Context, collection string, records []ports.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return ports.NewStorageError(collection, "Replace", err)
	}
	for _, rec := range records {
		if err := q.Put(ctx, collection, rec.ID, rec.Data); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
