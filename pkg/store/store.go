// Package store is the persistence layer for the import core: a database/sql
// wrapper that speaks sqlite (modernc) and postgres (lib/pq), with record
// insert/query driven by the schema descriptors.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cairnhub/cairn/pkg/schema"
)

// Dialect selects driver-specific SQL.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Store wraps the database handle, dialect, and schema registry.
type Store struct {
	db      *sql.DB
	dialect Dialect
	schemas *schema.Registry
	log     *slog.Logger
}

// Open connects to the database named by driver ("sqlite" or "postgres")
// and dsn. The registry is consulted for all record operations.
func Open(driver, dsn string, reg *schema.Registry) (*Store, error) {
	var d Dialect
	switch driver {
	case "sqlite":
		d = DialectSQLite
	case "postgres":
		d = DialectPostgres
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	return &Store{
		db:      db,
		dialect: d,
		schemas: reg,
		log:     slog.With("component", "store"),
	}, nil
}

// NewWithDB wraps an existing handle; used by tests and the blob store.
func NewWithDB(db *sql.DB, dialect Dialect, reg *schema.Registry) *Store {
	return &Store{db: db, dialect: dialect, schemas: reg, log: slog.With("component", "store")}
}

// DB exposes the underlying handle for collaborators that manage their own
// SQL (the blob store).
func (s *Store) DB() *sql.DB { return s.db }

// Schemas returns the registry the store was opened with.
func (s *Store) Schemas() *schema.Registry { return s.schemas }

// Dialect returns the active dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Rebind converts ?-style placeholders to the dialect's form. Exposed for
// collaborators that manage their own SQL.
func (s *Store) Rebind(query string) string { return s.rebind(query) }

// rebind converts ?-style placeholders to the dialect's form.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// querier is the common surface of *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx is one transaction. A resolution pass runs entirely inside a single Tx
// and commits at the end; a root-import failure rolls the whole pass back.
type Tx struct {
	tx *sql.Tx
	st *Store
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	return &Tx{tx: tx, st: s}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("store: rollback: %w", err)
	}
	return nil
}

// Store returns the parent store.
func (t *Tx) Store() *Store { return t.st }

// Insert persists obj and its transient relationship children. See record.go.
func (t *Tx) Insert(ctx context.Context, sc *schema.Schema, obj any) error {
	return insertGraph(ctx, t.tx, t.st, sc, obj)
}

// QueryAll returns every record of sc whose columns equal eq.
func (t *Tx) QueryAll(ctx context.Context, sc *schema.Schema, eq map[string]any) ([]any, error) {
	return queryAll(ctx, t.tx, t.st, sc, eq)
}

// QueryOne returns the first record of sc matching eq, or nil.
func (t *Tx) QueryOne(ctx context.Context, sc *schema.Schema, eq map[string]any) (any, error) {
	return queryOne(ctx, t.tx, t.st, sc, eq)
}

// QueryWhere runs a custom WHERE clause (?-style placeholders) against sc's
// table and scans full records.
func (t *Tx) QueryWhere(ctx context.Context, sc *schema.Schema, where string, args ...any) ([]any, error) {
	return queryWhere(ctx, t.tx, t.st, sc, where, args...)
}

// Exec runs a raw statement inside the transaction with dialect rebinding.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.st.rebind(query), args...)
}

// QueryRow runs a raw single-row query inside the transaction with dialect
// rebinding. Used for RETURNING clauses.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.st.rebind(query), args...)
}

// Read-only variants on the store itself, outside any transaction.

// QueryAll returns every record of sc whose columns equal eq.
func (s *Store) QueryAll(ctx context.Context, sc *schema.Schema, eq map[string]any) ([]any, error) {
	return queryAll(ctx, s.db, s, sc, eq)
}

// QueryOne returns the first record of sc matching eq, or nil.
func (s *Store) QueryOne(ctx context.Context, sc *schema.Schema, eq map[string]any) (any, error) {
	return queryOne(ctx, s.db, s, sc, eq)
}

// QueryWhere runs a custom WHERE clause against sc's table.
func (s *Store) QueryWhere(ctx context.Context, sc *schema.Schema, where string, args ...any) ([]any, error) {
	return queryWhere(ctx, s.db, s, sc, where, args...)
}
