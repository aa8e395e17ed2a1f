// Package storage is the SQLite ledger backend. Amounts are stored as integer
// cents and timestamps as RFC 3339 text next to a YYYY-MM-DD day column used
// for window queries.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backoffice/internal/core"

	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Accounts() *Accounts     { return &Accounts{db: r.db} }
func (r *SQLiteRepository) Categories() *Categories { return &Categories{db: r.db} }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatDay(t time.Time) string { return t.UTC().Format(dayLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// windowArgs turns a range into day bounds; open bounds become empty strings.
func windowArgs(window core.DateRange) (from, to string) {
	if !window.From.IsZero() {
		from = formatDay(window.From)
	}
	if !window.To.IsZero() {
		to = formatDay(window.To)
	}
	return from, to
}

// dayClause filters a day column by the two bound placeholders.
func dayClause(col string) string {
	return fmt.Sprintf("(?1 = '' OR %[1]s >= ?1) AND (?2 = '' OR %[1]s <= ?2)", col)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
