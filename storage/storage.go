// Package storage keeps a local SQLite history of the statements run through
// an executor. A History is an executor.Observer: attach it with
// executor.WithObserver and every completed or failed statement is recorded.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sheenazien8/sqpool/executor"
	"github.com/sheenazien8/sqpool/internal/version"
	"github.com/sheenazien8/sqpool/logger"
	_ "modernc.org/sqlite"
)

const (
	migrationsTable = "history_migrations"
	writeTimeout    = 5 * time.Second
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_query_history",
			Up: []string{`
				CREATE TABLE query_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					tx_id TEXT NOT NULL DEFAULT '',
					query TEXT NOT NULL,
					num_args INTEGER NOT NULL DEFAULT 0,
					executed_at INTEGER NOT NULL,
					duration_us INTEGER NOT NULL DEFAULT 0,
					rows_affected INTEGER NOT NULL DEFAULT 0,
					error TEXT
				)`,
				`CREATE INDEX idx_query_history_executed_at ON query_history(executed_at)`,
			},
			Down: []string{`DROP TABLE query_history`},
		},
		{
			Id: "2_query_history_version",
			Up: []string{`ALTER TABLE query_history ADD COLUMN version TEXT NOT NULL DEFAULT ''`},
			// SQLite before 3.35 cannot drop columns; the down step of the
			// first migration removes the table anyway.
			Down: []string{},
		},
	},
}

// Entry is one recorded statement
type Entry struct {
	ID           int64
	TxID         string
	Query        string
	NumArgs      int
	ExecutedAt   time.Time
	Duration     time.Duration
	RowsAffected int64
	Error        string
	Version      string
}

type entryRow struct {
	ID           int64   `db:"id"`
	TxID         string  `db:"tx_id"`
	Query        string  `db:"query"`
	NumArgs      int     `db:"num_args"`
	ExecutedAt   int64   `db:"executed_at"`
	DurationUS   int64   `db:"duration_us"`
	RowsAffected int64   `db:"rows_affected"`
	Error        *string `db:"error"`
	Version      string  `db:"version"`
}

func (r entryRow) entry() Entry {
	e := Entry{
		ID:           r.ID,
		TxID:         r.TxID,
		Query:        r.Query,
		NumArgs:      r.NumArgs,
		ExecutedAt:   time.UnixMilli(r.ExecutedAt).UTC(),
		Duration:     time.Duration(r.DurationUS) * time.Microsecond,
		RowsAffected: r.RowsAffected,
		Version:      r.Version,
	}
	if r.Error != nil {
		e.Error = *r.Error
	}
	return e
}

// History records executed statements in a SQLite database
type History struct {
	db *sqlx.DB
}

var _ executor.Observer = (*History)(nil)

// DefaultPath returns ~/.config/sqpool/history.db, creating the directory
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "sqpool")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date
func Open(ctx context.Context, path string) (*History, error) {
	if path == "" {
		return nil, errors.New("storage: empty history path")
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	db, err := sqlx.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	set := migrate.MigrationSet{TableName: migrationsTable}
	n, err := set.ExecContext(ctx, db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate %s: %w", path, err)
	}
	// One writer keeps observers from contending on the file lock.
	db.SetMaxOpenConns(1)

	logger.Debug("History opened", map[string]any{
		"path":       path,
		"migrations": n,
	})

	return &History{db: db}, nil
}

// Observe records EventQuery and EventError events that carry a statement.
// Write failures are logged, never returned to the executor.
func (h *History) Observe(ev executor.Event) {
	if ev.Statement == nil || (ev.Kind != executor.EventQuery && ev.Kind != executor.EventError) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := h.Add(ctx, ev); err != nil {
		logger.Warn("Failed to record query history", map[string]any{
			"error": err,
		})
	}
}

// Add stores one statement event
func (h *History) Add(ctx context.Context, ev executor.Event) error {
	if ev.Statement == nil {
		return errors.New("storage: event has no statement")
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	var affected int64
	if ev.Outcome != nil {
		affected = ev.Outcome.AffectedRows
	}
	var errText *string
	if ev.Err != nil {
		s := ev.Err.Error()
		errText = &s
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO query_history (tx_id, query, num_args, executed_at, duration_us, rows_affected, error, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TxID, ev.Statement.SQL(), ev.Statement.NumArgs(), at.UnixMilli(),
		ev.Duration.Microseconds(), affected, errText, version.Version,
	)
	return err
}

// Recent returns up to limit entries, most recent first
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []entryRow
	err := h.db.SelectContext(ctx, &rows,
		`SELECT id, tx_id, query, num_args, executed_at, duration_us, rows_affected, error, version
		FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

// Prune deletes all but the keep most recent entries and returns the number
// deleted
func (h *History) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("storage: negative keep %d", keep)
	}
	res, err := h.db.ExecContext(ctx,
		`DELETE FROM query_history WHERE id NOT IN (
			SELECT id FROM query_history ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the history database
func (h *History) Close() error {
	return h.db.Close()
}
