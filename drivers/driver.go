package drivers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sheenazien8/sqpool/config"
	"github.com/sheenazien8/sqpool/logger"
)

// Dialect renders the parts of a statement that differ between database
// engines. Implementations are stateless and safe for concurrent use.
type Dialect interface {
	// Name is the config driver name (mysql, postgres, sqlite).
	Name() string
	// DriverName is the database/sql driver the pool is opened with.
	DriverName() string
	// QuoteIdent quotes a single identifier. Dots are part of the name.
	QuoteIdent(name string) string
	// QuoteTable quotes a table reference, each dot-separated part on its
	// own (schema.table).
	QuoteTable(name string) string
	// QuoteLiteral renders a scalar as an escaped SQL literal.
	QuoteLiteral(v any) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// BindsDDLDefaults reports whether DEFAULT values in CREATE TABLE may be
	// sent as bound arguments instead of literals.
	BindsDDLDefaults() bool
	// DefaultTableOptions is appended to CREATE TABLE when none are given.
	DefaultTableOptions() string
	// UpsertClause is appended to a multi-row INSERT so that rows colliding
	// on primaryKey overwrite the update columns.
	UpsertClause(primaryKey, update []string) string
	// ListTablesQuery returns a query yielding one table name per row.
	ListTablesQuery() string
	// UseDatabase returns the statement switching the current database, or
	// false when the engine has no such statement.
	UseDatabase(name string) (string, bool)
}

// ForName returns the dialect registered for a config driver name
func ForName(name string) (Dialect, error) {
	switch name {
	case config.DriverMySQL:
		return MySQL{}, nil
	case config.DriverPostgreSQL:
		return PostgreSQL{}, nil
	case config.DriverSQLite:
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unsupported driver: %s", name)
}

// Open opens the connection pool described by cfg and checks it with a ping
// bounded by the connect timeout. The returned pool is owned by the caller.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, Dialect, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	dialect, err := ForName(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err = openMySQL(cfg)
	case config.DriverPostgreSQL:
		db, err = openPostgreSQL(cfg)
	case config.DriverSQLite:
		db, err = openSQLite(cfg)
	}
	if err != nil {
		return nil, nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.DisplayString(), err)
	}

	logger.Debug("Opened connection pool", map[string]any{
		"target":       cfg.DisplayString(),
		"maxOpenConns": cfg.MaxOpenConns,
	})

	return db, dialect, nil
}
