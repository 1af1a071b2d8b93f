package drivers

import (
	"database/sql"

	"github.com/sheenazien8/sqpool/config"
	"github.com/sheenazien8/sqpool/logger"
	_ "modernc.org/sqlite"
)

// SQLite is the dialect for SQLite databases served by modernc.org/sqlite
type SQLite struct{}

func (SQLite) Name() string       { return config.DriverSQLite }
func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) QuoteIdent(name string) string {
	return quoteIdent(name, `"`)
}

func (d SQLite) QuoteTable(name string) string {
	return quoteQualified(name, d.QuoteIdent)
}

func (SQLite) QuoteLiteral(v any) string {
	switch b := v.(type) {
	case bool:
		// SQLite has no boolean type
		if b {
			return "1"
		}
		return "0"
	}
	return formatLiteral(v, func(s string) string { return quoteString(s, false) })
}

func (SQLite) Placeholder(int) string { return "?" }

// BindsDDLDefaults is false: SQLite requires DEFAULT to be a constant.
func (SQLite) BindsDDLDefaults() bool { return false }

func (SQLite) DefaultTableOptions() string { return "" }

func (d SQLite) UpsertClause(primaryKey, update []string) string {
	return onConflictClause(d, primaryKey, update)
}

func (SQLite) ListTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// UseDatabase is unsupported: attach databases explicitly instead.
func (SQLite) UseDatabase(string) (string, bool) { return "", false }

func openSQLite(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.SQLiteDSN())
	if err != nil {
		return nil, err
	}

	logger.Debug("Opened SQLite database", map[string]any{
		"filePath": cfg.Database,
	})

	return db, nil
}
