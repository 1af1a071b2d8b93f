package drivers

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/sheenazien8/sqpool/config"
)

// PostgreSQL is the dialect for PostgreSQL. The pool is served by pgx through
// its database/sql adapter.
type PostgreSQL struct{}

func (PostgreSQL) Name() string       { return config.DriverPostgreSQL }
func (PostgreSQL) DriverName() string { return "pgx" }

func (PostgreSQL) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (PostgreSQL) QuoteTable(name string) string {
	return quoteQualified(name, pq.QuoteIdentifier)
}

func (PostgreSQL) QuoteLiteral(v any) string {
	return formatLiteral(v, pq.QuoteLiteral)
}

func (PostgreSQL) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// BindsDDLDefaults is false: utility statements such as CREATE TABLE cannot
// take parameters.
func (PostgreSQL) BindsDDLDefaults() bool { return false }

func (PostgreSQL) DefaultTableOptions() string { return "" }

func (d PostgreSQL) UpsertClause(primaryKey, update []string) string {
	return onConflictClause(d, primaryKey, update)
}

func (PostgreSQL) ListTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}

// UseDatabase is unsupported: a PostgreSQL session is bound to one database.
func (PostgreSQL) UseDatabase(string) (string, bool) { return "", false }

func openPostgreSQL(cfg *config.Config) (*sql.DB, error) {
	pc, err := cfg.PostgresConfig()
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*pc), nil
}

// onConflictClause is the upsert form shared by PostgreSQL and SQLite
func onConflictClause(d Dialect, primaryKey, update []string) string {
	keys := make([]string, len(primaryKey))
	for i, k := range primaryKey {
		keys[i] = d.QuoteIdent(k)
	}
	clause := "ON CONFLICT (" + strings.Join(keys, ", ") + ")"
	if len(update) == 0 {
		return clause + " DO NOTHING"
	}
	sets := make([]string, len(update))
	for i, c := range update {
		q := d.QuoteIdent(c)
		sets[i] = q + " = excluded." + q
	}
	return clause + " DO UPDATE SET " + strings.Join(sets, ", ")
}
