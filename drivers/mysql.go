package drivers

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sheenazien8/sqpool/config"
)

// DefaultMySQLTableOptions is the storage preset used when a table
// definition carries no options of its own.
const DefaultMySQLTableOptions = "ENGINE=InnoDB ROW_FORMAT=COMPRESSED DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci"

// MySQL is the dialect for MySQL and MariaDB
type MySQL struct {
	// LiteralDefaults renders CREATE TABLE defaults as escaped literals.
	// Set it for pools whose DSN lacks interpolateParams=true: the server
	// cannot prepare DDL with placeholders.
	LiteralDefaults bool
}

func (MySQL) Name() string       { return config.DriverMySQL }
func (MySQL) DriverName() string { return "mysql" }

func (MySQL) QuoteIdent(name string) string {
	return quoteIdent(name, "`")
}

func (d MySQL) QuoteTable(name string) string {
	return quoteQualified(name, d.QuoteIdent)
}

func (MySQL) QuoteLiteral(v any) string {
	return formatLiteral(v, func(s string) string { return quoteString(s, true) })
}

func (MySQL) Placeholder(int) string { return "?" }

// BindsDDLDefaults is true unless LiteralDefaults is set. Binding relies on
// client-side placeholder interpolation, which Open always enables.
func (d MySQL) BindsDDLDefaults() bool { return !d.LiteralDefaults }

func (MySQL) DefaultTableOptions() string { return DefaultMySQLTableOptions }

func (d MySQL) UpsertClause(primaryKey, update []string) string {
	if len(update) == 0 {
		// nothing to overwrite; assign a key column to itself so the
		// statement still succeeds on collision
		k := d.QuoteIdent(primaryKey[0])
		return "ON DUPLICATE KEY UPDATE " + k + " = " + k
	}
	sets := make([]string, len(update))
	for i, c := range update {
		q := d.QuoteIdent(c)
		sets[i] = q + " = VALUES(" + q + ")"
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func (MySQL) ListTablesQuery() string {
	return "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME"
}

func (d MySQL) UseDatabase(name string) (string, bool) {
	return "USE " + d.QuoteIdent(name), true
}

func openMySQL(cfg *config.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg.MySQLConfig())
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
