package drivers

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	mysqlDupEntry             = 1062
	mysqlDupEntryWithKeyName  = 1586
	mysqlNoReferencedRow      = 1452
	mysqlRowIsReferenced      = 1451
	pgUniqueViolation         = "23505"
	pgForeignKeyViolation     = "23503"
	pgConnectionExceptionCode = "08"
)

// IsDuplicateKey reports whether err, or any error it wraps, is a
// primary-key or unique-index collision
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry || me.Number == mysqlDupEntryWithKeyName
	}
	if code, ok := postgresCode(err); ok {
		return code == pgUniqueViolation
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// IsForeignKeyViolation reports whether err is a foreign-key constraint
// failure
func IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlNoReferencedRow || me.Number == mysqlRowIsReferenced
	}
	if code, ok := postgresCode(err); ok {
		return code == pgForeignKeyViolation
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// IsConnectionError reports whether err means the connection itself is
// unusable rather than the statement being wrong
func IsConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if code, ok := postgresCode(err); ok {
		return len(code) >= 2 && code[:2] == pgConnectionExceptionCode
	}
	var pgConnErr *pgconn.ConnectError
	return errors.As(err, &pgConnErr)
}

func postgresCode(err error) (string, bool) {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code, true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return string(pqe.Code), true
	}
	return "", false
}
