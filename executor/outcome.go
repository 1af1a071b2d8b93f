package executor

import (
	"context"
	"regexp"
	"strings"

	"github.com/sheenazien8/sqpool/builder"
)

// Record is one result row keyed by column name
type Record map[string]any

// QueryOutcome is the normalized result of one statement. Metadata the
// driver does not report stays zero.
type QueryOutcome struct {
	Columns []string
	Rows    []Record

	// ChangedRows counts rows whose values actually changed. None of the
	// database/sql drivers in use report it separately from AffectedRows.
	ChangedRows  int64
	AffectedRows int64
	InsertID     int64

	// Length is the number of rows returned.
	Length int
}

var (
	rowKeywords = []string{"SELECT", "SHOW", "WITH", "DESCRIBE", "DESC", "EXPLAIN", "PRAGMA", "VALUES", "TABLE"}
	returning   = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// returnsRows guesses from the statement text whether it yields a result
// set, which decides between QueryContext and ExecContext
func returnsRows(sql string) bool {
	s := skipLeadingComments(sql)
	word := s
	if i := strings.IndexAny(s, " \t\r\n("); i >= 0 {
		word = s[:i]
	}
	word = strings.ToUpper(word)
	for _, k := range rowKeywords {
		if word == k {
			return true
		}
	}
	return returning.MatchString(sql)
}

// skipLeadingComments drops whitespace, opening parentheses and any
// leading -- , # or /* */ comments
func skipLeadingComments(sql string) string {
	s := sql
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return ""
			}
			s = s[i+4:]
		default:
			return s
		}
	}
}

func exec(ctx context.Context, q Querier, stmt builder.Statement) (*QueryOutcome, error) {
	res, err := q.ExecContext(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return nil, err
	}

	out := &QueryOutcome{}
	if n, err := res.RowsAffected(); err == nil {
		out.AffectedRows = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.InsertID = id
	}
	return out, nil
}

func query(ctx context.Context, q Querier, stmt builder.Statement) (*QueryOutcome, error) {
	rows, err := q.QueryxContext(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &QueryOutcome{Columns: columns}
	for rows.Next() {
		rec := make(Record, len(columns))
		if err := rows.MapScan(rec); err != nil {
			return nil, err
		}
		for k, v := range rec {
			// text columns arrive as driver-owned bytes
			if b, ok := v.([]byte); ok {
				rec[k] = string(b)
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.Length = len(out.Rows)
	return out, nil
}
