package executor

import (
	"context"
	"fmt"

	"github.com/sheenazien8/sqpool/builder"
)

// ExecMode chooses how a multi-statement operation is executed
type ExecMode int

const (
	// Atomic runs all statements in one transaction. Engines that commit
	// DDL implicitly (MySQL) still stop at the first failure.
	Atomic ExecMode = iota
	// Independent runs each statement on its own pooled connection,
	// stopping at the first failure. Use it when one transaction would be
	// too large.
	Independent
)

func (m ExecMode) String() string {
	switch m {
	case Atomic:
		return "atomic"
	case Independent:
		return "independent"
	}
	return fmt.Sprintf("ExecMode(%d)", int(m))
}

// CreateTable creates the table described by def together with its unique
// indexes
func (e *Executor) CreateTable(ctx context.Context, def builder.TableDefinition, mode ExecMode) ([]*QueryOutcome, error) {
	stmts, err := e.builder.CreateTable(def)
	if err != nil {
		return nil, err
	}
	return e.executeAll(ctx, stmts, mode)
}

func (e *Executor) executeAll(ctx context.Context, stmts []builder.Statement, mode ExecMode) ([]*QueryOutcome, error) {
	switch mode {
	case Atomic:
		return e.ExecuteTransaction(ctx, stmts)
	case Independent:
		outcomes := make([]*QueryOutcome, 0, len(stmts))
		for _, stmt := range stmts {
			out, err := e.Execute(ctx, stmt, nil)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, out)
		}
		return outcomes, nil
	}
	return nil, fmt.Errorf("unknown exec mode: %v", mode)
}

// DropTable drops table if it exists
func (e *Executor) DropTable(ctx context.Context, table string) (*QueryOutcome, error) {
	stmt, err := e.builder.DropTable(table, true)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, stmt, nil)
}

// ListTables returns the table names of the current database
func (e *Executor) ListTables(ctx context.Context) ([]string, error) {
	out, err := e.Execute(ctx, e.builder.ListTables(), nil)
	if err != nil {
		return nil, err
	}
	if len(out.Columns) == 0 {
		return nil, nil
	}

	col := out.Columns[0]
	tables := make([]string, 0, len(out.Rows))
	for _, row := range out.Rows {
		tables = append(tables, fmt.Sprint(row[col]))
	}
	return tables, nil
}

// UseDatabase switches the current database. On the pool (q nil) this only
// affects the connection that happens to run it; pass a Conn to make it
// stick for subsequent statements on that connection.
func (e *Executor) UseDatabase(ctx context.Context, name string, q Querier) (*QueryOutcome, error) {
	stmt, err := e.builder.UseDatabase(name)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, stmt, q)
}

// MultiInsert inserts rows in one statement
func (e *Executor) MultiInsert(ctx context.Context, table string, columns []string, rows [][]any) (*QueryOutcome, error) {
	stmt, err := e.builder.MultiInsert(table, columns, rows)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, stmt, nil)
}

// MultiUpdate upserts rows in one statement, overwriting the non-key columns
// of rows whose primary key already exists
func (e *Executor) MultiUpdate(ctx context.Context, table string, primaryKey, columns []string, rows [][]any) (*QueryOutcome, error) {
	stmt, err := e.builder.MultiUpdate(table, primaryKey, columns, rows)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, stmt, nil)
}
