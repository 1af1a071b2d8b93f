// Package executor sends built statements to a database/sql connection pool
// and normalizes what comes back. The pool itself, its connections and the
// wire protocol belong to database/sql and the registered driver; nothing
// here retries or serializes calls.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sheenazien8/sqpool/builder"
	"github.com/sheenazien8/sqpool/config"
	"github.com/sheenazien8/sqpool/drivers"
)

// Querier runs statements. *sqlx.DB, *sqlx.Conn, *sqlx.Tx and *Conn all
// satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// Executor builds and runs statements against one pool
type Executor struct {
	db       *sqlx.DB
	builder  *builder.Builder
	observer Observer
}

// Option configures an Executor
type Option func(*Executor)

// WithObserver replaces the default logging observer. Combine several with
// Observers.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithTableOptions overrides the dialect's default CREATE TABLE options
func WithTableOptions(opts string) Option {
	return func(e *Executor) {
		if opts != "" {
			e.builder = e.builder.WithTableOptions(opts)
		}
	}
}

// New wraps an already opened pool. The pool stays owned by the caller
// unless Close is called. A MySQL pool whose DSN does not set
// interpolateParams=true needs drivers.MySQL{LiteralDefaults: true}, or
// CreateTable fails on bound defaults.
func New(db *sql.DB, dialect drivers.Dialect, opts ...Option) *Executor {
	e := &Executor{
		db:       sqlx.NewDb(db, dialect.DriverName()),
		builder:  builder.New(dialect),
		observer: LogObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open opens the pool described by cfg and wraps it
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Executor, error) {
	db, dialect, err := drivers.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithTableOptions(cfg.TableOptions)}, opts...)
	return New(db, dialect, opts...), nil
}

// Builder returns the statement builder for the pool's dialect
func (e *Executor) Builder() *builder.Builder { return e.builder }

// DB returns the underlying pool
func (e *Executor) DB() *sqlx.DB { return e.db }

// Stats reports the pool's connection counters
func (e *Executor) Stats() sql.DBStats { return e.db.Stats() }

// Close closes the pool
func (e *Executor) Close() error { return e.db.Close() }

func (e *Executor) observe(ev Event) {
	if e.observer == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.observer.Observe(ev)
}

// Execute runs one statement on q, or on a connection taken from the pool
// for the duration of the call when q is nil
func (e *Executor) Execute(ctx context.Context, stmt builder.Statement, q Querier) (*QueryOutcome, error) {
	if q == nil {
		conn, err := e.acquire(ctx, "")
		if err != nil {
			return nil, &QueryError{SQL: stmt.SQL(), Args: stmt.Args(), Err: err}
		}
		defer conn.Release()
		q = conn
	}
	return e.run(ctx, q, stmt, "")
}

// Query is Execute for raw SQL on the pool
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (*QueryOutcome, error) {
	return e.Execute(ctx, builder.NewStatement(sql, args...), nil)
}

func (e *Executor) run(ctx context.Context, q Querier, stmt builder.Statement, txID string) (*QueryOutcome, error) {
	start := time.Now()

	var out *QueryOutcome
	var err error
	if returnsRows(stmt.SQL()) {
		out, err = query(ctx, q, stmt)
	} else {
		out, err = exec(ctx, q, stmt)
	}

	ev := Event{At: start, TxID: txID, Statement: &stmt, Duration: time.Since(start)}
	if err != nil {
		qerr := &QueryError{SQL: stmt.SQL(), Args: stmt.Args(), Err: err}
		ev.Kind = EventError
		ev.Err = qerr
		e.observe(ev)
		return nil, qerr
	}

	ev.Kind = EventQuery
	ev.Outcome = out
	e.observe(ev)
	return out, nil
}

// ExecuteTransaction runs stmts in order inside one transaction on one
// dedicated connection. Either every statement commits and one outcome per
// statement is returned, or the transaction is rolled back and only the
// error is returned. The connection is released in every case.
func (e *Executor) ExecuteTransaction(ctx context.Context, stmts []builder.Statement) ([]*QueryOutcome, error) {
	txID := uuid.NewString()

	conn, err := e.acquire(ctx, txID)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("begin transaction: %w", err)
		e.observe(Event{Kind: EventError, TxID: txID, Err: err})
		return nil, err
	}

	outcomes := make([]*QueryOutcome, 0, len(stmts))
	for _, stmt := range stmts {
		out, err := e.run(ctx, tx, stmt, txID)
		if err != nil {
			// a cancelled context has already rolled the transaction back
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = &RollbackError{Err: rbErr, Cause: err}
				e.observe(Event{Kind: EventError, TxID: txID, Err: err})
			}
			return nil, err
		}
		outcomes = append(outcomes, out)
	}

	if err := tx.Commit(); err != nil {
		err = fmt.Errorf("commit transaction: %w", err)
		e.observe(Event{Kind: EventError, TxID: txID, Err: err})
		return nil, err
	}
	return outcomes, nil
}
