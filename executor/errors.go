package executor

import (
	"fmt"
)

// QueryError is a driver-reported failure of one statement. It keeps the
// statement for diagnostics and unwraps to the driver error.
type QueryError struct {
	SQL  string
	Args []any
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v (query: %s)", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RollbackError is returned when a failed transaction could not be rolled
// back either. The connection may be left in an unknown state, so the
// rollback failure comes first; Cause is the error that triggered it.
type RollbackError struct {
	Err   error
	Cause error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v (after: %v)", e.Err, e.Cause)
}

func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}
