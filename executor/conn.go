package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Conn is a connection held exclusively until Release. Statements run on it
// never interleave with other callers.
type Conn struct {
	*sqlx.Conn

	e    *Executor
	txID string
	once sync.Once
	err  error
}

// Conn takes a connection out of the pool. The caller must Release it.
func (e *Executor) Conn(ctx context.Context) (*Conn, error) {
	return e.acquire(ctx, "")
}

func (e *Executor) acquire(ctx context.Context, txID string) (*Conn, error) {
	if st := e.db.Stats(); st.MaxOpenConnections > 0 && st.Idle == 0 && st.InUse >= st.MaxOpenConnections {
		e.observe(Event{Kind: EventEnqueue, TxID: txID})
	}

	c, err := e.db.Connx(ctx)
	if err != nil {
		err = fmt.Errorf("acquire connection: %w", err)
		e.observe(Event{Kind: EventError, TxID: txID, Err: err})
		return nil, err
	}

	e.observe(Event{Kind: EventAcquire, TxID: txID})
	return &Conn{Conn: c, e: e, txID: txID}, nil
}

// Release returns the connection to the pool. Calling it more than once is
// harmless.
func (c *Conn) Release() error {
	c.once.Do(func() {
		c.err = c.Conn.Close()
		c.e.observe(Event{Kind: EventRelease, TxID: c.txID, Err: c.err})
	})
	return c.err
}
