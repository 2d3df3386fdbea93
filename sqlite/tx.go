package sqlite

import (
	"context"
	"runtime"
	"sync"

	"github.com/tessera-db/tessera"
)

// Tx is an open SQLite transaction. It holds the connection's exclusive
// guard from BEGIN until its terminal state, so no other operation can
// interleave on the connection while the transaction is open.
type Tx struct {
	conn     *Conn
	mu       sync.Mutex
	finished bool
}

// BeginTransaction starts a transaction and transfers the connection guard
// to it.
func (c *Conn) BeginTransaction(ctx context.Context) (tessera.Transaction, error) {
	if c.closed.Load() {
		return nil, tessera.NewError(tessera.ErrConnection, "connection is closed")
	}
	if err := c.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	if _, err := c.executeLocked("BEGIN", nil); err != nil {
		c.guard.Release()
		return nil, err
	}
	tx := &Tx{conn: c}
	// Backstop for abandoned transactions; Close is the supported path.
	runtime.SetFinalizer(tx, func(t *Tx) { t.Close() })
	return tx, nil
}

// Query runs a query inside the transaction.
func (tx *Tx) Query(ctx context.Context, sql string, params []tessera.Value) (*tessera.QueryResult, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.finished {
		return nil, tessera.NewError(tessera.ErrQuery, "transaction already committed or rolled back")
	}
	return tx.conn.queryLocked(sql, params)
}

// Execute runs a statement inside the transaction.
func (tx *Tx) Execute(ctx context.Context, sql string, params []tessera.Value) (*tessera.StatementResult, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.finished {
		return nil, tessera.NewError(tessera.ErrQuery, "transaction already committed or rolled back")
	}
	return tx.conn.executeLocked(sql, params)
}

// Commit commits and releases the connection guard.
func (tx *Tx) Commit(ctx context.Context) error {
	return tx.finish("COMMIT")
}

// Rollback rolls back and releases the connection guard.
func (tx *Tx) Rollback(ctx context.Context) error {
	return tx.finish("ROLLBACK")
}

// Close rolls back if the transaction is still open. Safe to call after a
// terminal state; the rollback is synchronous so the connection is clean
// before Close returns.
func (tx *Tx) Close() error {
	tx.mu.Lock()
	open := !tx.finished
	tx.mu.Unlock()
	if !open {
		return nil
	}
	tx.conn.log.Warn().Msg("transaction abandoned without commit or rollback, rolling back")
	return tx.finish("ROLLBACK")
}

func (tx *Tx) finish(sql string) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.finished {
		return tessera.NewError(tessera.ErrQuery, "transaction already committed or rolled back")
	}
	tx.finished = true
	runtime.SetFinalizer(tx, nil)
	_, err := tx.conn.executeLocked(sql, nil)
	tx.conn.guard.Release()
	return err
}
