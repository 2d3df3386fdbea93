package tessera

import "context"

// ExecGuard serializes access to a connection's single underlying socket or
// file handle. Every capability call acquires the guard for its duration;
// a transaction acquires it once at BEGIN and holds it until its terminal
// state, which is what gives the transaction exclusive ownership of the
// connection.
//
// A capacity-1 channel is used instead of a mutex so ownership can be
// released by a different goroutine than the one that acquired it, and so
// acquisition can honor context cancellation while queued.
type ExecGuard struct {
	ch chan struct{}
}

// NewExecGuard creates an unheld guard.
func NewExecGuard() *ExecGuard {
	return &ExecGuard{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the guard is free or the context is done.
func (g *ExecGuard) Acquire(ctx context.Context) error {
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return WrapError(ErrQuery, "waiting for connection", ctx.Err())
	}
}

// TryAcquire acquires the guard without blocking.
func (g *ExecGuard) TryAcquire() bool {
	select {
	case g.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the guard. Must be called exactly once per successful
// acquisition.
func (g *ExecGuard) Release() {
	select {
	case <-g.ch:
	default:
		panic("tessera: release of unheld ExecGuard")
	}
}
