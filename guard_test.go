package tessera

import (
	"context"
	"testing"
	"time"
)

func TestGuardAcquireRelease(t *testing.T) {
	g := NewExecGuard()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if g.TryAcquire() {
		t.Fatal("TryAcquire must fail while held")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatal("TryAcquire must succeed after release")
	}
	g.Release()
}

func TestGuardAcquireHonorsContext(t *testing.T) {
	g := NewExecGuard()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx)
	if err == nil {
		t.Fatal("Acquire must fail when the context expires")
	}
	if !IsError(err, ErrQuery) {
		t.Errorf("expected ErrQuery, got %v", err)
	}
}

func TestGuardCrossGoroutineRelease(t *testing.T) {
	g := NewExecGuard()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		g.Release()
		close(done)
	}()
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after cross-goroutine release: %v", err)
	}
	g.Release()
}

func TestGuardUnheldReleasePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Release of unheld guard must panic")
		}
	}()
	NewExecGuard().Release()
}
