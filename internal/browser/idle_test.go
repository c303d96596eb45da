package browser

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitFor(t *testing.T, tr *idleTracker, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return tr.wait(ctx)
}

func TestIdleTracker_NoRequestsIdleAfterLoad(t *testing.T) {
	t.Parallel()
	tr := newIdleTracker(20 * time.Millisecond)
	defer tr.stop()

	tr.markLoaded()
	if err := waitFor(t, tr, time.Second); err != nil {
		t.Fatalf("expected idle, got %v", err)
	}
}

func TestIdleTracker_NotIdleBeforeLoad(t *testing.T) {
	t.Parallel()
	tr := newIdleTracker(10 * time.Millisecond)
	defer tr.stop()

	tr.requestStarted("1")
	tr.requestFinished("1")
	err := waitFor(t, tr, 100*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no idle signal before load, got %v", err)
	}
}

func TestIdleTracker_WaitsForInflight(t *testing.T) {
	t.Parallel()
	tr := newIdleTracker(20 * time.Millisecond)
	defer tr.stop()

	tr.requestStarted("a")
	tr.requestStarted("b")
	tr.markLoaded()
	tr.requestFinished("a")

	if err := waitFor(t, tr, 100*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to keep waiting while a request is in flight, got %v", err)
	}

	tr.requestFinished("b")
	if err := waitFor(t, tr, time.Second); err != nil {
		t.Fatalf("expected idle after last request, got %v", err)
	}
}

func TestIdleTracker_RedirectsCountOnce(t *testing.T) {
	t.Parallel()
	tr := newIdleTracker(20 * time.Millisecond)
	defer tr.stop()

	// A redirect reuses the request ID.
	tr.requestStarted("r")
	tr.requestStarted("r")
	tr.markLoaded()
	tr.requestFinished("r")
	tr.requestFinished("unknown")

	if err := waitFor(t, tr, time.Second); err != nil {
		t.Fatalf("expected idle, got %v", err)
	}
}

func TestBind_HonoursCallerDeadline(t *testing.T) {
	t.Parallel()
	parent, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	caller, cancelCaller := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelCaller()

	ctx, cancel := bind(parent, caller)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context ignored caller deadline")
	}
	if parent.Err() != nil {
		t.Fatal("caller deadline must not cancel the parent")
	}
}

func TestBind_CallerCancel(t *testing.T) {
	t.Parallel()
	caller, cancelCaller := context.WithCancel(context.Background())
	ctx, cancel := bind(context.Background(), caller)
	defer cancel()

	cancelCaller()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context ignored caller cancellation")
	}
}
