package browser

import (
	"context"
	"sync"
	"time"
)

// idleTracker signals once no request has been in flight for idleAfter and
// the page load event has fired. Request IDs are tracked so that redirects
// (which reuse an ID) are not counted twice.
type idleTracker struct {
	idleAfter time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	loaded   bool
	timer    *time.Timer

	once sync.Once
	done chan struct{}
}

func newIdleTracker(idleAfter time.Duration) *idleTracker {
	return &idleTracker{
		idleAfter: idleAfter,
		inflight:  make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

func (t *idleTracker) requestStarted(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *idleTracker) requestFinished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.armLocked()
}

// markLoaded is called once the navigation's load event has fired.
func (t *idleTracker) markLoaded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = true
	t.armLocked()
}

func (t *idleTracker) armLocked() {
	if !t.loaded || len(t.inflight) > 0 {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idleAfter, func() {
		t.mu.Lock()
		quiet := len(t.inflight) == 0
		t.mu.Unlock()
		if quiet {
			t.once.Do(func() { close(t.done) })
		}
	})
}

func (t *idleTracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// wait blocks until the network is idle or ctx is done.
func (t *idleTracker) wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bind derives a context from the browser-owned parent that also honours the
// caller's deadline and cancellation. Cancelling the result never closes the
// browser tab itself.
func bind(parent, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if dl, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, dl)
		outer := cancel
		cancel = func() {
			cancelDeadline()
			outer()
		}
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
