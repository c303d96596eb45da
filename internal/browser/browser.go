// Package browser hides the headless-browser automation library behind a
// small Session/Page contract so the capture runner does not care whether
// chromedp or rod is driving Chrome.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrBackendNotRegistered is returned by Open for an unknown backend name.
var ErrBackendNotRegistered = errors.New("browser backend not registered")

// Options configures a browser session.
type Options struct {
	ViewportWidth  int
	ViewportHeight int

	// IdleAfter is how long the network must stay quiet before a navigation
	// counts as settled. Zero means 500ms.
	IdleAfter time.Duration

	// Headful shows the browser window; used when debugging locally.
	Headful bool

	// ExecPath overrides the Chrome binary discovered by the backend.
	ExecPath string
}

func (o Options) idleAfter() time.Duration {
	if o.IdleAfter <= 0 {
		return 500 * time.Millisecond
	}
	return o.IdleAfter
}

func (o Options) viewport() (int, int) {
	w, h := o.ViewportWidth, o.ViewportHeight
	if w <= 0 {
		w = 1440
	}
	if h <= 0 {
		h = 900
	}
	return w, h
}

// Session is one running browser. It owns exactly one page that is reused for
// every navigation.
type Session interface {
	Page() Page

	// Close releases the browser process. Safe to call more than once.
	Close() error
}

// Page is the single tab of a Session.
type Page interface {
	// Navigate loads url and returns once the load event fired and the
	// network has been idle for the session's IdleAfter. The ctx deadline
	// bounds the whole navigation.
	Navigate(ctx context.Context, url string) error

	// Screenshot returns PNG bytes of the viewport, or of the whole
	// document when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// InjectScript evaluates src in the page's global scope.
	InjectScript(ctx context.Context, src string) error

	// Evaluate calls the JavaScript function expression fn (for example
	// "() => document.title"), awaits the result if it is a promise and
	// decodes its JSON value into out.
	Evaluate(ctx context.Context, fn string, out any) error
}
