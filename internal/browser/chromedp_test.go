package browser_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/logging"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func fixtureServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!doctype html><html lang="en"><head><title>Fixture</title></head><body><h1>Hello</h1></body></html>`)
	}))
}

// Chrome may be missing in CI; these tests skip rather than fail there.
func openOrSkip(t *testing.T, backend string) browser.Session {
	t.Helper()
	s, err := browser.Open(context.Background(), backend, browser.Options{
		ViewportWidth:  800,
		ViewportHeight: 600,
		IdleAfter:      100 * time.Millisecond,
	}, logging.NopLogger{})
	if err != nil {
		t.Skipf("Skipping %s test (environment does not support headless chrome): %v", backend, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBackends_NavigateScreenshotEvaluate(t *testing.T) {
	browser.RegisterDefaultBackends()
	ts := fixtureServer()
	defer ts.Close()

	for _, backend := range []string{browser.BackendChromedp, browser.BackendRod} {
		t.Run(backend, func(t *testing.T) {
			s := openOrSkip(t, backend)
			page := s.Page()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()

			if err := page.Navigate(ctx, ts.URL); err != nil {
				t.Fatalf("Navigate: %v", err)
			}

			png, err := page.Screenshot(ctx, false)
			if err != nil {
				t.Fatalf("Screenshot: %v", err)
			}
			if !bytes.HasPrefix(png, pngMagic) {
				t.Errorf("expected PNG output")
			}

			if err := page.InjectScript(ctx, `window.__fixture = {answer: 42};`); err != nil {
				t.Fatalf("InjectScript: %v", err)
			}
			var got struct {
				Title  string `json:"title"`
				Answer int    `json:"answer"`
			}
			if err := page.Evaluate(ctx, `() => Promise.resolve({title: document.title, answer: window.__fixture.answer})`, &got); err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got.Title != "Fixture" || got.Answer != 42 {
				t.Errorf("unexpected evaluation result: %+v", got)
			}
		})
	}
}

func TestChromedp_NavigateTimeout(t *testing.T) {
	browser.RegisterDefaultBackends()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	s := openOrSkip(t, browser.BackendChromedp)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := s.Page().Navigate(ctx, ts.URL); err == nil {
		t.Fatal("expected navigation to time out")
	}

	// The session stays usable after a timed-out navigation.
	ok := fixtureServer()
	defer ok.Close()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel2()
	if err := s.Page().Navigate(ctx2, ok.URL); err != nil {
		t.Fatalf("Navigate after timeout: %v", err)
	}
}
