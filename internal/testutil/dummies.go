// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without a real browser.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings were logged.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── Browser ───────────────────────────────────────────────────────────

// PNG is a minimal payload returned by FakePage screenshots.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// FakePage implements browser.Page without Chrome. Navigation outcomes are
// scripted per URL; evaluation answers the axe-core probe and run calls.
type FakePage struct {
	mu sync.Mutex

	// NavigateErrs maps a URL to the errors returned by successive attempts.
	// Once the slice is exhausted navigation succeeds.
	NavigateErrs map[string][]error

	// ScreenshotErr, when set, fails every screenshot.
	ScreenshotErr error

	// AxeResult is returned (via JSON) for the axe.run evaluation.
	AxeResult any

	// AxeLoaded reports whether axe-core is already present in the page.
	AxeLoaded bool

	Navigations []string
	Screenshots int
	Injections  int
	Audits      int
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	if errs := p.NavigateErrs[url]; len(errs) > 0 {
		p.NavigateErrs[url] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	return ctx.Err()
}

func (p *FakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Screenshots++
	return PNG, nil
}

func (p *FakePage) InjectScript(ctx context.Context, src string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Injections++
	p.AxeLoaded = true
	return nil
}

func (p *FakePage) Evaluate(ctx context.Context, fn string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v any
	switch {
	case strings.Contains(fn, "typeof window.axe"):
		v = p.AxeLoaded
	case strings.Contains(fn, "axe.run"):
		if !p.AxeLoaded {
			return errors.New("ReferenceError: axe is not defined")
		}
		p.Audits++
		v = p.AxeResult
	default:
		return errors.New("unexpected evaluation: " + fn)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// NavigationCount returns how many times url was navigated to.
func (p *FakePage) NavigationCount(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, u := range p.Navigations {
		if u == url {
			n++
		}
	}
	return n
}

// FakeSession implements browser.Session around a FakePage.
type FakeSession struct {
	Pg *FakePage

	mu     sync.Mutex
	Closed int
}

func (s *FakeSession) Page() browser.Page { return s.Pg }

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed++
	return nil
}

// CloseCount returns how many times Close was called.
func (s *FakeSession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}
