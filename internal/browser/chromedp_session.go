package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/raysh454/design-polish/internal/logging"
)

// ChromedpSession drives Chrome over the DevTools protocol with chromedp.
type ChromedpSession struct {
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	page        *chromedpPage
	logger      logging.Logger

	closeOnce sync.Once
}

type chromedpPage struct {
	tabCtx    context.Context
	idleAfter time.Duration
}

// NewChromedpSession launches Chrome and opens the session's single tab. The
// browser is killed when ctx is cancelled or Close is called.
func NewChromedpSession(ctx context.Context, opts Options, logger logging.Logger) (*ChromedpSession, error) {
	w, h := opts.viewport()

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.WindowSize(w, h))
	if opts.Headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(w), int64(h)),
	); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	logger.Debug("chromedp session started",
		logging.Field{Key: "viewport", Value: fmt.Sprintf("%dx%d", w, h)})

	return &ChromedpSession{
		allocCancel: allocCancel,
		tabCancel:   tabCancel,
		page:        &chromedpPage{tabCtx: tabCtx, idleAfter: opts.idleAfter()},
		logger:      logger,
	}, nil
}

func (s *ChromedpSession) Page() Page { return s.page }

func (s *ChromedpSession) Close() error {
	s.closeOnce.Do(func() {
		s.tabCancel()
		s.allocCancel()
		s.logger.Debug("chromedp session closed")
	})
	return nil
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	idle := newIdleTracker(p.idleAfter)
	defer idle.stop()

	chromedp.ListenTarget(runCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			idle.requestStarted(string(e.RequestID))
		case *network.EventLoadingFinished:
			idle.requestFinished(string(e.RequestID))
		case *network.EventLoadingFailed:
			idle.requestFinished(string(e.RequestID))
		}
	})

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	idle.markLoaded()

	if err := idle.wait(runCtx); err != nil {
		return fmt.Errorf("wait for network idle on %s: %w", url, err)
	}
	return nil
}

func (p *chromedpPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	runCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 keeps the capture in PNG format.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromedpPage) InjectScript(ctx context.Context, src string) error {
	runCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	var ok bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(src+"\n;true", &ok)); err != nil {
		return fmt.Errorf("inject script: %w", err)
	}
	return nil
}

func (p *chromedpPage) Evaluate(ctx context.Context, fn string, out any) error {
	runCtx, cancel := bind(p.tabCtx, ctx)
	defer cancel()

	expr := "(" + fn + ")()"
	awaitPromise := func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, out, awaitPromise)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
