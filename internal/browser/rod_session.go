package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/raysh454/design-polish/internal/logging"
)

// RodSession drives Chrome with go-rod. It is selected with BROWSER=rod.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
	logger   logging.Logger

	closeOnce sync.Once
	closeErr  error
}

type rodPage struct {
	page      *rod.Page
	idleAfter time.Duration
}

// NewRodSession launches Chrome through rod's launcher and opens one page.
func NewRodSession(ctx context.Context, opts Options, logger logging.Logger) (*RodSession, error) {
	w, h := opts.viewport()

	l := launcher.New().Context(ctx).Headless(!opts.Headful)
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	logger.Debug("rod session started",
		logging.Field{Key: "control_url", Value: controlURL},
		logging.Field{Key: "viewport", Value: fmt.Sprintf("%dx%d", w, h)})

	return &RodSession{
		launcher: l,
		browser:  b,
		page:     &rodPage{page: page, idleAfter: opts.idleAfter()},
		logger:   logger,
	}, nil
}

func (s *RodSession) Page() Page { return s.page }

func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.browser.Close()
		s.launcher.Cleanup()
		s.logger.Debug("rod session closed")
	})
	return s.closeErr
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)

	waitIdle := page.WaitRequestIdle(p.idleAfter, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load on %s: %w", url, err)
	}
	waitIdle()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for network idle on %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	buf, err := p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *rodPage) InjectScript(ctx context.Context, src string) error {
	if err := p.page.Context(ctx).AddScriptTag("", src); err != nil {
		return fmt.Errorf("inject script: %w", err)
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, fn string, out any) error {
	res, err := p.page.Context(ctx).Eval(fn)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	return nil
}
