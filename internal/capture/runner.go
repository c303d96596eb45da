// Package capture orchestrates one browser session across a list of targets,
// producing screenshots and accessibility reports.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/design-polish/internal/artifacts"
	"github.com/raysh454/design-polish/internal/audit"
	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/model"
	"github.com/raysh454/design-polish/internal/retry"
)

// ErrNoRoutes is returned when an operation is given nothing to visit.
var ErrNoRoutes = errors.New("no routes to capture")

// Prober checks that the target server is up before any navigation.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Opener starts the browser session for a run.
type Opener func(ctx context.Context) (browser.Session, error)

// Auditor runs the accessibility rule engine against the page's current DOM.
type Auditor interface {
	Audit(ctx context.Context, page browser.Page, url string, now time.Time) (*model.AccessibilityReport, error)
}

// Recorder persists a finished run. Failures are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, rec model.RunRecord) error
}

// Deps are the collaborators of a Runner. Auditor, Recorder and OnResult are
// optional.
type Deps struct {
	Prober   Prober
	Open     Opener
	Auditor  Auditor
	Recorder Recorder
	Logger   logging.Logger

	// OnResult observes each target's result as soon as it is known.
	OnResult func(model.CaptureResult)
}

// Runner executes capture operations. It holds no state between operations
// other than its configuration and collaborators.
type Runner struct {
	cfg      Config
	prober   Prober
	open     Opener
	auditor  Auditor
	recorder Recorder
	onResult func(model.CaptureResult)
	screens  *artifacts.Store
	reports  *artifacts.Store
	logger   logging.Logger
	now      func() time.Time
}

// NewRunner wires a Runner.
func NewRunner(cfg Config, deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Runner{
		cfg:      cfg,
		prober:   deps.Prober,
		open:     deps.Open,
		auditor:  deps.Auditor,
		recorder: deps.Recorder,
		onResult: deps.OnResult,
		screens:  artifacts.New(cfg.OutputDir),
		reports:  artifacts.New(cfg.A11yDir),
		logger:   logger.With(logging.Field{Key: "component", Value: "capture"}),
		now:      time.Now,
	}
}

// LocalOptions tunes CaptureLocal.
type LocalOptions struct {
	// WCAG audits the first route when the engine is available.
	WCAG bool
}

// LocalResult is the payload of a local capture.
type LocalResult struct {
	Results    []model.CaptureResult      `json:"results"`
	WCAGReport *model.AccessibilityReport `json:"wcagReport"`
}

// ReferenceResult is the payload of a reference capture.
type ReferenceResult struct {
	Results []model.CaptureResult `json:"results"`
}

// WCAGResult is the payload of an audit-only run. Results has one entry per
// route naming the report file.
type WCAGResult struct {
	Reports []*model.AccessibilityReport `json:"reports"`
	Results []model.CaptureResult        `json:"results"`
}

// CaptureLocal screenshots each route of the local project. Only an
// unreachable server (or a browser that cannot start) aborts the run;
// per-route failures are recorded and the loop moves on.
func (r *Runner) CaptureLocal(ctx context.Context, routes []string, opts LocalOptions) (*LocalResult, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	started := r.now()

	if err := r.prober.Probe(ctx, r.cfg.BaseURL); err != nil {
		return nil, err
	}

	doAudit := opts.WCAG && r.auditor != nil
	if opts.WCAG && r.auditor == nil {
		r.logger.Warn("accessibility engine not available, skipping WCAG audit")
	}

	session, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer r.closeSession(session)
	page := session.Page()

	out := &LocalResult{Results: make([]model.CaptureResult, 0, len(routes))}
	for i, route := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := model.LocalRoute(route)
		url := r.cfg.URLFor(route)
		filename := ScreenshotName(route)
		log := r.logger.With(logging.Field{Key: "route", Value: route})

		log.Info("capturing", logging.Field{Key: "url", Value: url})
		err := r.visit(ctx, page, url)
		if err == nil {
			err = r.screenshot(ctx, page, filename)
		}
		out.Results = append(out.Results, r.emit(model.NewCaptureResult(target, filename, err)))
		if err != nil {
			log.Error("capture failed", logging.Field{Key: "error", Value: err})
			continue
		}
		log.Info("saved screenshot", logging.Field{Key: "file", Value: r.screens.Path(filename)})

		if doAudit && i == 0 {
			report, err := r.auditPage(ctx, page, url, ReportName("/"))
			if err != nil {
				log.Warn("accessibility audit failed", logging.Field{Key: "error", Value: err})
				continue
			}
			out.WCAGReport = report
		}
	}

	var reports []*model.AccessibilityReport
	if out.WCAGReport != nil {
		reports = append(reports, out.WCAGReport)
	}
	r.record(ctx, model.ModeLocal, started, out.Results, reports)
	return out, nil
}

// CaptureReferences screenshots external design references. They are never
// audited and no liveness probe applies.
func (r *Runner) CaptureReferences(ctx context.Context, refs []model.RouteTarget) (*ReferenceResult, error) {
	if len(refs) == 0 {
		return nil, ErrNoRoutes
	}
	started := r.now()

	session, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer r.closeSession(session)
	page := session.Page()

	out := &ReferenceResult{Results: make([]model.CaptureResult, 0, len(refs))}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		filename := ReferenceName(ref.Name)
		log := r.logger.With(logging.Field{Key: "reference", Value: ref.Name})

		log.Info("capturing reference", logging.Field{Key: "url", Value: ref.URL})
		err := r.visit(ctx, page, ref.URL)
		if err == nil {
			err = r.screenshot(ctx, page, filename)
		}
		out.Results = append(out.Results, r.emit(model.NewCaptureResult(ref, filename, err)))
		if err != nil {
			log.Error("reference capture failed", logging.Field{Key: "error", Value: err})
			continue
		}
		log.Info("saved screenshot", logging.Field{Key: "file", Value: r.screens.Path(filename)})
	}

	r.record(ctx, model.ModeReference, started, out.Results, nil)
	return out, nil
}

// WCAGOnly audits every route without taking screenshots. A missing engine is
// fatal here since auditing is the whole point of the run.
func (r *Runner) WCAGOnly(ctx context.Context, routes []string) (*WCAGResult, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	if r.auditor == nil {
		return nil, audit.ErrEngineUnavailable
	}
	started := r.now()

	if err := r.prober.Probe(ctx, r.cfg.BaseURL); err != nil {
		return nil, err
	}

	session, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer r.closeSession(session)
	page := session.Page()

	out := &WCAGResult{
		Reports: make([]*model.AccessibilityReport, 0, len(routes)),
		Results: make([]model.CaptureResult, 0, len(routes)),
	}
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url := r.cfg.URLFor(route)
		filename := ReportName(route)
		log := r.logger.With(logging.Field{Key: "route", Value: route})

		log.Info("auditing", logging.Field{Key: "url", Value: url})
		var report *model.AccessibilityReport
		err := r.visit(ctx, page, url)
		if err == nil {
			report, err = r.auditPage(ctx, page, url, filename)
		}
		out.Results = append(out.Results, r.emit(model.NewCaptureResult(model.LocalRoute(route), filename, err)))
		if err != nil {
			log.Error("audit failed", logging.Field{Key: "error", Value: err})
			continue
		}
		out.Reports = append(out.Reports, report)
	}

	r.record(ctx, model.ModeWCAG, started, out.Results, out.Reports)
	return out, nil
}

// visit navigates with the retry policy and then lets the page settle.
func (r *Runner) visit(ctx context.Context, page browser.Page, url string) error {
	policy := retry.Policy{Retries: r.cfg.Retries, Delay: r.cfg.RetryDelay}

	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		navCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		err := page.Navigate(navCtx, url)
		if err != nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation timeout after %s: %w", r.cfg.Timeout, err)
		}
		return err
	}, func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("navigation attempt failed, retrying",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "of", Value: policy.Attempts()},
			logging.Field{Key: "error", Value: err})
	})
	if err != nil {
		return fmt.Errorf("navigate to %s failed after %d attempt(s): %w", url, policy.Attempts(), err)
	}

	return sleep(ctx, r.cfg.Wait)
}

func (r *Runner) screenshot(ctx context.Context, page browser.Page, filename string) error {
	png, err := page.Screenshot(ctx, r.cfg.FullPage)
	if err != nil {
		return err
	}
	if _, err := r.screens.Write(filename, png); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	return nil
}

func (r *Runner) auditPage(ctx context.Context, page browser.Page, url, filename string) (*model.AccessibilityReport, error) {
	report, err := r.auditor.Audit(ctx, page, url, r.now())
	if err != nil {
		return nil, err
	}
	path, err := r.reports.WriteJSON(filename, report)
	if err != nil {
		return nil, fmt.Errorf("save accessibility report: %w", err)
	}
	r.logger.Info("saved accessibility report",
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "violations", Value: report.Summary.Violations},
		logging.Field{Key: "passes", Value: report.Summary.Passes},
		logging.Field{Key: "incomplete", Value: report.Summary.Incomplete})
	return report, nil
}

func (r *Runner) emit(res model.CaptureResult) model.CaptureResult {
	if r.onResult != nil {
		r.onResult(res)
	}
	return res
}

func (r *Runner) closeSession(s browser.Session) {
	if err := s.Close(); err != nil {
		r.logger.Warn("closing browser failed", logging.Field{Key: "error", Value: err})
	}
}

func (r *Runner) record(ctx context.Context, mode model.Mode, started time.Time, results []model.CaptureResult, reports []*model.AccessibilityReport) {
	if r.recorder == nil {
		return
	}
	rec := model.RunRecord{
		Mode:       mode,
		BaseURL:    r.cfg.BaseURL,
		StartedAt:  started,
		FinishedAt: r.now(),
		Results:    results,
		Reports:    reports,
	}
	if err := r.recorder.Record(ctx, rec); err != nil {
		r.logger.Warn("recording run history failed", logging.Field{Key: "error", Value: err})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
