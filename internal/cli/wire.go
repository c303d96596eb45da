package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/raysh454/design-polish/internal/app"
	"github.com/raysh454/design-polish/internal/audit"
	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/history"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/webclient"
)

// DefaultWiring connects the real browser backends, the net/http liveness
// probe, axe-core from disk and, when enabled, the run history.
func DefaultWiring(ctx context.Context, cfg *app.Config, logger logging.Logger, withAudit bool) (capture.Deps, func(), error) {
	noop := func() {}

	backend := cfg.Backend
	if backend == "" {
		backend = browser.BackendChromedp
	}
	if !slices.Contains(browser.ListBackends(), backend) {
		return capture.Deps{}, noop, fmt.Errorf("%w: %q (available: %s)",
			browser.ErrBackendNotRegistered, backend, strings.Join(browser.ListBackends(), ", "))
	}

	prober, err := webclient.NewNetHTTPClient(cfg.WebClient, logger, nil)
	if err != nil {
		return capture.Deps{}, noop, fmt.Errorf("create probe client: %w", err)
	}

	deps := capture.Deps{
		Prober: prober,
		Open: func(ctx context.Context) (browser.Session, error) {
			return browser.Open(ctx, backend, cfg.Browser, logger)
		},
		Logger: logger,
	}

	if withAudit {
		// A typed nil *audit.Engine must not reach the Auditor interface.
		if engine, err := loadEngine(cfg.AxeCorePath); err != nil {
			logger.Warn("accessibility engine unavailable", logging.Field{Key: "error", Value: err})
		} else {
			logger.Debug("loaded accessibility engine", logging.Field{Key: "path", Value: engine.Path()})
			deps.Auditor = engine
		}
	}

	cleanup := noop
	if cfg.HistoryDB != "" {
		store, err := openHistory(cfg, logger)
		if err != nil {
			logger.Warn("run history disabled", logging.Field{Key: "error", Value: err})
		} else {
			deps.Recorder = store
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("closing history failed", logging.Field{Key: "error", Value: err})
				}
			}
		}
	}

	return deps, cleanup, nil
}

func loadEngine(explicit string) (*audit.Engine, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return audit.LoadEngine(explicit, wd)
}

func openHistory(cfg *app.Config, logger logging.Logger) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, fmt.Errorf("run history is disabled; set %s to a path or %q", app.EnvHistoryDB, history.AutoPath)
	}
	path, err := history.ResolvePath(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	return history.Open(path, logger)
}
