package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/model"
	"github.com/raysh454/design-polish/internal/server"
	"github.com/spf13/cobra"
)

// newServer builds the results API on top of the App's wiring.
func newServer(a *App, addr string) (*server.Server, func(), error) {
	var (
		hist    server.HistoryReader
		cleanup = func() {}
	)
	if a.Config.HistoryDB != "" {
		store, err := openHistory(a.Config, a.log())
		if err != nil {
			return nil, cleanup, err
		}
		hist = store
		cleanup = func() { store.Close() }
	}

	factory := func(ctx context.Context, onResult func(model.CaptureResult)) (*capture.Runner, func(), error) {
		deps, done, err := a.wire(ctx, true)
		if err != nil {
			return nil, done, err
		}
		deps.OnResult = onResult
		return capture.NewRunner(a.Config.Capture, deps), done, nil
	}

	cfg := server.Config{ListenAddr: addr, Capture: a.Config.Capture}
	return server.NewServer(cfg, factory, hist, a.log()), cleanup, nil
}

func newServeCmd(a *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve screenshots, reports and history over HTTP",
		Long: `serve starts a small HTTP API for review tools:

  GET  /api/screenshots              list screenshots
  GET  /screenshots/{name}           fetch a screenshot
  GET  /api/reports                  list accessibility reports
  GET  /api/reports/{name}           fetch a report
  GET  /api/reports/{name}/markdown  render a report as Markdown
  GET  /api/runs                     recent runs (needs HISTORY_DB)
  GET  /api/runs/{id}/results        results of one run
  POST /api/capture                  capture {"routes": [...], "wcag": true}
  GET  /ws/capture?route=/           capture and stream progress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, cleanup, err := newServer(a, addr)
			defer cleanup()
			if err != nil {
				return err
			}
			return listen(cmd.Context(), srv.HTTPServer(), a.log())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "Listen address")
	return cmd
}

// listen serves until ctx is cancelled.
func listen(ctx context.Context, hs *http.Server, logger logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving results", logging.Field{Key: "addr", Value: hs.Addr})
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
