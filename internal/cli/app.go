// Package cli implements the capture command line on top of cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raysh454/design-polish/internal/app"
	"github.com/raysh454/design-polish/internal/audit"
	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/webclient"
)

// Wiring builds the collaborators of a capture run. The returned cleanup is
// always non-nil and must be called once the run is over. withAudit is false
// when the run never audits, so the engine is not loaded.
type Wiring func(ctx context.Context, cfg *app.Config, logger logging.Logger, withAudit bool) (capture.Deps, func(), error)

// App carries everything a command needs. main fills it once.
type App struct {
	Config *app.Config
	Stdout io.Writer
	Stderr io.Writer

	// NewLogger builds the logger for a level. It is called after flags are
	// parsed so --verbose can take effect.
	NewLogger func(level string) logging.Logger

	// Wire defaults to DefaultWiring.
	Wire Wiring

	logger logging.Logger
}

func (a *App) stdout() io.Writer {
	if a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

func (a *App) stderr() io.Writer {
	if a.Stderr == nil {
		return os.Stderr
	}
	return a.Stderr
}

func (a *App) setupLogger(verbose bool) {
	level := a.Config.LogLevel
	if verbose {
		level = "debug"
	}
	if a.NewLogger == nil {
		a.logger = logging.NewZapLogger(level, a.stderr())
		return
	}
	a.logger = a.NewLogger(level)
}

func (a *App) log() logging.Logger {
	if a.logger == nil {
		return logging.NopLogger{}
	}
	return a.logger
}

func (a *App) wire(ctx context.Context, withAudit bool) (capture.Deps, func(), error) {
	w := a.Wire
	if w == nil {
		w = DefaultWiring
	}
	return w(ctx, a.Config, a.log(), withAudit)
}

// Execute runs the command line and returns the process exit code: 0 when the
// command completed (even with per-target failures), 1 on a fatal error.
func Execute(ctx context.Context, a *App, args []string) int {
	cmd := NewRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout())
	cmd.SetErr(a.stderr())

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	reportError(a.stderr(), err)
	return 1
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	switch {
	case errors.Is(err, webclient.ErrServerUnreachable):
		fmt.Fprintln(w, "Start your dev server (for example `npm run dev`) or point BASE_URL at a running instance.")
	case errors.Is(err, audit.ErrEngineUnavailable):
		fmt.Fprintln(w, "Install the engine with `npm install --save-dev axe-core` or set AXE_CORE_PATH.")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted.")
	}
}
