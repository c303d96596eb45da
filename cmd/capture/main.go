// Command capture screenshots local routes and reference sites and audits
// them for WCAG 2.1 AA with axe-core.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/design-polish/internal/app"
	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/cli"
	"github.com/raysh454/design-polish/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser.RegisterDefaultBackends()

	var zl *logging.ZapLogger
	a := &cli.App{
		Config: cfg,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewLogger: func(level string) logging.Logger {
			zl = logging.NewZapLogger(level, os.Stderr)
			return zl
		},
		Wire: cli.DefaultWiring,
	}

	code := cli.Execute(ctx, a, os.Args[1:])
	if zl != nil {
		_ = zl.Sync()
	}
	return code
}
