package cli

import (
	"fmt"
	"strings"

	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/model"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the capture command tree.
func NewRootCmd(a *App) *cobra.Command {
	var (
		verbose  bool
		wcag     bool
		wcagOnly bool
		noWCAG   bool
		discover bool
		depth    int
	)

	cmd := &cobra.Command{
		Use:   "capture [route...]",
		Short: "Screenshot local routes and audit them for WCAG 2.1 AA",
		Long: `capture drives a headless browser against your local dev server, saves a
screenshot per route and runs an axe-core accessibility audit on the first
route. With no routes, "/" is captured.

The machine-readable outcome is printed on stdout between
` + capture.ResultStart + ` and ` + capture.ResultEnd + `.
Logs go to stderr.

Environment:
  BASE_URL         dev server root (default http://localhost:3000)
  OUTPUT_DIR       screenshot directory (default .design-polish/screenshots)
  A11Y_DIR         report directory (default .design-polish/accessibility)
  WAIT_TIME        settle delay after load in ms (default 2000)
  TIMEOUT          navigation timeout in ms (default 30000)
  RETRIES          extra navigation attempts (default 2)
  FULL_PAGE        "true" captures the full scroll height
  BROWSER          chromedp or rod (default chromedp)
  AXE_CORE_PATH    path to axe.min.js
  HISTORY_DB       run history database, "auto" for the default location`,
		Example: `  capture
  capture / /about /contact
  capture --no-wcag /pricing
  capture --wcag-only / /about
  capture --discover --depth 2
  capture ref https://stripe.com stripe https://linear.app linear`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogger(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			routes := normalizeRoutes(args)
			if discover {
				if len(args) > 0 {
					return fmt.Errorf("--discover cannot be combined with explicit routes")
				}
				found, err := DiscoverRoutes(cmd.Context(), a.Config, a.log(), depth, 0)
				if err != nil {
					return err
				}
				routes = found
			}
			if wcagOnly {
				return runWCAGOnly(cmd, a, routes)
			}
			return runLocal(cmd, a, routes, !noWCAG)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&wcag, "wcag", false, "Audit the first route (default)")
	cmd.Flags().BoolVar(&wcagOnly, "wcag-only", false, "Audit every route without taking screenshots")
	cmd.Flags().BoolVar(&noWCAG, "no-wcag", false, "Skip the accessibility audit")
	cmd.Flags().BoolVar(&discover, "discover", false, "Capture every route found by following links from BASE_URL")
	cmd.Flags().IntVar(&depth, "depth", 1, "Link depth for --discover")
	cmd.MarkFlagsMutuallyExclusive("wcag", "wcag-only", "no-wcag")

	cmd.AddCommand(newRefCmd(a))
	cmd.AddCommand(newRoutesCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newReportCmd(a))

	return cmd
}

// normalizeRoutes defaults to "/" and adds a leading slash where missing.
func normalizeRoutes(args []string) []string {
	if len(args) == 0 {
		return []string{"/"}
	}
	routes := make([]string, 0, len(args))
	for _, r := range args {
		r = strings.TrimSpace(r)
		if !strings.HasPrefix(r, "/") {
			r = "/" + r
		}
		routes = append(routes, r)
	}
	return routes
}

func runLocal(cmd *cobra.Command, a *App, routes []string, withAudit bool) error {
	deps, cleanup, err := a.wire(cmd.Context(), withAudit)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := capture.NewRunner(a.Config.Capture, deps).
		CaptureLocal(cmd.Context(), routes, capture.LocalOptions{WCAG: withAudit})
	if err != nil {
		return err
	}
	logOutcome(a, res.Results)
	return capture.WriteResultBlock(cmd.OutOrStdout(), res.Summary(a.Config.Capture.OutputDir))
}

func runWCAGOnly(cmd *cobra.Command, a *App, routes []string) error {
	deps, cleanup, err := a.wire(cmd.Context(), true)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := capture.NewRunner(a.Config.Capture, deps).WCAGOnly(cmd.Context(), routes)
	if err != nil {
		return err
	}
	logOutcome(a, res.Results)
	return capture.WriteResultBlock(cmd.OutOrStdout(), res.Summary(a.Config.Capture.A11yDir))
}

func newRefCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ref <url> <name> [<url> <name> ...]",
		Short: "Screenshot external reference sites",
		Long: `ref captures design references from arbitrary URLs. Each URL is followed by
a short name used for the file, reference-<name>.png. References are never
audited and no liveness probe is made.`,
		Args: pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := make([]model.RouteTarget, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				refs = append(refs, model.Reference(args[i], args[i+1]))
			}

			deps, cleanup, err := a.wire(cmd.Context(), false)
			defer cleanup()
			if err != nil {
				return err
			}
			res, err := capture.NewRunner(a.Config.Capture, deps).CaptureReferences(cmd.Context(), refs)
			if err != nil {
				return err
			}
			logOutcome(a, res.Results)
			return capture.WriteResultBlock(cmd.OutOrStdout(), res.Summary(a.Config.Capture.OutputDir))
		},
	}
}

// pairArgs accepts one or more url/name pairs.
func pairArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("expected <url> <name> pairs, got %d argument(s)", len(args))
	}
	for i := 0; i < len(args); i += 2 {
		if !strings.HasPrefix(args[i], "http://") && !strings.HasPrefix(args[i], "https://") {
			return fmt.Errorf("argument %d: %q is not an http(s) URL", i+1, args[i])
		}
	}
	return nil
}

func logOutcome(a *App, results []model.CaptureResult) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		a.log().Warn(fmt.Sprintf("%d of %d target(s) failed", failed, len(results)))
		return
	}
	a.log().Info(fmt.Sprintf("captured %d target(s)", len(results)))
}
