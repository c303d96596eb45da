package cli

import (
	"fmt"

	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/report"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded capture runs",
		Long: `history prints the most recent runs from the history database as a
Markdown table. Recording is enabled by setting HISTORY_DB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			store, err := openHistory(a.Config, a.log())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.WriteRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "diff <url>",
		Short: "Diff the two most recent accessibility reports of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(a.Config, a.log())
			if err != nil {
				return err
			}
			defer store.Close()

			out, err := store.DiffLatest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	})

	return cmd
}

func newReportCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report <wcag-report.json>",
		Short: "Render a saved accessibility report as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := report.Load(args[0])
			if err != nil {
				return err
			}
			a.log().Debug("rendering report", logging.Field{Key: "url", Value: r.URL})
			return report.WriteReport(cmd.OutOrStdout(), r)
		},
	}
}
