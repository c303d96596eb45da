package cli

import (
	"context"
	"fmt"

	"github.com/raysh454/design-polish/internal/app"
	"github.com/raysh454/design-polish/internal/enumerator"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/webclient"
	"github.com/spf13/cobra"
)

// DiscoverRoutes probes the base URL and then crawls same-origin links up to
// depth levels below it.
func DiscoverRoutes(ctx context.Context, cfg *app.Config, logger logging.Logger, depth, maxPages int) ([]string, error) {
	wc, err := webclient.NewNetHTTPClient(cfg.WebClient, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("create web client: %w", err)
	}
	defer wc.Close()

	if err := wc.Probe(ctx, cfg.Capture.BaseURL); err != nil {
		return nil, err
	}

	spider := enumerator.NewSpider(depth, wc, logger)
	if maxPages > 0 {
		spider.MaxPages = maxPages
	}
	routes, err := spider.Enumerate(ctx, cfg.Capture.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("discover routes: %w", err)
	}
	logger.Info("discovered routes", logging.Field{Key: "count", Value: len(routes)})
	return routes, nil
}

func newRoutesCmd(a *App) *cobra.Command {
	var depth, limit int

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes reachable from BASE_URL",
		Long: `routes follows same-origin links from BASE_URL and prints one route per
line, in the order they were found. The output can be passed straight to
capture.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := DiscoverRoutes(cmd.Context(), a.Config, a.log(), depth, limit)
			if err != nil {
				return err
			}
			for _, r := range routes {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "Link depth to follow from the base URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", enumerator.DefaultMaxPages, "Maximum number of routes")
	return cmd
}
