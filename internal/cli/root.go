package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the dashboard command line.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Ad campaign analytics over impression, click and server logs",
		Long: `dashboard computes campaign metrics (impressions, clicks, uniques, bounces,
conversions, cost, CTR, CPC, CPM, bounce rate) over a date range, broken down
by hour, day or week, and serves them as JSON for a chart front end.

Examples:
  dashboard summary --dir ./logs --start 2015-01-01 --end 2015-01-14
  dashboard series --metric ctr --granularity hourly --filter gender=Female
  dashboard histogram --bins 20 --filter income=High,Medium
  dashboard serve --source postgres`,
		SilenceUsage: true,
	}

	opts.bindPersistent(root)

	root.AddCommand(newSummaryCmd(opts))
	root.AddCommand(newSeriesCmd(opts))
	root.AddCommand(newHistogramCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}
