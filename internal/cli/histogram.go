package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistogramCmd(o *options) *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Show the click cost distribution",
		Long: `Bin the click costs of the selected window into equal-width ranges.

Examples:
  dashboard histogram --bins 10
  dashboard histogram --bins 25 --filter income=High -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistogram(cmd, o, bins)
		},
	}
	cmd.Flags().IntVarP(&bins, "bins", "b", 0, "Number of bins (default from DASHBOARD_ENGINE_DEFAULT_BINS)")
	return cmd
}

func runHistogram(cmd *cobra.Command, o *options, bins int) error {
	ctx := cmdContext(cmd)
	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	if !cmd.Flags().Changed("bins") {
		bins = a.cfg.Engine.DefaultBins
	}

	q, err := o.query(a.cfg, a.service)
	if err != nil {
		return err
	}
	h, err := a.service.Histogram(ctx, q, bins)
	if err != nil {
		return fmt.Errorf("failed to compute histogram: %w", err)
	}

	out := cmd.OutOrStdout()
	if o.output == "json" {
		return writeJSON(out, map[string]interface{}{
			"filters": q.Filters.String(),
			"no_data": h.NoData(),
			"bins":    h.Bins,
		})
	}

	t := newTable(out)
	t.row("Cost", "Clicks")
	for _, b := range h.Bins {
		t.row(b.Label, b.Count)
	}
	return t.flush()
}
