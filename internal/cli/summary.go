package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show all metrics for a date range",
		Long: `Show every campaign metric for the selected window and audience.

Examples:
  dashboard summary --start 2015-01-01 --end 2015-01-07
  dashboard summary --filter gender=Female --filter age=25-34,35-44 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, o)
		},
	}
}

func runSummary(cmd *cobra.Command, o *options) error {
	ctx := cmdContext(cmd)

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := o.query(a.cfg, a.service)
	if err != nil {
		return err
	}
	m, err := a.service.Summary(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to compute summary: %w", err)
	}

	out := cmd.OutOrStdout()
	if o.output == "json" {
		return writeJSON(out, map[string]interface{}{
			"window":  q.Window,
			"filters": q.Filters.String(),
			"metrics": m,
		})
	}

	t := newTable(out)
	t.row("Window", windowString(q.Window))
	t.row("Filters", q.Filters.String())
	t.row("Impressions", m.Impressions)
	t.row("Clicks", m.Clicks)
	t.row("Uniques", m.Uniques)
	t.row("Bounces", m.Bounces)
	t.row("Conversions", m.Conversions)
	t.row("Total cost", fmt.Sprintf("$%.2f", m.TotalCost))
	t.row("CTR", fmt.Sprintf("%.2f%%", m.CTR*100))
	t.row("CPC", fmt.Sprintf("$%.4f", m.CPC))
	t.row("CPM", fmt.Sprintf("$%.4f", m.CPM))
	t.row("Bounce rate", fmt.Sprintf("%.2f%%", m.BounceRate*100))
	return t.flush()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
