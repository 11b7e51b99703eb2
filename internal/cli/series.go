package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
)

func newSeriesCmd(o *options) *cobra.Command {
	var metric string

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show one metric per hour, day or week",
		Long: `Show one metric bucketed over the selected window.

Examples:
  dashboard series --metric clicks --granularity daily
  dashboard series --metric bounce-rate -g weekly --filter context=News`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd, o, metric)
		},
	}
	cmd.Flags().StringVarP(&metric, "metric", "m", string(analytics.MetricImpressions),
		"Metric: impressions, clicks, uniques, bounces, conversions, total_cost, ctr, cpc, cpm, bounce_rate")
	return cmd
}

func runSeries(cmd *cobra.Command, o *options, metricName string) error {
	metric, err := analytics.ParseMetric(metricName)
	if err != nil {
		return err
	}

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
	points, err := a.service.Series(ctx, q, metric)
	if err != nil {
		return fmt.Errorf("failed to compute series: %w", err)
	}

	out := cmd.OutOrStdout()
	if o.output == "json" {
		return writeJSON(out, map[string]interface{}{
			"metric":      metric,
			"granularity": q.Granularity,
			"filters":     q.Filters.String(),
			"points":      points,
		})
	}

	t := newTable(out)
	t.row("Bucket", string(metric))
	for _, p := range points {
		t.row(p.Label, formatValue(metric, p.Value))
	}
	return t.flush()
}

func formatValue(metric analytics.Metric, v float64) string {
	switch metric {
	case analytics.MetricTotalCost, analytics.MetricCPC, analytics.MetricCPM,
		analytics.MetricCTR, analytics.MetricBounceRate:
		return fmt.Sprintf("%.4f", v)
	}
	return fmt.Sprintf("%.0f", v)
}
