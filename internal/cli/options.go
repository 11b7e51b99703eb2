package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/config"
	"github.com/radiusdt/campaign-dashboard/internal/dashboard"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// options holds flags shared by every subcommand. Flags left unset fall
// back to the DASHBOARD_* environment configuration.
type options struct {
	source      string
	dir         string
	start       string
	end         string
	granularity string
	filters     []string
	output      string
	logLevel    string
}

func (o *options) bindPersistent(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.source, "source", "", "Log source: csv, postgres, clickhouse")
	f.StringVar(&o.dir, "dir", "", "Directory holding click_log.csv, impression_log.csv and server_log.csv")
	f.StringVar(&o.start, "start", "", "Window start (2006-01-02 or \"2006-01-02 15:04:05\"); defaults to the first record")
	f.StringVar(&o.end, "end", "", "Window end, inclusive; defaults to the last record")
	f.StringVarP(&o.granularity, "granularity", "g", "", "Bucket size: hourly, daily, weekly")
	f.StringArrayVarP(&o.filters, "filter", "f", nil, "Audience filter attr=v1,v2 (gender, age, income, context, country); repeatable")
	f.StringVarP(&o.output, "output", "o", "text", "Output format: text, json")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the environment configuration and applies flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.source != "" {
		cfg.Source.Kind = o.source
	}
	if o.dir != "" {
		cfg.Source.Dir = o.dir
	}
	if o.granularity != "" {
		cfg.Engine.DefaultGranularity = o.granularity
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch o.output {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}
	return cfg, nil
}

// query resolves the window, granularity and filters against the loaded logs.
func (o *options) query(cfg *config.Config, svc *dashboard.Service) (dashboard.Query, error) {
	extent, _ := svc.Extent()
	window, err := dashboard.ParseWindow(o.start, o.end, extent)
	if err != nil {
		return dashboard.Query{}, err
	}

	g, err := analytics.ParseGranularity(cfg.Engine.DefaultGranularity)
	if err != nil {
		return dashboard.Query{}, err
	}

	filters, err := analytics.ParseFilterSet(o.filters)
	if err != nil {
		return dashboard.Query{}, err
	}

	return dashboard.Query{Window: window, Granularity: g, Filters: filters}, nil
}

func windowString(w models.TimeWindow) string {
	return w.Start.Format(models.DateLayout) + " .. " + w.End.Format(models.DateLayout)
}
