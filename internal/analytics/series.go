package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// Metric names one field of ComputedMetrics for charting.
type Metric string

const (
	MetricImpressions Metric = "impressions"
	MetricClicks      Metric = "clicks"
	MetricUniques     Metric = "uniques"
	MetricBounces     Metric = "bounces"
	MetricConversions Metric = "conversions"
	MetricTotalCost   Metric = "total_cost"
	MetricCTR         Metric = "ctr"
	MetricCPC         Metric = "cpc"
	MetricCPM         Metric = "cpm"
	MetricBounceRate  Metric = "bounce_rate"
)

// Metrics lists every chartable metric.
var Metrics = []Metric{
	MetricImpressions, MetricClicks, MetricUniques, MetricBounces, MetricConversions,
	MetricTotalCost, MetricCTR, MetricCPC, MetricCPM, MetricBounceRate,
}

// ParseMetric validates a metric name; dashes are accepted for underscores.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Metrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Value extracts one metric as a float.
func (m ComputedMetrics) Value(metric Metric) float64 {
	switch metric {
	case MetricImpressions:
		return float64(m.Impressions)
	case MetricClicks:
		return float64(m.Clicks)
	case MetricUniques:
		return float64(m.Uniques)
	case MetricBounces:
		return float64(m.Bounces)
	case MetricConversions:
		return float64(m.Conversions)
	case MetricTotalCost:
		return m.TotalCost
	case MetricCTR:
		return m.CTR
	case MetricCPC:
		return m.CPC
	case MetricCPM:
		return m.CPM
	case MetricBounceRate:
		return m.BounceRate
	}
	return 0
}

// MetricsFunc computes the metric bundle of one bucket.
type MetricsFunc func(window models.TimeWindow) (ComputedMetrics, error)

// Row is one bucket of a metrics table.
type Row struct {
	Label   string            `json:"label"`
	Window  models.TimeWindow `json:"window"`
	Metrics ComputedMetrics   `json:"metrics"`
}

// Point is one bucket of a single-metric series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// BuildTable buckets window and computes every bucket with compute. Rows are
// ordered by label, which is chronological.
func BuildTable(window models.TimeWindow, g Granularity, compute MetricsFunc) ([]Row, error) {
	return BuildTableMax(window, g, DefaultMaxBuckets, compute)
}

// BuildTableMax is BuildTable with an explicit bucket cap.
func BuildTableMax(window models.TimeWindow, g Granularity, maxBuckets int, compute MetricsFunc) ([]Row, error) {
	buckets, err := BucketizeMax(window, g, maxBuckets)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(buckets))
	for _, b := range buckets {
		m, err := compute(b.Window)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", b.Label, err)
		}
		rows = append(rows, Row{Label: b.Label, Window: b.Window, Metrics: m})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows, nil
}

// SeriesFromTable projects one metric out of a table.
func SeriesFromTable(rows []Row, metric Metric) []Point {
	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{Label: r.Label, Value: r.Metrics.Value(metric)}
	}
	return points
}

// Table computes per-bucket metrics directly on the engine.
func (e *Engine) Table(window models.TimeWindow, g Granularity, filters FilterSet) ([]Row, error) {
	return BuildTable(window, g, func(w models.TimeWindow) (ComputedMetrics, error) {
		return e.Compute(w, filters)
	})
}

// Series computes one metric per bucket.
func (e *Engine) Series(window models.TimeWindow, g Granularity, filters FilterSet, metric Metric) ([]Point, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	rows, err := e.Table(window, g, filters)
	if err != nil {
		return nil, err
	}
	return SeriesFromTable(rows, metric), nil
}
