package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// Engine metrics
	Computations   *prometheus.CounterVec
	ComputeLatency *prometheus.HistogramVec
	CacheRequests  *prometheus.CounterVec

	// Log loading metrics
	RecordsLoaded *prometheus.GaugeVec
	Reloads       *prometheus.CounterVec
	Generation    prometheus.Gauge

	// HTTP metrics
	RequestErrors *prometheus.CounterVec
	RateLimitHits *prometheus.CounterVec

	// Geo metrics
	GeoLookupLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates all dashboard metrics and registers them with reg.
// A nil reg means the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		Computations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "computations_total",
				Help:      "Metric computations by kind",
			},
			[]string{"kind"}, // summary, series, histogram
		),
		ComputeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_latency_seconds",
				Help:      "Metric computation latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Metric cache lookups by result",
			},
			[]string{"result"}, // hit, miss, error
		),

		RecordsLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records_loaded",
				Help:      "Records in the current log snapshot",
			},
			[]string{"type"}, // click, impression, server
		),
		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Log reloads by source and status",
			},
			[]string{"source", "status"},
		),
		Generation: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_generation",
				Help:      "Generation of the current log snapshot",
			},
		),

		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_errors_total",
				Help:      "API requests rejected, by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),

		GeoLookupLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geo_lookup_latency_seconds",
				Help:      "GeoIP lookup latency",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01},
			},
			[]string{"cache_hit"},
		),

		gatherer: gatherer,
	}
}

// Handler returns the Prometheus metrics HTTP handler for the registry
// the metrics were created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordComputation records one computation of the given kind.
func (m *Metrics) RecordComputation(kind string, latency time.Duration) {
	m.Computations.WithLabelValues(kind).Inc()
	m.ComputeLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

// RecordCacheResult records a cache lookup result.
func (m *Metrics) RecordCacheResult(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

// RecordReload records a reload attempt and, on success, the loaded counts.
func (m *Metrics) RecordReload(source string, err error, clicks, impressions, servers int, generation uint64) {
	if err != nil {
		m.Reloads.WithLabelValues(source, "error").Inc()
		return
	}
	m.Reloads.WithLabelValues(source, "ok").Inc()
	m.RecordsLoaded.WithLabelValues("click").Set(float64(clicks))
	m.RecordsLoaded.WithLabelValues("impression").Set(float64(impressions))
	m.RecordsLoaded.WithLabelValues("server").Set(float64(servers))
	m.Generation.Set(float64(generation))
}

// RecordRequestError records a rejected API request.
func (m *Metrics) RecordRequestError(endpoint string, code int) {
	m.RequestErrors.WithLabelValues(endpoint, httpCode(code)).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordGeoLookup records a geo lookup.
func (m *Metrics) RecordGeoLookup(cacheHit bool, latency time.Duration) {
	hit := "false"
	if cacheHit {
		hit = "true"
	}
	m.GeoLookupLatency.WithLabelValues(hit).Observe(latency.Seconds())
}

func httpCode(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "unknown"
}
