package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/metrics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// CachedEngine memoizes Engine.Compute. Cache failures are logged and the
// result is computed directly.
type CachedEngine struct {
	engine  *analytics.Engine
	cache   Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCachedEngine wraps engine. A nil cache disables caching.
func NewCachedEngine(engine *analytics.Engine, c Cache, m *metrics.Metrics, logger *zap.Logger) *CachedEngine {
	return &CachedEngine{
		engine:  engine,
		cache:   c,
		metrics: m,
		logger:  logger,
	}
}

// Engine returns the wrapped engine.
func (ce *CachedEngine) Engine() *analytics.Engine { return ce.engine }

// Compute returns the metrics for window and filters, consulting the cache first.
func (ce *CachedEngine) Compute(ctx context.Context, window models.TimeWindow, filters analytics.FilterSet) (analytics.ComputedMetrics, error) {
	if err := window.Validate(); err != nil {
		return analytics.ComputedMetrics{}, err
	}
	if ce.cache == nil {
		return ce.compute(window, filters)
	}

	key := Key(ce.engine.CacheScope(), window, filters)

	cached, ok, err := ce.cache.Get(ctx, key)
	switch {
	case err != nil:
		ce.record("error")
		ce.logger.Warn("metrics cache lookup failed", zap.String("key", key), zap.Error(err))
	case ok:
		ce.record("hit")
		return cached, nil
	default:
		ce.record("miss")
	}

	m, err := ce.compute(window, filters)
	if err != nil {
		return m, err
	}

	if err := ce.cache.Set(ctx, key, m); err != nil {
		ce.logger.Warn("failed to store metrics in cache", zap.String("key", key), zap.Error(err))
	}
	return m, nil
}

// MetricsFunc adapts Compute for analytics.BuildTable.
func (ce *CachedEngine) MetricsFunc(ctx context.Context, filters analytics.FilterSet) analytics.MetricsFunc {
	return func(window models.TimeWindow) (analytics.ComputedMetrics, error) {
		return ce.Compute(ctx, window, filters)
	}
}

// Purge clears the underlying cache.
func (ce *CachedEngine) Purge(ctx context.Context) error {
	if ce.cache == nil {
		return nil
	}
	return ce.cache.Purge(ctx)
}

func (ce *CachedEngine) compute(window models.TimeWindow, filters analytics.FilterSet) (analytics.ComputedMetrics, error) {
	start := time.Now()
	m, err := ce.engine.Compute(window, filters)
	if err == nil && ce.metrics != nil {
		ce.metrics.RecordComputation("summary", time.Since(start))
	}
	return m, err
}

func (ce *CachedEngine) record(result string) {
	if ce.metrics != nil {
		ce.metrics.RecordCacheResult(result)
	}
}
