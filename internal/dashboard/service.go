package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/cache"
	"github.com/radiusdt/campaign-dashboard/internal/config"
	"github.com/radiusdt/campaign-dashboard/internal/geo"
	"github.com/radiusdt/campaign-dashboard/internal/metrics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
	"github.com/radiusdt/campaign-dashboard/internal/storage"
)

// ErrNotLoaded is returned when a query arrives before the first reload.
var ErrNotLoaded = errors.New("campaign logs not loaded")

// Options configures a Service.
type Options struct {
	Source  storage.Source
	Engine  config.EngineConfig
	Cache   cache.Cache  // nil means an in-process cache when caching is enabled
	Geo     geo.Resolver // optional
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Status describes the loaded session.
type Status struct {
	SessionID   string             `json:"session_id"`
	Source      string             `json:"source"`
	Generation  uint64             `json:"generation"`
	LoadedAt    time.Time          `json:"loaded_at"`
	Impressions int                `json:"impressions"`
	Clicks      int                `json:"clicks"`
	ServerLogs  int                `json:"server_logs"`
	Extent      *models.TimeWindow `json:"extent,omitempty"`
}

// Service is one analysis session: a log store, the engine built over its
// current snapshot and a metrics cache.
type Service struct {
	sessionID  string
	source     storage.Source
	store      *storage.InMemoryLogStore
	cache      cache.Cache
	geo        geo.Resolver
	bounce     analytics.BounceRule
	maxBuckets int
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu       sync.RWMutex
	engine   *cache.CachedEngine
	loadedAt time.Time
}

// New creates a session. Logs are not read until Reload is called.
func New(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("log source is required")
	}
	rule, err := BounceRuleFromConfig(opts.Engine)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := opts.Cache
	if c == nil && opts.Engine.CacheEnabled {
		c = cache.NewMemoryCache(opts.Engine.CacheMaxEntries)
	}

	id := uuid.NewString()
	return &Service{
		sessionID:  id,
		source:     opts.Source,
		store:      storage.NewInMemoryLogStore(storage.Snapshot{}),
		cache:      c,
		geo:        opts.Geo,
		bounce:     rule,
		maxBuckets: opts.Engine.MaxBuckets,
		metrics:    opts.Metrics,
		logger:     logger.With(zap.String("session_id", id)),
	}, nil
}

// BounceRuleFromConfig converts the engine settings into a BounceRule.
func BounceRuleFromConfig(cfg config.EngineConfig) (analytics.BounceRule, error) {
	rule := analytics.DefaultBounceRule
	switch cfg.BounceMode {
	case "", config.BounceByPages:
		rule.Mode = analytics.BounceByPages
	case config.BounceByDuration:
		rule.Mode = analytics.BounceByDuration
	default:
		return rule, fmt.Errorf("unknown bounce mode %q", cfg.BounceMode)
	}
	if cfg.BounceMaxPages > 0 {
		rule.MaxPages = cfg.BounceMaxPages
	}
	if cfg.BounceMaxDuration > 0 {
		rule.MaxDuration = cfg.BounceMaxDuration
	}
	return rule, nil
}

// SessionID identifies this session in logs and API responses.
func (s *Service) SessionID() string { return s.sessionID }

// =============================================
// Reload
// =============================================

// Reload reads the logs from the source, swaps them into the store and
// rebuilds the engine. On failure the previous snapshot stays in place.
func (s *Service) Reload(ctx context.Context) (Status, error) {
	start := time.Now()

	snap, err := s.source.Load(ctx)
	if err != nil {
		s.recordReload(err, storage.Snapshot{}, 0)
		s.logger.Error("failed to reload campaign logs",
			zap.String("source", s.source.Name()),
			zap.Error(err),
		)
		return Status{}, fmt.Errorf("failed to load logs from %s: %w", s.source.Name(), err)
	}

	if s.geo != nil {
		snap.Impressions = geo.Enrich(s.geo, snap.Impressions, s.metrics, s.logger)
	}

	s.mu.Lock()
	generation := s.store.Replace(*snap)
	engine := analytics.NewEngine(s.store, analytics.WithBounceRule(s.bounce))
	if mem, ok := s.cache.(*cache.MemoryCache); ok {
		_ = mem.Purge(ctx)
	}
	s.engine = cache.NewCachedEngine(engine, s.cache, s.metrics, s.logger)
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()

	s.recordReload(nil, *snap, generation)
	s.logger.Info("campaign logs loaded",
		zap.String("source", s.source.Name()),
		zap.Uint64("generation", generation),
		zap.Int("impressions", len(snap.Impressions)),
		zap.Int("clicks", len(snap.Clicks)),
		zap.Int("server_logs", len(snap.Servers)),
		zap.Duration("took", time.Since(start)),
	)
	return s.Status(), nil
}

func (s *Service) recordReload(err error, snap storage.Snapshot, generation uint64) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordReload(s.source.Name(), err, len(snap.Clicks), len(snap.Impressions), len(snap.Servers), generation)
}

// Status reports the current session state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, generation := s.store.Snapshot()
	st := Status{
		SessionID:   s.sessionID,
		Source:      s.source.Name(),
		Generation:  generation,
		LoadedAt:    s.loadedAt,
		Impressions: len(snap.Impressions),
		Clicks:      len(snap.Clicks),
		ServerLogs:  len(snap.Servers),
	}
	if s.engine != nil {
		if w, ok := s.engine.Engine().Extent(); ok {
			st.Extent = &w
		}
	}
	return st
}

func (s *Service) current() (*cache.CachedEngine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return nil, ErrNotLoaded
	}
	return s.engine, nil
}

// Extent returns the window spanned by the loaded logs.
func (s *Service) Extent() (models.TimeWindow, bool) {
	ce, err := s.current()
	if err != nil {
		return models.TimeWindow{}, false
	}
	return ce.Engine().Extent()
}

// =============================================
// Queries
// =============================================

// Summary returns the metric bundle for the query window.
func (s *Service) Summary(ctx context.Context, q Query) (analytics.ComputedMetrics, error) {
	ce, err := s.current()
	if err != nil {
		return analytics.ComputedMetrics{}, err
	}
	return ce.Compute(ctx, q.Window, q.Filters)
}

// Table returns one row of metrics per bucket of the query window.
func (s *Service) Table(ctx context.Context, q Query) ([]analytics.Row, error) {
	ce, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := analytics.BuildTableMax(q.Window, q.Granularity, s.maxBuckets, ce.MetricsFunc(ctx, q.Filters))
	if err != nil {
		return nil, err
	}
	s.observe("series", start)
	return rows, nil
}

// Series returns one metric over the buckets of the query window.
func (s *Service) Series(ctx context.Context, q Query, metric analytics.Metric) ([]analytics.Point, error) {
	metric, err := analytics.ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	rows, err := s.Table(ctx, q)
	if err != nil {
		return nil, err
	}
	return analytics.SeriesFromTable(rows, metric), nil
}

// Histogram bins the click costs of the query window.
func (s *Service) Histogram(ctx context.Context, q Query, bins int) (analytics.HistogramResult, error) {
	ce, err := s.current()
	if err != nil {
		return analytics.HistogramResult{}, err
	}

	start := time.Now()
	h, err := ce.Engine().ClickCostHistogram(q.Window, q.Filters, bins)
	if err != nil {
		return h, err
	}
	s.observe("histogram", start)
	return h, nil
}

func (s *Service) observe(kind string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordComputation(kind, time.Since(start))
	}
}
