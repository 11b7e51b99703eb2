package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/cache"
	"github.com/radiusdt/campaign-dashboard/internal/config"
	"github.com/radiusdt/campaign-dashboard/internal/dashboard"
	"github.com/radiusdt/campaign-dashboard/internal/database"
	"github.com/radiusdt/campaign-dashboard/internal/geo"
	"github.com/radiusdt/campaign-dashboard/internal/metrics"
	"github.com/radiusdt/campaign-dashboard/internal/storage"
)

// app is a loaded dashboard session plus the resources it holds open.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	service *dashboard.Service

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// newApp connects the configured source, cache and geo database, then
// performs the initial load.
func newApp(ctx context.Context, o *options) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewMetrics(cfg.Metrics.Namespace, prometheus.NewRegistry()),
	}

	source, err := a.openSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	svc, err := dashboard.New(dashboard.Options{
		Source:  source,
		Engine:  cfg.Engine,
		Cache:   a.openCache(ctx),
		Geo:     a.openGeo(),
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = svc

	if _, err := svc.Reload(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openSource(ctx context.Context) (storage.Source, error) {
	switch a.cfg.Source.Kind {
	case config.SourcePostgres:
		db, err := database.NewPostgresDB(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return storage.NewPostgresSource(db.Pool, a.logger), nil

	case config.SourceClickHouse:
		conn, err := storage.OpenClickHouse(ctx, a.cfg.ClickHouse, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		return storage.NewClickHouseSource(conn, a.logger), nil

	case config.SourceCSV:
		return storage.NewCSVSource(a.cfg.Source.Dir, a.logger), nil
	}
	return nil, fmt.Errorf("unknown log source %q", a.cfg.Source.Kind)
}

// openCache returns the Redis cache when configured and reachable. A nil
// result lets the service fall back to its in-process cache.
func (a *app) openCache(ctx context.Context) cache.Cache {
	if !a.cfg.Redis.Enabled || !a.cfg.Engine.CacheEnabled {
		return nil
	}
	rdb, err := database.NewRedisDB(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		a.logger.Warn("Redis not available, using in-process metrics cache", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, rdb.Close)
	return cache.NewRedisCache(rdb.Client, "", a.cfg.Redis.TTL)
}

func (a *app) openGeo() geo.Resolver {
	if !a.cfg.Geo.Enabled {
		return nil
	}
	r, err := geo.NewMaxMindResolver(a.cfg.Geo.DatabasePath)
	if err != nil {
		a.logger.Warn("GeoIP database not available, country enrichment disabled", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, r.Close)
	return r
}
