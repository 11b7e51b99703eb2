package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DASHBOARD_"

// Config holds all configuration for the campaign dashboard.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Log        LogConfig        `envPrefix:"LOG_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
	Source     SourceConfig     `envPrefix:"SOURCE_"`
	Database   DatabaseConfig   `envPrefix:"DB_"`
	ClickHouse ClickHouseConfig `envPrefix:"CLICKHOUSE_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	Geo        GeoConfig        `envPrefix:"GEO_"`
	Engine     EngineConfig     `envPrefix:"ENGINE_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
}

type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"true"`
	Path      string `env:"PATH" envDefault:"/metrics"`
	Namespace string `env:"NAMESPACE" envDefault:"campaign_dashboard"`
}

// Supported log sources.
const (
	SourceCSV        = "csv"
	SourcePostgres   = "postgres"
	SourceClickHouse = "clickhouse"
)

// SourceConfig selects where campaign logs are loaded from.
type SourceConfig struct {
	Kind string `env:"KIND" envDefault:"csv"`
	Dir  string `env:"DIR" envDefault:"./logs"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"dashboard"`
	Password string `env:"PASSWORD" envDefault:""`
	DBName   string `env:"NAME" envDefault:"campaigns"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	MaxConns int    `env:"MAX_CONNS" envDefault:"5"`
	MinConns int    `env:"MIN_CONNS" envDefault:"1"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type ClickHouseConfig struct {
	Addr         string `env:"ADDR" envDefault:"localhost:9000"`
	Database     string `env:"DATABASE" envDefault:"campaigns"`
	User         string `env:"USER" envDefault:"default"`
	Password     string `env:"PASSWORD" envDefault:""`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"4"`
}

// RedisConfig configures the optional shared metrics cache.
type RedisConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"false"`
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD" envDefault:""`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"10m"`
}

// GeoConfig configures MaxMind country enrichment of impressions.
type GeoConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	DatabasePath string `env:"DB_PATH" envDefault:"/app/data/GeoLite2-Country.mmdb"`
}

// Bounce definitions.
const (
	BounceByPages    = "pages"
	BounceByDuration = "duration"
)

// EngineConfig holds metric and chart defaults.
type EngineConfig struct {
	// BounceMode selects the bounce definition: "pages" or "duration".
	BounceMode        string        `env:"BOUNCE_MODE" envDefault:"pages"`
	BounceMaxPages    int           `env:"BOUNCE_MAX_PAGES" envDefault:"1"`
	BounceMaxDuration time.Duration `env:"BOUNCE_MAX_DURATION" envDefault:"30s"`

	DefaultGranularity string `env:"DEFAULT_GRANULARITY" envDefault:"daily"`
	DefaultBins        int    `env:"DEFAULT_BINS" envDefault:"10"`

	// MaxBuckets caps the buckets of one series or table request.
	MaxBuckets int `env:"MAX_BUCKETS" envDefault:"10000"`

	CacheEnabled    bool `env:"CACHE_ENABLED" envDefault:"true"`
	CacheMaxEntries int  `env:"CACHE_MAX_ENTRIES" envDefault:"50000"`
}

type RateLimitConfig struct {
	Enabled bool    `env:"ENABLED" envDefault:"true"`
	RPS     float64 `env:"RPS" envDefault:"50"`
	Burst   int     `env:"BURST" envDefault:"20"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceCSV, SourcePostgres, SourceClickHouse:
	default:
		return fmt.Errorf("%sSOURCE_KIND must be one of csv, postgres, clickhouse, got %q", EnvPrefix, c.Source.Kind)
	}
	switch c.Engine.BounceMode {
	case BounceByPages, BounceByDuration:
	default:
		return fmt.Errorf("%sENGINE_BOUNCE_MODE must be pages or duration, got %q", EnvPrefix, c.Engine.BounceMode)
	}
	if c.Engine.DefaultBins < 1 {
		return fmt.Errorf("%sENGINE_DEFAULT_BINS must be at least 1", EnvPrefix)
	}
	if c.Engine.MaxBuckets < 1 {
		return fmt.Errorf("%sENGINE_MAX_BUCKETS must be at least 1", EnvPrefix)
	}
	if c.Engine.CacheMaxEntries < 1 {
		return fmt.Errorf("%sENGINE_CACHE_MAX_ENTRIES must be at least 1", EnvPrefix)
	}
	if c.Geo.Enabled && c.Geo.DatabasePath == "" {
		return fmt.Errorf("%sGEO_DB_PATH is required when geo enrichment is enabled", EnvPrefix)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
