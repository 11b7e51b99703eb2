package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/config"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// ClickHouseSource loads campaign logs from ClickHouse tables.
type ClickHouseSource struct {
	conn   driver.Conn
	logger *zap.Logger
}

// OpenClickHouse opens and pings a ClickHouse connection.
func OpenClickHouse(ctx context.Context, cfg config.ClickHouseConfig, logger *zap.Logger) (driver.Conn, error) {
	logger.Info("connecting to ClickHouse",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.Database),
	)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      5 * time.Second,
		MaxOpenConns:     cfg.MaxOpenConns,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return conn, nil
}

// NewClickHouseSource creates a log source over an open connection.
func NewClickHouseSource(conn driver.Conn, logger *zap.Logger) *ClickHouseSource {
	return &ClickHouseSource{conn: conn, logger: logger}
}

func (s *ClickHouseSource) Name() string { return "clickhouse" }

// Load reads impression_log, click_log and server_log.
func (s *ClickHouseSource) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	rows, err := s.conn.Query(ctx, `
		SELECT date, user_id, gender, age, income, context, impression_cost, ip
		FROM impression_log ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query impressions: %w", err)
	}
	for rows.Next() {
		var imp models.ImpressionRecord
		var date *time.Time
		if err := rows.Scan(&date, &imp.UserID, &imp.Gender, &imp.Age, &imp.Income,
			&imp.Context, &imp.ImpressionCost, &imp.IP); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan impression row: %w", err)
		}
		imp.Date = logDateFrom(date)
		snap.Impressions = append(snap.Impressions, imp)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("error iterating impression rows: %w", err)
	}

	rows, err = s.conn.Query(ctx, `
		SELECT date, user_id, click_cost
		FROM click_log ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	for rows.Next() {
		var click models.ClickRecord
		var date *time.Time
		if err := rows.Scan(&date, &click.UserID, &click.ClickCost); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan click row: %w", err)
		}
		click.Date = logDateFrom(date)
		snap.Clicks = append(snap.Clicks, click)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("error iterating click rows: %w", err)
	}

	rows, err = s.conn.Query(ctx, `
		SELECT entry_date, user_id, exit_date, pages_viewed, conversion
		FROM server_log ORDER BY entry_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query server logs: %w", err)
	}
	for rows.Next() {
		var rec models.ServerRecord
		var entry, exit *time.Time
		var pages int32
		var conversion uint8
		if err := rows.Scan(&entry, &rec.UserID, &exit, &pages, &conversion); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan server log row: %w", err)
		}
		rec.EntryDate = logDateFrom(entry)
		rec.ExitDate = logDateFrom(exit)
		rec.PagesViewed = int(pages)
		rec.Conversion = conversion != 0
		snap.Servers = append(snap.Servers, rec)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("error iterating server log rows: %w", err)
	}

	s.logger.Info("loaded logs from ClickHouse",
		zap.Int("impressions", len(snap.Impressions)),
		zap.Int("clicks", len(snap.Clicks)),
		zap.Int("server", len(snap.Servers)),
	)
	return snap, nil
}

func closeRows(rows driver.Rows) error {
	iterErr := rows.Err()
	if err := rows.Close(); err != nil && iterErr == nil {
		return err
	}
	return iterErr
}
