package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// PostgresSource loads campaign logs from PostgreSQL tables
// impression_log, click_log and server_log.
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSource creates a new PostgreSQL-backed log source.
func NewPostgresSource(pool *pgxpool.Pool, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{pool: pool, logger: logger}
}

func (s *PostgresSource) Name() string { return "postgres" }

// Load reads every log table into a snapshot.
func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error

	if snap.Impressions, err = s.loadImpressions(ctx); err != nil {
		return nil, err
	}
	if snap.Clicks, err = s.loadClicks(ctx); err != nil {
		return nil, err
	}
	if snap.Servers, err = s.loadServerLogs(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("loaded logs from PostgreSQL",
		zap.Int("impressions", len(snap.Impressions)),
		zap.Int("clicks", len(snap.Clicks)),
		zap.Int("server", len(snap.Servers)),
	)
	return snap, nil
}

func (s *PostgresSource) loadImpressions(ctx context.Context) ([]models.ImpressionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, user_id, gender, age, income, context, impression_cost, COALESCE(ip, '')
		FROM impression_log ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list impressions: %w", err)
	}
	defer rows.Close()

	var result []models.ImpressionRecord
	for rows.Next() {
		var imp models.ImpressionRecord
		var date *time.Time

		if err := rows.Scan(&date, &imp.UserID, &imp.Gender, &imp.Age, &imp.Income,
			&imp.Context, &imp.ImpressionCost, &imp.IP); err != nil {
			return nil, fmt.Errorf("failed to scan impression: %w", err)
		}
		imp.Date = logDateFrom(date)
		result = append(result, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate impressions: %w", err)
	}
	return result, nil
}

func (s *PostgresSource) loadClicks(ctx context.Context) ([]models.ClickRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, user_id, click_cost
		FROM click_log ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var result []models.ClickRecord
	for rows.Next() {
		var click models.ClickRecord
		var date *time.Time

		if err := rows.Scan(&date, &click.UserID, &click.ClickCost); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		click.Date = logDateFrom(date)
		result = append(result, click)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clicks: %w", err)
	}
	return result, nil
}

func (s *PostgresSource) loadServerLogs(ctx context.Context) ([]models.ServerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entry_date, user_id, exit_date, pages_viewed, conversion
		FROM server_log ORDER BY entry_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list server logs: %w", err)
	}
	defer rows.Close()

	var result []models.ServerRecord
	for rows.Next() {
		var rec models.ServerRecord
		var entry, exit *time.Time

		if err := rows.Scan(&entry, &rec.UserID, &exit, &rec.PagesViewed, &rec.Conversion); err != nil {
			return nil, fmt.Errorf("failed to scan server log: %w", err)
		}
		rec.EntryDate = logDateFrom(entry)
		rec.ExitDate = logDateFrom(exit)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate server logs: %w", err)
	}
	return result, nil
}

// logDateFrom converts a nullable column into a LogDate.
func logDateFrom(t *time.Time) models.LogDate {
	if t == nil || t.IsZero() {
		return models.LogDate{}
	}
	return models.NewLogDate(*t)
}
