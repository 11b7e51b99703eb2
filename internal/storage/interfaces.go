package storage

import (
	"context"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// =============================================
// LOG STORE
// =============================================

// LogStore exposes the parsed campaign logs of one analysis session.
// Returned slices are shared snapshots and must be treated as read-only.
type LogStore interface {
	ClickLogs() []models.ClickRecord
	ImpressionLogs() []models.ImpressionRecord
	ServerLogs() []models.ServerRecord

	// Generation changes every time the underlying logs are replaced.
	Generation() uint64
}

// Snapshot is a complete, immutable set of campaign logs.
type Snapshot struct {
	Clicks      []models.ClickRecord
	Impressions []models.ImpressionRecord
	Servers     []models.ServerRecord
}

// Len returns the total number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Clicks) + len(s.Impressions) + len(s.Servers)
}

// =============================================
// LOG SOURCES
// =============================================

// Source loads a snapshot from an external system (files, PostgreSQL, ClickHouse).
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	Name() string
}
