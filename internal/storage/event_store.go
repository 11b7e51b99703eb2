package storage

import (
	"sync"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// InMemoryLogStore holds the logs of the current session in memory.
// The snapshot is swapped as a whole on reload, so readers holding an older
// slice keep a consistent view.
type InMemoryLogStore struct {
	mu         sync.RWMutex
	snap       Snapshot
	generation uint64
}

// NewInMemoryLogStore creates a store holding the given snapshot.
func NewInMemoryLogStore(snap Snapshot) *InMemoryLogStore {
	return &InMemoryLogStore{snap: snap, generation: 1}
}

// =============================================
// Reads
// =============================================

func (s *InMemoryLogStore) ClickLogs() []models.ClickRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clicks
}

func (s *InMemoryLogStore) ImpressionLogs() []models.ImpressionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Impressions
}

func (s *InMemoryLogStore) ServerLogs() []models.ServerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Servers
}

func (s *InMemoryLogStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns the current logs together with their generation.
func (s *InMemoryLogStore) Snapshot() (Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.generation
}

// =============================================
// Reload
// =============================================

// Replace swaps in a new snapshot and returns the new generation.
func (s *InMemoryLogStore) Replace(snap Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = snap
	s.generation++
	return s.generation
}
