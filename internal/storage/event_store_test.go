package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

func TestInMemoryLogStore_Replace(t *testing.T) {
	s := NewInMemoryLogStore(Snapshot{})
	assert.Equal(t, uint64(1), s.Generation())
	assert.Empty(t, s.ClickLogs())

	gen := s.Replace(Snapshot{
		Clicks:  []models.ClickRecord{{UserID: "u1"}},
		Servers: []models.ServerRecord{{UserID: "u1"}, {UserID: "u2"}},
	})
	assert.Equal(t, uint64(2), gen)
	assert.Len(t, s.ClickLogs(), 1)
	assert.Len(t, s.ServerLogs(), 2)
	assert.Empty(t, s.ImpressionLogs())

	snap, g := s.Snapshot()
	assert.Equal(t, gen, g)
	assert.Equal(t, 3, snap.Len())
}

func TestInMemoryLogStore_ConcurrentReaders(t *testing.T) {
	s := NewInMemoryLogStore(Snapshot{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Replace(Snapshot{Clicks: make([]models.ClickRecord, 3)})
		}()
		go func() {
			defer wg.Done()
			snap, _ := s.Snapshot()
			assert.Contains(t, []int{0, 3}, len(snap.Clicks))
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(9), s.Generation())
}
