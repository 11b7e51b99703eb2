package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// Cache stores computed metrics by key.
type Cache interface {
	Get(ctx context.Context, key string) (analytics.ComputedMetrics, bool, error)
	Set(ctx context.Context, key string, m analytics.ComputedMetrics) error
	Purge(ctx context.Context) error
}

// Key builds the cache key for one computation. scope is the engine's
// CacheScope, which ties the entry to the log content and bounce rule.
func Key(scope string, window models.TimeWindow, filters analytics.FilterSet) string {
	return fmt.Sprintf("metrics:%s:%s:%016x", scope, window.Key(), filters.Hash())
}

// DefaultMaxEntries bounds a MemoryCache created without an explicit size.
const DefaultMaxEntries = 50000

// MemoryCache is a process-local Cache holding at most maxEntries results.
// Storing a new key into a full cache evicts an arbitrary entry.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]analytics.ComputedMetrics
	maxEntries int
}

// NewMemoryCache creates a cache; maxEntries <= 0 means DefaultMaxEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]analytics.ComputedMetrics),
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (analytics.ComputedMetrics, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[key]
	return m, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, m analytics.ComputedMetrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = m
	return nil
}

func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]analytics.ComputedMetrics)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
