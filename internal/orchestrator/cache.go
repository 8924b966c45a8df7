package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/leadscout/internal/domain"
)

// resultCache is the in-process TTL cache for per-scraper query
// results. Safe for concurrent use; late writers from abandoned units
// land here so the next run benefits from their work.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	signals   []domain.Signal
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// cacheKey scopes entries per scraper, query, and window so a wider
// window never serves a narrower run's results.
func cacheKey(scraper, query string, windowHours int) string {
	return fmt.Sprintf("%s|%s|%d", scraper, query, windowHours)
}

func (c *resultCache) get(key string) ([]domain.Signal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.signals, true
}

func (c *resultCache) put(key string, signals []domain.Signal) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		signals:   signals,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// prune drops expired entries. Called opportunistically at the start of
// each discovery run.
func (c *resultCache) prune() {
	now := c.now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
