package catalog

import (
	"sync"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/metrics"
)

// sessionCache holds catalog entries resolved during this process lifetime.
// Entries are cloned on the way in and out so callers never share state
// with the cache or with each other.
type sessionCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.CatalogEntry
}

func newSessionCache() *sessionCache {
	return &sessionCache{entries: make(map[string]*domain.CatalogEntry)}
}

func (c *sessionCache) get(key string) (*domain.CatalogEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		metrics.CatalogSessionCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CatalogSessionCache.WithLabelValues("hit").Inc()
	return e.Clone(), true
}

func (c *sessionCache) set(e *domain.CatalogEntry) {
	c.mu.Lock()
	c.entries[e.CatalogKey] = e.Clone()
	n := len(c.entries)
	c.mu.Unlock()
	metrics.CatalogSessionCacheSize.Set(float64(n))
}

// update applies fn to the cached entry if one exists.
func (c *sessionCache) update(key string, fn func(e *domain.CatalogEntry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		fn(e)
	}
}

func (c *sessionCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*domain.CatalogEntry)
	c.mu.Unlock()
	metrics.CatalogSessionCacheSize.Set(0)
}

func (c *sessionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
