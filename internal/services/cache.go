package services

import (
	"sync"
	"time"

	"retailpulse/pkg/contracts/domain"
)

// cacheEntry is one memoized analysis
type cacheEntry struct {
	analysis  *domain.Analysis
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// CacheStats reports the state of a ResultCache
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// ResultCache memoizes analyses by dataset fingerprint and parameters.
// Entries expire after ttl; when full the oldest entry is evicted.
type ResultCache struct {
	entries   map[string]cacheEntry
	mutex     sync.Mutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewResultCache creates a cache and starts its expiry sweeper.
// A zero ttl keeps entries until evicted.
func NewResultCache(ttl time.Duration, maxSize int) *ResultCache {
	cache := &ResultCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}

	if ttl > 0 {
		go cache.cleanup(ttl)
	}
	return cache
}

// Get returns the analysis stored under key
func (c *ResultCache) Get(key string) (*domain.Analysis, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || c.expired(entry) {
		c.missCount++
		return nil, false
	}

	entry.hitCount++
	c.entries[key] = entry
	c.hitCount++
	return entry.analysis, true
}

// Set stores an analysis under key
func (c *ResultCache) Set(key string, a *domain.Analysis) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := c.now()
	entry := cacheEntry{analysis: a, cachedAt: now}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = entry
}

// Purge drops every entry; used when the dataset changes
func (c *ResultCache) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats returns cache statistics
func (c *ResultCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := CacheStats{
		Entries:    len(c.entries),
		MaxEntries: c.maxSize,
		Hits:       c.hitCount,
		Misses:     c.missCount,
		TTLSeconds: c.ttl.Seconds(),
	}
	if total := c.hitCount + c.missCount; total > 0 {
		stats.HitRatio = float64(c.hitCount) / float64(total)
	}
	return stats
}

// Stop ends the expiry sweeper
func (c *ResultCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *ResultCache) expired(entry cacheEntry) bool {
	return !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt)
}

func (c *ResultCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *ResultCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			for key, entry := range c.entries {
				if c.expired(entry) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
