// Package cache provides the short-lived, process-wide caches used for raw
// feed responses and predictions.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock abstracts time so TTL behavior can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Store is a TTL key-value cache. Values are treated as immutable: Set
// replaces an entry, it never mutates one in place.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Evict(ctx context.Context, key string)
	Clear(ctx context.Context) error
	Stats() Stats
}

// Stats tracks cache performance.
type Stats struct {
	Name        string    `json:"name"`
	Backend     string    `json:"backend"`
	Entries     int64     `json:"entries"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Sets        int64     `json:"sets"`
	Evictions   int64     `json:"evictions"`
	Expired     int64     `json:"expired"`
	LastCleanup time.Time `json:"lastCleanup,omitempty"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// LogStats logs a cache statistics snapshot.
func LogStats(logger *logrus.Logger, s Stats) {
	logger.WithFields(logrus.Fields{
		"cache":     s.Name,
		"backend":   s.Backend,
		"entries":   s.Entries,
		"hits":      s.Hits,
		"misses":    s.Misses,
		"sets":      s.Sets,
		"evictions": s.Evictions,
		"hit_rate":  fmt.Sprintf("%.2f%%", s.HitRate()),
	}).Info("Cache stats")
}

type memoryEntry[V any] struct {
	value     V
	cachedAt  time.Time
	expiresAt time.Time
}

// TTLCache is an in-memory Store guarded by a RWMutex. Expired entries are
// dropped lazily on read and in bulk by Cleanup.
type TTLCache[V any] struct {
	name    string
	ttl     time.Duration
	clock   Clock
	mu      sync.RWMutex
	entries map[string]memoryEntry[V]
	stats   Stats
}

// NewTTLCache creates an in-memory cache. A nil clock uses the wall clock.
func NewTTLCache[V any](name string, ttl time.Duration, clock Clock) *TTLCache[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTLCache[V]{
		name:    name,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry[V]),
		stats:   Stats{Name: name, Backend: "memory"},
	}
}

// Get returns the cached value for key if it has not expired.
func (c *TTLCache[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(entry.expiresAt) {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return entry.value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Misses++
	if ok {
		// Re-check under the write lock: a concurrent Set may have replaced it.
		if current, still := c.entries[key]; still && !now.Before(current.expiresAt) {
			delete(c.entries, key)
			c.stats.Expired++
		}
	}
	return zero, false
}

// Set stores value under key for the cache TTL.
func (c *TTLCache[V]) Set(_ context.Context, key string, value V) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry[V]{value: value, cachedAt: now, expiresAt: now.Add(c.ttl)}
	c.stats.Sets++
}

// Evict removes key.
func (c *TTLCache[V]) Evict(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
	}
}

// Clear drops every entry.
func (c *TTLCache[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]memoryEntry[V])
	return nil
}

// Cleanup drops every expired entry and returns how many were removed.
func (c *TTLCache[V]) Cleanup() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Expired += int64(removed)
	c.stats.LastCleanup = now
	return removed
}

// Stats returns a snapshot of cache statistics.
func (c *TTLCache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = int64(len(c.entries))
	return s
}

// StartCleanup runs Cleanup on every interval until ctx is done.
func (c *TTLCache[V]) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}
