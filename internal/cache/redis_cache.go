package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisEntry[V any] struct {
	Value     V         `json:"value"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisCache is a Store backed by Redis. Entries are JSON encoded and carry
// their own expiry so the injected clock is authoritative even if Redis has
// not yet expired the key.
type RedisCache[V any] struct {
	redis  redis.Cmdable
	ttl    time.Duration
	prefix string
	clock  Clock
	logger *logrus.Logger

	mu    sync.Mutex
	stats Stats
}

// NewRedisCache creates a Redis-backed cache whose keys live under prefix.
func NewRedisCache[V any](client redis.Cmdable, name, prefix string, ttl time.Duration, clock Clock, logger *logrus.Logger) *RedisCache[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache[V]{
		redis:  client,
		ttl:    ttl,
		prefix: prefix,
		clock:  clock,
		logger: logger,
		stats:  Stats{Name: name, Backend: "redis"},
	}
}

// Get retrieves and decodes the value for key.
func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithFields(logrus.Fields{"cache": c.stats.Name, "key": key}).WithError(err).Warn("Redis cache read failed")
		}
		c.record(func(s *Stats) { s.Misses++ })
		return zero, false
	}

	var entry redisEntry[V]
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithFields(logrus.Fields{"cache": c.stats.Name, "key": key}).WithError(err).Warn("Redis cache entry undecodable")
		c.record(func(s *Stats) { s.Misses++ })
		return zero, false
	}

	if !c.clock.Now().Before(entry.ExpiresAt) {
		c.redis.Del(ctx, c.prefix+key)
		c.record(func(s *Stats) { s.Misses++; s.Expired++ })
		return zero, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return entry.Value, true
}

// Set encodes value and stores it with the cache TTL.
func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) {
	now := c.clock.Now()
	data, err := json.Marshal(redisEntry[V]{Value: value, CachedAt: now, ExpiresAt: now.Add(c.ttl)})
	if err != nil {
		c.logger.WithFields(logrus.Fields{"cache": c.stats.Name, "key": key}).WithError(err).Warn("Redis cache entry unencodable")
		return
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.WithFields(logrus.Fields{"cache": c.stats.Name, "key": key}).WithError(err).Warn("Redis cache write failed")
		return
	}
	c.record(func(s *Stats) { s.Sets++ })
}

// Evict deletes key.
func (c *RedisCache[V]) Evict(ctx context.Context, key string) {
	n, err := c.redis.Del(ctx, c.prefix+key).Result()
	if err != nil {
		c.logger.WithFields(logrus.Fields{"cache": c.stats.Name, "key": key}).WithError(err).Warn("Redis cache evict failed")
		return
	}
	if n > 0 {
		c.record(func(s *Stats) { s.Evictions++ })
	}
}

// Clear removes every key under the cache prefix.
func (c *RedisCache[V]) Clear(ctx context.Context) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}
	return nil
}

// Stats returns a snapshot of statistics. Entries is counted with SCAN.
func (c *RedisCache[V]) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()

	if keys, err := c.keys(ctx); err == nil {
		s.Entries = int64(len(keys))
	}
	return s
}

func (c *RedisCache[V]) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}
	return keys, nil
}

func (c *RedisCache[V]) record(update func(*Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
