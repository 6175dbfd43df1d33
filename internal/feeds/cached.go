package feeds

import (
	"context"
	"strings"

	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
)

// CachedAdapter serves successful results from a TTL cache keyed by
// (source, sport, date window). Failures are never cached.
type CachedAdapter struct {
	inner    Adapter
	store    cache.Store[Result]
	registry *HealthRegistry
}

// NewCachedAdapter wraps inner with store.
func NewCachedAdapter(inner Adapter, store cache.Store[Result], registry *HealthRegistry) *CachedAdapter {
	return &CachedAdapter{inner: inner, store: store, registry: registry}
}

// Source returns the wrapped adapter's source.
func (c *CachedAdapter) Source() models.SourceTag {
	return c.inner.Source()
}

// FetchRawGames returns a cached result when one is fresh, otherwise
// delegates and caches a successful result.
func (c *CachedAdapter) FetchRawGames(ctx context.Context, sport models.Sport, window timewindow.Window) (Result, models.FeedHealth) {
	key := CacheKey(c.inner.Source(), sport, window)
	if res, ok := c.store.Get(ctx, key); ok {
		health, known := c.registry.Get(c.inner.Source(), sport)
		if !known {
			health = models.FeedHealth{Source: c.inner.Source(), Sport: sport, OK: true, LastCount: len(res.Games)}
		}
		return markCached(res), health
	}

	res, health := c.inner.FetchRawGames(ctx, sport, window)
	if res.OK {
		c.store.Set(ctx, key, res)
	}
	return res, health
}

// CacheKey builds the feed cache key.
func CacheKey(source models.SourceTag, sport models.Sport, window timewindow.Window) string {
	return strings.Join([]string{string(source), string(sport), window.Key()}, "|")
}

// markCached returns a copy of res whose live market features are tagged cached.
func markCached(res Result) Result {
	games := make([]models.RawGame, len(res.Games))
	for i, g := range res.Games {
		if g.Market != nil && g.Market.Source == models.MarketSourceLive {
			m := *g.Market
			m.Source = models.MarketSourceCached
			g.Market = &m
		}
		games[i] = g
	}
	res.Games = games
	res.Cached = true
	return res
}
