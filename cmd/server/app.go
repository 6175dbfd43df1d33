package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/mto-floor-go/internal/api/handlers"
	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/config"
	"github.com/irfndi/mto-floor-go/internal/database"
	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/feeds/espn"
	"github.com/irfndi/mto-floor-go/internal/feeds/oddsapi"
	"github.com/irfndi/mto-floor-go/internal/fusion"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/resilience"
	"github.com/irfndi/mto-floor-go/internal/services"
	"github.com/irfndi/mto-floor-go/internal/teams"
	"github.com/irfndi/mto-floor-go/internal/telemetry"
)

const cacheReportInterval = 5 * time.Minute

// app is the wired service graph behind the router.
type app struct {
	games       *services.GameService
	predictions *services.PredictionService
	breakers    *resilience.CircuitBreakerManager
	caches      []handlers.ManagedCache
	redis       *database.RedisClient
	logger      *logrus.Logger
}

type stores struct {
	feeds       cache.Store[feeds.Result]
	predictions cache.Store[models.MTOPrediction]
	teamStats   cache.Store[models.TeamStats]
	redis       *database.RedisClient
}

// newApp wires feeds, caches and services. Background goroutines stop when
// ctx is done.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	st, err := newStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	breakers := resilience.NewCircuitBreakerManager(cfg.CircuitBreaker, logger)
	registry := feeds.NewHealthRegistry()
	httpClient := &http.Client{}

	newFetcher := func(source models.SourceTag) *feeds.Fetcher {
		return feeds.NewFetcher(feeds.FetcherConfig{
			Source:     source,
			HTTPClient: httpClient,
			Timeout:    cfg.Feeds.Timeout,
			Retry:      cfg.Feeds.RetryPolicy(),
			Breaker:    breakers.GetOrCreate(string(source)),
			Logger:     logger,
			UserAgent:  cfg.Feeds.UserAgent,
		})
	}

	espnClient := espn.New(espn.Config{
		BaseURL:  cfg.Feeds.ESPN.BaseURL,
		Fetcher:  newFetcher(models.SourceScoreFeed),
		Registry: registry,
		Logger:   logger,
	})
	if cfg.Feeds.OddsAPI.APIKey == "" {
		logger.Warn("ODDS_API_KEY not set, odds feed will report missing_api_key")
	}
	oddsClient := oddsapi.New(oddsapi.Config{
		BaseURL:    cfg.Feeds.OddsAPI.BaseURL,
		APIKey:     cfg.Feeds.OddsAPI.APIKey,
		Regions:    cfg.Feeds.OddsAPI.Regions,
		Bookmakers: cfg.Feeds.OddsAPI.Bookmakers,
		Fetcher:    newFetcher(models.SourceOddsFeed),
		Registry:   registry,
		Logger:     logger,
	})

	tracer := telemetry.NewBusinessTracer(telemetry.GetBusinessTracer())

	games := services.NewGameService(services.GameServiceConfig{
		ScoreFeed:       feeds.NewCachedAdapter(espnClient, st.feeds, registry),
		OddsFeed:        feeds.NewCachedAdapter(oddsClient, st.feeds, registry),
		Fuser:           fusion.NewFuser(cfg.Fusion.Bucket, teams.NewNormalizer()),
		Registry:        registry,
		Timeout:         cfg.Feeds.Timeout,
		DefaultTimeZone: cfg.Server.DefaultTimeZone,
		Tracer:          tracer,
		Logger:          logger,
	})

	predictions := services.NewPredictionService(services.PredictionServiceConfig{
		Games:       games,
		Stats:       espnClient,
		Engine:      engine.New(cfg.Engine, logger),
		Predictions: st.predictions,
		TeamStats:   st.teamStats,
		Tracer:      tracer,
		Logger:      logger,
	})

	a := &app{
		games:       games,
		predictions: predictions,
		breakers:    breakers,
		caches:      []handlers.ManagedCache{st.feeds, st.predictions, st.teamStats},
		redis:       st.redis,
		logger:      logger,
	}
	a.startCacheReporting(ctx, cacheReportInterval)
	return a, nil
}

// newStores builds the three caches on the configured backend.
func newStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*stores, error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		client, err := database.NewRedisConnection(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		prefix := cfg.Cache.KeyPrefix
		return &stores{
			feeds:       cache.NewRedisCache[feeds.Result](client.Client, "feeds", prefix+"feeds:", cfg.Cache.FeedTTL, nil, logger),
			predictions: cache.NewRedisCache[models.MTOPrediction](client.Client, "predictions", prefix+"predictions:", cfg.Cache.PredictionTTL, nil, logger),
			teamStats:   cache.NewRedisCache[models.TeamStats](client.Client, "team_stats", prefix+"team_stats:", cfg.Cache.TeamStatsTTL, nil, logger),
			redis:       client,
		}, nil
	}
	if cfg.Cache.Backend != config.CacheBackendMemory {
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}

	feedCache := cache.NewTTLCache[feeds.Result]("feeds", cfg.Cache.FeedTTL, nil)
	predictionCache := cache.NewTTLCache[models.MTOPrediction]("predictions", cfg.Cache.PredictionTTL, nil)
	teamStatsCache := cache.NewTTLCache[models.TeamStats]("team_stats", cfg.Cache.TeamStatsTTL, nil)
	feedCache.StartCleanup(ctx, cfg.Cache.CleanupInterval)
	predictionCache.StartCleanup(ctx, cfg.Cache.CleanupInterval)
	teamStatsCache.StartCleanup(ctx, cfg.Cache.CleanupInterval)

	return &stores{
		feeds:       feedCache,
		predictions: predictionCache,
		teamStats:   teamStatsCache,
	}, nil
}

// startCacheReporting logs cache statistics on every interval.
func (a *app) startCacheReporting(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range a.caches {
					cache.LogStats(a.logger, c.Stats())
				}
			}
		}
	}()
}

// Close releases the Redis connection, if any.
func (a *app) Close() {
	a.redis.Close()
}
