// Package oddsapi adapts The Odds API v4 totals markets into RawGame records
// carrying summarized market features.
package oddsapi

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/market"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
)

// BaseURL is the public Odds API root.
const BaseURL = "https://api.the-odds-api.com"

// Config configures the Odds API client.
type Config struct {
	BaseURL    string
	APIKey     string
	Regions    string
	Bookmakers []string
	Fetcher    *feeds.Fetcher
	Registry   *feeds.HealthRegistry
	Logger     *logrus.Logger
}

// Client is the odds feed adapter.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	bookmakers []string
	fetcher    *feeds.Fetcher
	runner     feeds.Runner
	logger     *logrus.Logger
}

// New creates an Odds API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Regions == "" {
		cfg.Regions = "us"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = feeds.NewFetcher(feeds.FetcherConfig{Source: models.SourceOddsFeed, Logger: cfg.Logger})
	}
	if cfg.Registry == nil {
		cfg.Registry = feeds.NewHealthRegistry()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		regions:    cfg.Regions,
		bookmakers: cfg.Bookmakers,
		fetcher:    cfg.Fetcher,
		runner:     feeds.Runner{Source: models.SourceOddsFeed, Registry: cfg.Registry, Logger: cfg.Logger},
		logger:     cfg.Logger,
	}
}

// Source identifies this adapter.
func (c *Client) Source() models.SourceTag {
	return models.SourceOddsFeed
}

// FetchRawGames fetches totals odds for sport commencing inside window.
func (c *Client) FetchRawGames(ctx context.Context, sport models.Sport, window timewindow.Window) (feeds.Result, models.FeedHealth) {
	return c.runner.Run(ctx, sport, func(ctx context.Context) ([]models.RawGame, error) {
		if c.apiKey == "" {
			return nil, &feeds.FetchError{Source: models.SourceOddsFeed, Kind: feeds.KindMissingAPIKey}
		}
		key := sport.Info().OddsKey
		if key == "" {
			return nil, nil
		}

		var events []event
		if err := c.fetcher.GetJSON(ctx, c.oddsURL(key, window), &events); err != nil {
			return nil, fmt.Errorf("fetching %s odds: %w", key, err)
		}

		games := make([]models.RawGame, 0, len(events))
		for _, ev := range events {
			games = append(games, toRawGame(sport, ev))
		}
		return games, nil
	})
}

func (c *Client) oddsURL(sportKey string, window timewindow.Window) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", "totals")
	q.Set("oddsFormat", "american")
	if len(c.bookmakers) > 0 {
		q.Set("bookmakers", strings.Join(c.bookmakers, ","))
	}
	if !window.StartUTC.IsZero() {
		q.Set("commenceTimeFrom", window.StartUTC.Format(time.RFC3339))
		q.Set("commenceTimeTo", window.EndUTC.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s/v4/sports/%s/odds?%s", c.baseURL, url.PathEscape(sportKey), q.Encode())
}

func toRawGame(sport models.Sport, ev event) models.RawGame {
	game := models.RawGame{
		Sport:        sport,
		HomeName:     ev.homeName(),
		AwayName:     ev.awayName(),
		StartTimeUTC: ev.startTime(),
		Status:       models.GameStatusScheduled,
		SourceTag:    models.SourceOddsFeed,
	}
	game.ID = feeds.GameID(sport, models.SourceOddsFeed, ev.ID, game.HomeName, game.AwayName, game.StartTimeUTC)

	if ev.summarized() {
		total := firstFloat(ev.ConsensusTotal, ev.Total)
		if total == nil || math.IsNaN(*total) || math.IsInf(*total, 0) {
			return game
		}
		game.ConsensusTotal = total
		game.QuoteCount = firstInt(ev.QuoteCount, ev.NumBooks)
		game.TotalDispersion = firstFloat(ev.TotalDispersion, ev.StdBooks)
		game.Market = &models.MarketFeatures{
			MeanTotal:   total,
			MedianTotal: total,
			StdTotal:    game.TotalDispersion,
			QuoteCount:  game.QuoteCount,
			Source:      models.MarketSourceLive,
		}
		return game
	}

	features := market.Summarize(ev.Bookmakers)
	if !features.Available() {
		return game
	}
	game.ConsensusTotal = features.MedianTotal
	game.QuoteCount = features.QuoteCount
	game.TotalDispersion = features.StdTotal
	game.Market = &features
	return game
}
