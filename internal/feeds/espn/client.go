// Package espn adapts the ESPN site API scoreboard and team schedule
// endpoints into RawGame records and TeamStats snapshots.
package espn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
)

const (
	// BaseURL is the public ESPN site API root.
	BaseURL = "https://site.api.espn.com/apis/site/v2/sports"

	// ScheduleLookback is how many completed games feed TeamStats.
	ScheduleLookback = 10
)

// ErrUnsupportedSport is returned by FetchTeamStats for sports ESPN does not cover.
var ErrUnsupportedSport = errors.New("espn: sport not supported")

// Config configures the ESPN client.
type Config struct {
	BaseURL  string
	Fetcher  *feeds.Fetcher
	Registry *feeds.HealthRegistry
	Logger   *logrus.Logger
}

// Client is the schedule/score feed adapter.
type Client struct {
	baseURL string
	fetcher *feeds.Fetcher
	runner  feeds.Runner
	logger  *logrus.Logger
}

// New creates an ESPN client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = feeds.NewFetcher(feeds.FetcherConfig{Source: models.SourceScoreFeed, Logger: cfg.Logger})
	}
	if cfg.Registry == nil {
		cfg.Registry = feeds.NewHealthRegistry()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		fetcher: cfg.Fetcher,
		runner:  feeds.Runner{Source: models.SourceScoreFeed, Registry: cfg.Registry, Logger: cfg.Logger},
		logger:  cfg.Logger,
	}
}

// Source identifies this adapter.
func (c *Client) Source() models.SourceTag {
	return models.SourceScoreFeed
}

// FetchRawGames fetches the scoreboard for every feed date the window touches.
// The call succeeds if at least one date was fetched.
func (c *Client) FetchRawGames(ctx context.Context, sport models.Sport, window timewindow.Window) (feeds.Result, models.FeedHealth) {
	return c.runner.Run(ctx, sport, func(ctx context.Context) ([]models.RawGame, error) {
		path := sport.Info().ESPNPath
		if path == "" {
			return nil, nil
		}

		dates := window.FeedDates()
		boards := make([][]models.RawGame, len(dates))
		errs := make([]error, len(dates))

		g, gctx := errgroup.WithContext(ctx)
		for i, date := range dates {
			i, date := i, date
			g.Go(func() error {
				boards[i], errs[i] = c.fetchScoreboard(gctx, sport, path, date)
				return nil
			})
		}
		_ = g.Wait()

		var (
			games   []models.RawGame
			seen    = make(map[string]struct{})
			okCount int
		)
		for i := range dates {
			if errs[i] != nil {
				continue
			}
			okCount++
			for _, game := range boards[i] {
				if _, dup := seen[game.ID]; dup {
					continue
				}
				seen[game.ID] = struct{}{}
				games = append(games, game)
			}
		}
		if okCount == 0 && len(dates) > 0 {
			return nil, errs[0]
		}
		return games, nil
	})
}

func (c *Client) fetchScoreboard(ctx context.Context, sport models.Sport, path, date string) ([]models.RawGame, error) {
	endpoint := fmt.Sprintf("%s/%s/scoreboard?dates=%s", c.baseURL, path, url.QueryEscape(date))

	var resp scoreboardResponse
	if err := c.fetcher.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	games := make([]models.RawGame, 0, len(resp.Events))
	for _, ev := range resp.Events {
		if game, ok := toRawGame(sport, ev); ok {
			games = append(games, game)
		}
	}
	return games, nil
}

func toRawGame(sport models.Sport, ev event) (models.RawGame, bool) {
	if len(ev.Competitions) == 0 {
		return models.RawGame{}, false
	}
	comp := ev.Competitions[0]
	home, away := findSide(comp.Competitors, "home"), findSide(comp.Competitors, "away")
	if home == nil || away == nil {
		return models.RawGame{}, false
	}

	start, ok := parseDate(ev.Date)
	if !ok {
		start, _ = parseDate(comp.Date)
	}

	game := models.RawGame{
		Sport:        sport,
		HomeName:     home.Team.DisplayName,
		AwayName:     away.Team.DisplayName,
		HomeID:       home.Team.ID,
		AwayID:       away.Team.ID,
		HomeLogo:     home.Team.logo(),
		AwayLogo:     away.Team.logo(),
		StartTimeUTC: start,
		Status:       mapStatus(ev.Status, comp.Status),
		SourceTag:    models.SourceScoreFeed,
	}
	game.ID = feeds.GameID(sport, models.SourceScoreFeed, ev.ID, game.HomeName, game.AwayName, start)
	if comp.Venue != nil {
		game.Venue = comp.Venue.FullName
	}
	if len(comp.Odds) > 0 && comp.Odds[0].OverUnder != nil && *comp.Odds[0].OverUnder > 0 {
		line := *comp.Odds[0].OverUnder
		game.ConsensusTotal = &line
		game.QuoteCount = models.IntPtr(1)
	}
	return game, true
}

func findSide(competitors []competitor, side string) *competitor {
	for i := range competitors {
		if competitors[i].HomeAway == side {
			return &competitors[i]
		}
	}
	return nil
}

func mapStatus(statuses ...*status) models.GameStatus {
	for _, s := range statuses {
		if s == nil || s.Type.State == "" {
			continue
		}
		switch s.Type.State {
		case "pre":
			return models.GameStatusScheduled
		case "in":
			return models.GameStatusLive
		default:
			return models.GameStatusCompleted
		}
	}
	return models.GameStatusScheduled
}

// FetchTeamStats scans a team's schedule backward and summarizes its last
// ScheduleLookback completed games. Unlike FetchRawGames it returns errors;
// callers fall back to league averages.
func (c *Client) FetchTeamStats(ctx context.Context, sport models.Sport, teamID string) (*models.TeamStats, error) {
	path := sport.Info().ESPNPath
	if path == "" {
		return nil, ErrUnsupportedSport
	}
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("espn: team id is required")
	}

	endpoint := fmt.Sprintf("%s/%s/teams/%s/schedule", c.baseURL, path, url.PathEscape(teamID))
	var resp scheduleResponse
	if err := c.fetcher.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetching schedule for team %s: %w", teamID, err)
	}

	stats := summarizeSchedule(teamID, resp.Events, ScheduleLookback)
	if stats == nil {
		return nil, fmt.Errorf("espn: no completed games for team %s", teamID)
	}
	stats.TeamName = resp.Team.DisplayName

	c.logger.WithFields(logrus.Fields{
		"sport":        sport,
		"team_id":      teamID,
		"games_played": stats.GamesPlayed,
		"ppg":          stats.AvgPointsScored,
		"papg":         stats.AvgPointsAllowed,
	}).Debug("Team stats derived from schedule")
	return stats, nil
}

type scoredGame struct {
	scored   float64
	conceded float64
}

// summarizeSchedule keeps the last n events where both scores are known,
// in chronological order.
func summarizeSchedule(teamID string, events []event, n int) *models.TeamStats {
	sorted := append([]event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := parseDate(sorted[i].Date)
		b, _ := parseDate(sorted[j].Date)
		return a.Before(b)
	})

	var picked []scoredGame
	for i := len(sorted) - 1; i >= 0 && len(picked) < n; i-- {
		ev := sorted[i]
		if len(ev.Competitions) == 0 {
			continue
		}
		var own, opp *competitor
		for j := range ev.Competitions[0].Competitors {
			cp := &ev.Competitions[0].Competitors[j]
			if cp.Team.ID == teamID || cp.ID == teamID {
				own = cp
			} else {
				opp = cp
			}
		}
		if own == nil || opp == nil || own.Score.Value == nil || opp.Score.Value == nil {
			continue
		}
		picked = append(picked, scoredGame{scored: *own.Score.Value, conceded: *opp.Score.Value})
	}
	if len(picked) == 0 {
		return nil
	}

	stats := &models.TeamStats{TeamID: teamID, GamesPlayed: len(picked)}
	form := make([]float64, len(picked))
	var scored, conceded float64
	for i, g := range picked {
		// picked is newest-first; recentForm is most-recent-last.
		form[len(picked)-1-i] = g.scored
		scored += g.scored
		conceded += g.conceded
	}
	stats.RecentForm = form
	stats.AvgPointsScored = scored / float64(len(picked))
	stats.AvgPointsAllowed = conceded / float64(len(picked))
	return stats
}
