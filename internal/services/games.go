package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/fusion"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/telemetry"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
	"github.com/irfndi/mto-floor-go/internal/utils"
)

// ErrGameNotFound is returned when a game id is not part of the requested slate.
var ErrGameNotFound = errors.New("game not found in window")

// SlateQuery selects one sport's games for one local date. Empty Date means
// today; empty TimeZone means the service default.
type SlateQuery struct {
	Sport    string
	Date     string
	TimeZone string
}

// Slate is the fused game list for a window plus the health of both feeds.
type Slate struct {
	Sport  models.Sport        `json:"sport"`
	Window timewindow.Window   `json:"window"`
	Games  []models.Game       `json:"games"`
	Health []models.FeedHealth `json:"health"`
}

// GameServiceConfig wires a GameService.
type GameServiceConfig struct {
	ScoreFeed       feeds.Adapter
	OddsFeed        feeds.Adapter
	Fuser           *fusion.Fuser
	Registry        *feeds.HealthRegistry
	Timeout         time.Duration
	DefaultTimeZone string
	Tracer          *telemetry.BusinessTracer
	Logger          *logrus.Logger
}

// GameService fetches both feeds concurrently, keeps the records inside the
// requested window and fuses them.
type GameService struct {
	scoreFeed feeds.Adapter
	oddsFeed  feeds.Adapter
	fuser     *fusion.Fuser
	registry  *feeds.HealthRegistry
	timeout   time.Duration
	defaultTZ string
	tracer    *telemetry.BusinessTracer
	logger    *logrus.Logger
	now       func() time.Time
}

// NewGameService creates a GameService.
func NewGameService(cfg GameServiceConfig) *GameService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Fuser == nil {
		cfg.Fuser = fusion.NewFuser(fusion.DefaultBucket, nil)
	}
	if cfg.Registry == nil {
		cfg.Registry = feeds.NewHealthRegistry()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = feeds.DefaultTimeout
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.NewBusinessTracer(nil)
	}
	return &GameService{
		scoreFeed: cfg.ScoreFeed,
		oddsFeed:  cfg.OddsFeed,
		fuser:     cfg.Fuser,
		registry:  cfg.Registry,
		timeout:   cfg.Timeout,
		defaultTZ: cfg.DefaultTimeZone,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Resolve validates q and returns its sport and window.
func (s *GameService) Resolve(q SlateQuery) (models.Sport, timewindow.Window, error) {
	sport, err := models.ParseSport(q.Sport)
	if err != nil {
		return "", timewindow.Window{}, err
	}

	tz := strings.TrimSpace(q.TimeZone)
	if tz == "" {
		tz = s.defaultTZ
	}

	var window timewindow.Window
	if strings.TrimSpace(q.Date) == "" {
		window, err = timewindow.Today(s.now(), tz)
	} else {
		window, err = timewindow.ForDate(q.Date, tz)
	}
	if err != nil {
		return "", timewindow.Window{}, err
	}
	return sport, window, nil
}

// ListGames returns the fused slate. Feed failures degrade the slate and show
// up in Health; only invalid queries return an error.
func (s *GameService) ListGames(ctx context.Context, q SlateQuery) (*Slate, error) {
	sport, window, err := s.Resolve(q)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.TraceGameListing(ctx, sport, window.Key())
	defer span.End()

	var (
		scoreRes, oddsRes       feeds.Result
		scoreHealth, oddsHealth models.FeedHealth
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scoreRes, scoreHealth = s.fetch(gctx, s.scoreFeed, sport, window)
		return nil
	})
	g.Go(func() error {
		oddsRes, oddsHealth = s.fetch(gctx, s.oddsFeed, sport, window)
		return nil
	})
	_ = g.Wait()

	score := inWindow(scoreRes.Games, window)
	odds := inWindow(oddsRes.Games, window)
	games := s.fuser.Fuse(score, odds)

	s.tracer.RecordFusion(span, telemetry.FusionMetrics{
		ScoreFeedGames: len(score),
		OddsFeedGames:  len(odds),
		FusedGames:     len(games),
		ScoreFeedOK:    scoreRes.OK,
		OddsFeedOK:     oddsRes.OK,
	})
	s.logger.WithFields(logrus.Fields{
		"sport":       sport,
		"window":      window.Key(),
		"score_games": len(score),
		"odds_games":  len(odds),
		"fused_games": len(games),
	}).Debug("Slate assembled")

	return &Slate{
		Sport:  sport,
		Window: window,
		Games:  games,
		Health: []models.FeedHealth{scoreHealth, oddsHealth},
	}, nil
}

// FindGame returns one game from the slate selected by q.
func (s *GameService) FindGame(ctx context.Context, q SlateQuery, gameID string) (models.Game, timewindow.Window, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return models.Game{}, timewindow.Window{}, utils.NewFieldError("id", "game id is required")
	}
	slate, err := s.ListGames(ctx, q)
	if err != nil {
		return models.Game{}, timewindow.Window{}, err
	}
	for _, g := range slate.Games {
		if g.ID == gameID {
			return g, slate.Window, nil
		}
	}
	return models.Game{}, slate.Window, ErrGameNotFound
}

// Schedule is the raw score-feed boundary for one local date.
func (s *GameService) Schedule(ctx context.Context, q SlateQuery) (feeds.Result, error) {
	sport, window, err := s.Resolve(q)
	if err != nil {
		return feeds.Result{}, err
	}
	res, _ := s.fetch(ctx, s.scoreFeed, sport, window)
	res.Games = inWindow(res.Games, window)
	return res, nil
}

// Odds is the raw odds-feed boundary. sport may be a sport code or an
// odds-provider key; every upcoming event is returned.
func (s *GameService) Odds(ctx context.Context, sport string) (feeds.Result, error) {
	parsed, err := models.ParseSport(sport)
	if err != nil {
		return feeds.Result{}, err
	}
	res, _ := s.fetch(ctx, s.oddsFeed, parsed, timewindow.Window{})
	return res, nil
}

// FeedHealth returns the last observed state of every feed and sport.
func (s *GameService) FeedHealth() []models.FeedHealth {
	return s.registry.Snapshot()
}

func (s *GameService) fetch(ctx context.Context, adapter feeds.Adapter, sport models.Sport, window timewindow.Window) (feeds.Result, models.FeedHealth) {
	if adapter == nil {
		return feeds.Result{OK: false, Games: []models.RawGame{}, Error: "not_configured"}, models.FeedHealth{
			Sport:         sport,
			LastError:     "not_configured",
			LastCheckedAt: s.now().UTC(),
		}
	}

	ctx, span := s.tracer.TraceFeedFetch(ctx, adapter.Source(), sport)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, health := adapter.FetchRawGames(ctx, sport, window)
	s.tracer.RecordFeedHealth(span, health)
	if res.Games == nil {
		res.Games = []models.RawGame{}
	}
	return res, health
}

// inWindow keeps the records whose start falls inside window.
func inWindow(games []models.RawGame, window timewindow.Window) []models.RawGame {
	out := make([]models.RawGame, 0, len(games))
	for _, g := range games {
		if window.Contains(g.StartTimeUTC) {
			out = append(out, g)
		}
	}
	return out
}
