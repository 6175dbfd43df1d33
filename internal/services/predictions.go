package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/telemetry"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
	"github.com/irfndi/mto-floor-go/internal/utils"
)

// GameFinder resolves slate queries and looks up single games.
type GameFinder interface {
	Resolve(q SlateQuery) (models.Sport, timewindow.Window, error)
	FindGame(ctx context.Context, q SlateQuery, gameID string) (models.Game, timewindow.Window, error)
}

// TeamStatsSource supplies recent team form.
type TeamStatsSource interface {
	FetchTeamStats(ctx context.Context, sport models.Sport, teamID string) (*models.TeamStats, error)
}

// PredictionServiceConfig wires a PredictionService.
type PredictionServiceConfig struct {
	Games       GameFinder
	Stats       TeamStatsSource
	Engine      *engine.Engine
	Predictions cache.Store[models.MTOPrediction]
	TeamStats   cache.Store[models.TeamStats]
	Tracer      *telemetry.BusinessTracer
	Logger      *logrus.Logger
}

// PredictionService assembles engine inputs for live games and caches the
// resulting predictions per (game, asOfDate).
type PredictionService struct {
	games       GameFinder
	stats       TeamStatsSource
	engine      *engine.Engine
	predictions cache.Store[models.MTOPrediction]
	teamStats   cache.Store[models.TeamStats]
	tracer      *telemetry.BusinessTracer
	logger      *logrus.Logger
}

// NewPredictionService creates a PredictionService. Nil caches disable caching.
func NewPredictionService(cfg PredictionServiceConfig) *PredictionService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Engine == nil {
		cfg.Engine = engine.New(engine.DefaultParams(), cfg.Logger)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.NewBusinessTracer(nil)
	}
	return &PredictionService{
		games:       cfg.Games,
		stats:       cfg.Stats,
		engine:      cfg.Engine,
		predictions: cfg.Predictions,
		teamStats:   cfg.TeamStats,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger,
	}
}

// PredictionCacheKey identifies a cached prediction.
func PredictionCacheKey(gameID, asOfDate string) string {
	return gameID + "|" + asOfDate
}

// PredictGame returns the floor prediction for gameID within the slate
// selected by q. The bool reports a cache hit.
func (s *PredictionService) PredictGame(ctx context.Context, q SlateQuery, gameID string) (models.MTOPrediction, bool, error) {
	gameID = strings.TrimSpace(gameID)
	sport, window, err := s.games.Resolve(q)
	if err != nil {
		return models.MTOPrediction{}, false, err
	}

	ctx, span := s.tracer.TracePrediction(ctx, gameID, sport)
	defer span.End()

	key := PredictionCacheKey(gameID, window.Date)
	if s.predictions != nil {
		if p, ok := s.predictions.Get(ctx, key); ok {
			s.tracer.RecordPrediction(span, p, true)
			return p, true, nil
		}
	}

	game, window, err := s.games.FindGame(ctx, q, gameID)
	if err != nil {
		s.tracer.RecordError(span, err, "game lookup failed")
		return models.MTOPrediction{}, false, err
	}

	in := s.buildInput(ctx, game, window.Date)
	prediction := s.engine.Predict(in)

	if s.predictions != nil {
		s.predictions.Set(ctx, key, prediction)
	}
	s.tracer.RecordPrediction(span, prediction, false)
	return prediction, false, nil
}

// Evaluate runs the engine on a caller-supplied input.
func (s *PredictionService) Evaluate(in engine.Input) (models.MTOPrediction, error) {
	if err := ValidateInput(in); err != nil {
		return models.MTOPrediction{}, err
	}
	return s.engine.Predict(in), nil
}

func (s *PredictionService) buildInput(ctx context.Context, game models.Game, asOfDate string) engine.Input {
	var home, away *models.TeamStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		home = s.teamStatsFor(gctx, game.Sport, game.HomeTeamID)
		return nil
	})
	g.Go(func() error {
		away = s.teamStatsFor(gctx, game.Sport, game.AwayTeamID)
		return nil
	})
	_ = g.Wait()

	if home != nil && home.TeamName == "" {
		home.TeamName = game.HomeTeam
	}
	if away != nil && away.TeamName == "" {
		away.TeamName = game.AwayTeam
	}

	return engine.Input{
		Game:      game,
		HomeStats: home,
		AwayStats: away,
		Context:   DefaultContext(game.Sport),
		Market:    MarketFor(game),
		AsOfDate:  asOfDate,
	}
}

// teamStatsFor returns cached or fetched stats, or nil when unavailable; the
// engine then falls back to league averages.
func (s *PredictionService) teamStatsFor(ctx context.Context, sport models.Sport, teamID string) *models.TeamStats {
	if s.stats == nil || strings.TrimSpace(teamID) == "" {
		return nil
	}
	key := string(sport) + "|" + teamID
	if s.teamStats != nil {
		if st, ok := s.teamStats.Get(ctx, key); ok {
			return &st
		}
	}

	st, err := s.stats.FetchTeamStats(ctx, sport, teamID)
	if err != nil || st == nil {
		s.logger.WithFields(logrus.Fields{
			"sport":   sport,
			"team_id": teamID,
		}).WithError(err).Debug("Team stats unavailable, using league averages")
		return nil
	}
	if s.teamStats != nil {
		s.teamStats.Set(ctx, key, *st)
	}
	cp := *st
	return &cp
}

// MarketFor derives market features for a fused game. A bare sportsbook line
// counts as a single quote.
func MarketFor(game models.Game) models.MarketFeatures {
	if game.Market != nil && game.Market.Available() {
		return *game.Market
	}
	if game.SportsbookLine != nil && *game.SportsbookLine > 0 {
		line := *game.SportsbookLine
		return models.MarketFeatures{
			MeanTotal:   &line,
			MedianTotal: models.Float64Ptr(line),
			QuoteCount:  models.IntPtr(1),
			Source:      models.MarketSourceLive,
		}
	}
	return models.NoMarket()
}

// DefaultContext is the situational context used for live games: a home
// venue, roof by sport, three rest days and no weather or injury report.
func DefaultContext(sport models.Sport) models.GameContext {
	return models.GameContext{
		Venue:    models.VenueHome,
		Indoor:   sport.Indoor(),
		RestDays: 3,
	}
}

// ValidateInput rejects engine inputs that cannot produce a meaningful floor.
func ValidateInput(in engine.Input) error {
	if !in.Game.Sport.Valid() {
		return utils.NewFieldError("game.sport", fmt.Sprintf("unsupported sport %q", in.Game.Sport))
	}
	for name, st := range map[string]*models.TeamStats{"homeStats": in.HomeStats, "awayStats": in.AwayStats} {
		if st == nil {
			continue
		}
		if !finiteNonNegative(st.AvgPointsScored) || !finiteNonNegative(st.AvgPointsAllowed) {
			return utils.NewFieldError(name, "averages must be finite and non-negative")
		}
		for _, v := range st.RecentForm {
			if !finiteNonNegative(v) {
				return utils.NewFieldError(name+".recentForm", "scores must be finite and non-negative")
			}
		}
	}
	if in.Game.SportsbookLine != nil && !finiteNonNegative(*in.Game.SportsbookLine) {
		return utils.NewFieldError("game.sportsbookLine", "must be finite and non-negative")
	}
	if m := in.Market.MeanTotal; m != nil && !finiteNonNegative(*m) {
		return utils.NewFieldError("market.meanTotal", "must be finite and non-negative")
	}
	if la := in.LeagueAverages; la != nil && (!finiteNonNegative(la.AvgTotal) || la.AvgTotal == 0) {
		return utils.NewFieldError("leagueAverages.avgTotal", "must be positive")
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
