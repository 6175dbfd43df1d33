package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
	"github.com/irfndi/mto-floor-go/internal/utils"
)

type MockGameFinder struct {
	mock.Mock
}

func (m *MockGameFinder) Resolve(q SlateQuery) (models.Sport, timewindow.Window, error) {
	args := m.Called(q)
	return args.Get(0).(models.Sport), args.Get(1).(timewindow.Window), args.Error(2)
}

func (m *MockGameFinder) FindGame(ctx context.Context, q SlateQuery, gameID string) (models.Game, timewindow.Window, error) {
	args := m.Called(ctx, q, gameID)
	return args.Get(0).(models.Game), args.Get(1).(timewindow.Window), args.Error(2)
}

type MockTeamStatsSource struct {
	mock.Mock
}

func (m *MockTeamStatsSource) FetchTeamStats(ctx context.Context, sport models.Sport, teamID string) (*models.TeamStats, error) {
	args := m.Called(ctx, sport, teamID)
	if st := args.Get(0); st != nil {
		return st.(*models.TeamStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func lakersCeltics() models.Game {
	line := 224.5
	return models.Game{
		ID: "NBA-401", Sport: models.SportNBA,
		HomeTeam: "Los Angeles Lakers", AwayTeam: "Boston Celtics",
		HomeTeamID: "13", AwayTeamID: "2",
		StartTimeUTC:   tipoff,
		SportsbookLine: &line,
		DataSource:     models.SourceMerged,
	}
}

func statsFor(id string, scored, allowed float64) *models.TeamStats {
	return &models.TeamStats{
		TeamID:           id,
		AvgPointsScored:  scored,
		AvgPointsAllowed: allowed,
		RecentForm:       []float64{scored - 2, scored, scored + 2},
		GamesPlayed:      10,
	}
}

func nbaWindow(t *testing.T) timewindow.Window {
	t.Helper()
	w, err := timewindow.ForDate("2025-01-09", "America/New_York")
	require.NoError(t, err)
	return w
}

func TestPredictionService_PredictGame_CachesByGameAndDate(t *testing.T) {
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}
	window := nbaWindow(t)

	finder := &MockGameFinder{}
	finder.On("Resolve", q).Return(models.SportNBA, window, nil)
	finder.On("FindGame", mock.Anything, q, "NBA-401").Return(lakersCeltics(), window, nil).Once()

	stats := &MockTeamStatsSource{}
	stats.On("FetchTeamStats", mock.Anything, models.SportNBA, "13").Return(statsFor("13", 115, 112), nil)
	stats.On("FetchTeamStats", mock.Anything, models.SportNBA, "2").Return(statsFor("2", 118, 108), nil)

	predictions := cache.NewTTLCache[models.MTOPrediction]("predictions", 5*time.Minute, nil)
	svc := NewPredictionService(PredictionServiceConfig{
		Games:       finder,
		Stats:       stats,
		Engine:      engine.New(engine.DefaultParams(), quietLogger()),
		Predictions: predictions,
		Logger:      quietLogger(),
	})

	first, cached, err := svc.PredictGame(context.Background(), q, "NBA-401")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "NBA-401", first.GameID)
	assert.Equal(t, "2025-01-09", first.AsOfDate)
	assert.Greater(t, first.ExpectedTotal, first.MTOFloor)
	assert.Equal(t, models.MarketSourceLive, first.MarketFeatures.Source)
	assert.NotContains(t, first.Notes, engine.NoteLeagueFallback)

	second, cached, err := svc.PredictGame(context.Background(), q, "NBA-401")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)

	_, ok := predictions.Get(context.Background(), PredictionCacheKey("NBA-401", "2025-01-09"))
	assert.True(t, ok)
	finder.AssertNumberOfCalls(t, "FindGame", 1)
	stats.AssertNumberOfCalls(t, "FetchTeamStats", 2)
}

func TestPredictionService_StatsFailureFallsBack(t *testing.T) {
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}
	window := nbaWindow(t)

	finder := &MockGameFinder{}
	finder.On("Resolve", q).Return(models.SportNBA, window, nil)
	finder.On("FindGame", mock.Anything, q, "NBA-401").Return(lakersCeltics(), window, nil)

	stats := &MockTeamStatsSource{}
	stats.On("FetchTeamStats", mock.Anything, models.SportNBA, mock.Anything).Return(nil, errors.New("espn down"))

	svc := NewPredictionService(PredictionServiceConfig{Games: finder, Stats: stats, Logger: quietLogger()})

	p, _, err := svc.PredictGame(context.Background(), q, "NBA-401")
	require.NoError(t, err)
	assert.Contains(t, p.Notes, engine.NoteLeagueFallback)
	assert.GreaterOrEqual(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)
}

func TestPredictionService_TeamStatsCache(t *testing.T) {
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}
	window := nbaWindow(t)

	finder := &MockGameFinder{}
	finder.On("Resolve", q).Return(models.SportNBA, window, nil)
	finder.On("FindGame", mock.Anything, q, "NBA-401").Return(lakersCeltics(), window, nil)

	stats := &MockTeamStatsSource{}
	stats.On("FetchTeamStats", mock.Anything, models.SportNBA, "13").Return(statsFor("13", 115, 112), nil)
	stats.On("FetchTeamStats", mock.Anything, models.SportNBA, "2").Return(statsFor("2", 118, 108), nil)

	svc := NewPredictionService(PredictionServiceConfig{
		Games:     finder,
		Stats:     stats,
		TeamStats: cache.NewTTLCache[models.TeamStats]("team_stats", 10*time.Minute, nil),
		Logger:    quietLogger(),
	})

	for i := 0; i < 3; i++ {
		_, cached, err := svc.PredictGame(context.Background(), q, "NBA-401")
		require.NoError(t, err)
		assert.False(t, cached)
	}
	stats.AssertNumberOfCalls(t, "FetchTeamStats", 2)
}

func TestPredictionService_OddsOnlyGameSkipsStats(t *testing.T) {
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}
	window := nbaWindow(t)
	game := lakersCeltics()
	game.HomeTeamID, game.AwayTeamID = "", ""

	finder := &MockGameFinder{}
	finder.On("Resolve", q).Return(models.SportNBA, window, nil)
	finder.On("FindGame", mock.Anything, q, "NBA-401").Return(game, window, nil)
	stats := &MockTeamStatsSource{}

	svc := NewPredictionService(PredictionServiceConfig{Games: finder, Stats: stats, Logger: quietLogger()})
	p, _, err := svc.PredictGame(context.Background(), q, "NBA-401")
	require.NoError(t, err)

	assert.Contains(t, p.Notes, engine.NoteLeagueFallback)
	stats.AssertNotCalled(t, "FetchTeamStats", mock.Anything, mock.Anything, mock.Anything)
}

func TestPredictionService_Errors(t *testing.T) {
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}
	window := nbaWindow(t)

	finder := &MockGameFinder{}
	finder.On("Resolve", q).Return(models.SportNBA, window, nil)
	finder.On("FindGame", mock.Anything, q, "NBA-999").Return(models.Game{}, window, ErrGameNotFound)
	bad := SlateQuery{Sport: "cricket"}
	finder.On("Resolve", bad).Return(models.Sport(""), timewindow.Window{}, utils.NewValidationError("unsupported sport"))

	svc := NewPredictionService(PredictionServiceConfig{Games: finder, Logger: quietLogger()})

	_, _, err := svc.PredictGame(context.Background(), q, "NBA-999")
	assert.True(t, errors.Is(err, ErrGameNotFound))

	_, _, err = svc.PredictGame(context.Background(), bad, "NBA-1")
	assert.True(t, utils.IsValidationError(err))
	finder.AssertNotCalled(t, "FindGame", mock.Anything, bad, "NBA-1")
}

func TestPredictionService_Evaluate(t *testing.T) {
	svc := NewPredictionService(PredictionServiceConfig{Logger: quietLogger()})

	p, err := svc.Evaluate(engine.Input{
		Game:      models.Game{ID: "custom", Sport: models.SportNBA},
		HomeStats: statsFor("h", 112, 110),
		AwayStats: statsFor("a", 110, 111),
		Context:   DefaultContext(models.SportNBA),
		Market:    models.NoMarket(),
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.GameID)
	assert.Equal(t, models.MarketSourceNone, p.MarketFeatures.Source)

	_, err = svc.Evaluate(engine.Input{Game: models.Game{Sport: "CURLING"}})
	assert.True(t, utils.IsValidationError(err))
}

func TestValidateInput(t *testing.T) {
	valid := func() engine.Input {
		return engine.Input{Game: models.Game{ID: "g", Sport: models.SportNFL}}
	}

	assert.NoError(t, ValidateInput(valid()))

	tests := []struct {
		name   string
		mutate func(*engine.Input)
		field  string
	}{
		{"bad sport", func(in *engine.Input) { in.Game.Sport = "X" }, "game.sport"},
		{"negative average", func(in *engine.Input) { in.HomeStats = statsFor("h", -1, 20) }, "homeStats"},
		{"nan form", func(in *engine.Input) {
			in.AwayStats = statsFor("a", 20, 20)
			in.AwayStats.RecentForm = []float64{math.NaN()}
		}, "awayStats.recentForm"},
		{"negative line", func(in *engine.Input) { in.Game.SportsbookLine = models.Float64Ptr(-3) }, "game.sportsbookLine"},
		{"infinite market", func(in *engine.Input) {
			in.Market = models.MarketFeatures{MeanTotal: models.Float64Ptr(math.Inf(1)), Source: models.MarketSourceLive}
		}, "market.meanTotal"},
		{"zero league average", func(in *engine.Input) { in.LeagueAverages = &models.LeagueAverages{} }, "leagueAverages.avgTotal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			err := ValidateInput(in)
			var ve *utils.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestMarketFor(t *testing.T) {
	game := lakersCeltics()

	m := MarketFor(game)
	assert.Equal(t, models.MarketSourceLive, m.Source)
	assert.Equal(t, 224.5, *m.MeanTotal)
	assert.Equal(t, 1, *m.QuoteCount)

	full := models.MarketFeatures{MeanTotal: models.Float64Ptr(223), QuoteCount: models.IntPtr(6), Source: models.MarketSourceCached}
	game.Market = &full
	assert.Equal(t, full, MarketFor(game))

	game.Market = nil
	game.SportsbookLine = nil
	assert.Equal(t, models.NoMarket(), MarketFor(game))
}

func TestDefaultContext(t *testing.T) {
	nba := DefaultContext(models.SportNBA)
	assert.True(t, nba.Indoor)
	assert.Equal(t, models.VenueHome, nba.Venue)
	assert.Equal(t, 3, nba.RestDays)
	assert.Nil(t, nba.Injuries)

	assert.False(t, DefaultContext(models.SportNFL).Indoor)
}
