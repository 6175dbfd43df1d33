package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/mto-floor-go/internal/fusion"
	"github.com/irfndi/mto-floor-go/internal/models"
)

func newTestEngine() *Engine {
	e := New(Params{}, logrus.New())
	e.now = func() time.Time { return time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC) }
	return e
}

func lakersStats() *models.TeamStats {
	return &models.TeamStats{
		TeamID:           "13",
		TeamName:         "Los Angeles Lakers",
		AvgPointsScored:  112,
		AvgPointsAllowed: 110,
		RecentForm:       []float64{108, 115, 110, 118, 112, 109, 114, 111, 113, 116},
		GamesPlayed:      30,
	}
}

func celticsStats() *models.TeamStats {
	return &models.TeamStats{
		TeamID:           "2",
		TeamName:         "Boston Celtics",
		AvgPointsScored:  114,
		AvgPointsAllowed: 108,
		RecentForm:       []float64{110, 117, 112, 115, 113, 118, 111, 116, 114, 112},
		GamesPlayed:      30,
	}
}

func indoorContext() models.GameContext {
	return models.GameContext{Venue: models.VenueHome, Indoor: true, RestDays: 2, Injuries: []models.Injury{}}
}

func TestPredict_CelticsAtLakersEndToEnd(t *testing.T) {
	tip := time.Date(2025, 1, 10, 3, 30, 0, 0, time.UTC)
	market := &models.MarketFeatures{
		MeanTotal:  models.Float64Ptr(224.5),
		StdTotal:   models.Float64Ptr(1.2),
		QuoteCount: models.IntPtr(3),
		Source:     models.MarketSourceLive,
	}
	scoreFeed := []models.RawGame{{
		ID: "NBA-401", Sport: models.SportNBA, HomeName: "LA Lakers", AwayName: "Boston Celtics",
		HomeID: "13", AwayID: "2", StartTimeUTC: tip, SourceTag: models.SourceScoreFeed,
	}}
	oddsFeed := []models.RawGame{{
		ID: "NBA-e1", Sport: models.SportNBA, HomeName: "Los Angeles Lakers", AwayName: "Boston Celtics",
		StartTimeUTC: tip, ConsensusTotal: models.Float64Ptr(224.5), QuoteCount: models.IntPtr(3),
		TotalDispersion: models.Float64Ptr(1.2), Market: market, SourceTag: models.SourceOddsFeed,
	}}

	games := fusion.NewFuser(30*time.Minute, nil).Fuse(scoreFeed, oddsFeed)
	require.Len(t, games, 1)
	game := games[0]
	require.NotNil(t, game.SportsbookLine)
	assert.Equal(t, 224.5, *game.SportsbookLine)
	assert.Equal(t, models.SourceMerged, game.DataSource)

	pred := newTestEngine().Predict(Input{
		Game:      game,
		HomeStats: lakersStats(),
		AwayStats: celticsStats(),
		Context:   indoorContext(),
		Market:    *game.Market,
		AsOfDate:  "2025-01-09",
	})

	assert.Equal(t, "NBA-401", pred.GameID)
	assert.InDelta(t, 222, pred.ExpectedTotal, 222*0.2)
	assert.InDelta(t, 222.4, pred.ExpectedTotal, 0.05)
	assert.Less(t, pred.MTOFloor, pred.ExpectedTotal)
	assert.Equal(t, 179.6, pred.MTOFloor)
	assert.Contains(t, pred.Notes, NoteMarketCap)
	assert.Contains(t, pred.Notes, NoteMarketBlend)
	assert.Equal(t, 224.5-pred.MTOFloor <= 4, pred.StaysAway)
	assert.False(t, pred.StaysAway)
	assert.Equal(t, 0.95, pred.CoverageTarget)
	assert.Equal(t, 1.0, pred.DataCompleteness)
	assert.Equal(t, 0.93, pred.Confidence)
	assert.Equal(t, models.ConfidenceHigh, pred.ConfidenceBand)
	assert.Equal(t, "2025-01-09", pred.AsOfDate)
	assert.Equal(t, models.MarketSourceLive, pred.MarketFeatures.Source)

	var marketFactor *models.KeyFactor
	for i := range pred.KeyFactors {
		if pred.KeyFactors[i].Factor == "Market Data" {
			marketFactor = &pred.KeyFactors[i]
		}
	}
	require.NotNil(t, marketFactor)
	assert.InDelta(t, 0.07, marketFactor.Weight, 1e-9)
}

func TestPredict_LeagueFallbackWithoutStats(t *testing.T) {
	pred := newTestEngine().Predict(Input{Game: models.Game{ID: "NBA-1", Sport: models.SportNBA}})

	assert.Equal(t, 223.0, pred.ExpectedTotal)
	assert.Equal(t, 200.0, pred.MTOFloor)
	assert.False(t, pred.StaysAway)
	assert.Equal(t, 0.6, pred.DataCompleteness)
	assert.Equal(t, 0.51, pred.Confidence)
	assert.Equal(t, models.ConfidenceLow, pred.ConfidenceBand)
	assert.Contains(t, pred.Notes, NoteLeagueFallback)
	assert.Contains(t, pred.Notes, NoteEarlySeason)
	assert.NotContains(t, pred.Notes, NoteMarketCap)

	assert.Equal(t, models.MarketSourceNone, pred.MarketFeatures.Source)
	assert.Nil(t, pred.MarketFeatures.MeanTotal)
	assert.Nil(t, pred.MarketFeatures.StdTotal)
	assert.Nil(t, pred.MarketFeatures.QuoteCount)
}

func TestPredict_StatsFallbackLowersCompletenessAndConfidence(t *testing.T) {
	e := newTestEngine()
	withStats := func(home, away *models.TeamStats) Input {
		return Input{
			Game:      models.Game{ID: "NBA-1", Sport: models.SportNBA, HomeTeam: "Los Angeles Lakers", AwayTeam: "Boston Celtics"},
			HomeStats: home,
			AwayStats: away,
			Context:   indoorContext(),
		}
	}
	tenGames := func(s *models.TeamStats) *models.TeamStats {
		s.GamesPlayed = 10
		return s
	}

	observed := e.Predict(withStats(tenGames(lakersStats()), tenGames(celticsStats())))
	oneSide := e.Predict(withStats(tenGames(lakersStats()), nil))
	neither := e.Predict(withStats(nil, nil))

	assert.InDelta(t, 0.9, observed.DataCompleteness, 1e-9)
	assert.InDelta(t, 0.8, oneSide.DataCompleteness, 1e-9)
	assert.InDelta(t, 0.7, neither.DataCompleteness, 1e-9)
	assert.NotContains(t, observed.Notes, NoteLeagueFallback)
	assert.Contains(t, oneSide.Notes, NoteLeagueFallback)

	assert.Greater(t, observed.Confidence, oneSide.Confidence)
	assert.Greater(t, oneSide.Confidence, neither.Confidence)
	assert.InDelta(t, 0.6, neither.Confidence, 0.011)
}

func TestPredict_SampleBonusAtLookbackSize(t *testing.T) {
	e := newTestEngine()
	in := Input{
		Game:      models.Game{ID: "NBA-1", Sport: models.SportNBA},
		HomeStats: lakersStats(),
		AwayStats: celticsStats(),
		Context:   indoorContext(),
	}
	in.HomeStats.GamesPlayed, in.AwayStats.GamesPlayed = 10, 10
	full := e.Predict(in)

	in.AwayStats.GamesPlayed = 9
	short := e.Predict(in)

	assert.InDelta(t, 0.15, full.Confidence-short.Confidence, 0.011)
	assert.Equal(t, full.DataCompleteness, short.DataCompleteness)
}

func TestPredict_StayAwayOnThinEdge(t *testing.T) {
	e := newTestEngine()
	game := models.Game{ID: "NHL-1", Sport: models.SportNHL, SportsbookLine: models.Float64Ptr(6.5)}

	pred := e.Predict(Input{Game: game})
	assert.True(t, pred.StaysAway)
	assert.InDelta(t, 2.7, pred.MTOFloor, 0.05)

	game.SportsbookLine = nil
	assert.False(t, e.Predict(Input{Game: game}).StaysAway, "no reference means no stay-away signal")
}

func TestPredict_MarketAbsenceDoesNotMoveModel(t *testing.T) {
	e := newTestEngine()
	in := Input{
		Game:      models.Game{ID: "NBA-1", Sport: models.SportNBA},
		HomeStats: lakersStats(),
		AwayStats: celticsStats(),
		Context:   indoorContext(),
	}

	none := e.Predict(in)
	in.Market = models.NoMarket()
	explicit := e.Predict(in)

	assert.Equal(t, 222.2, none.ExpectedTotal)
	assert.Equal(t, none.ExpectedTotal, explicit.ExpectedTotal)
	assert.Equal(t, none.MTOFloor, explicit.MTOFloor)
	assert.NotContains(t, none.Notes, NoteMarketBlend)
	assert.Equal(t, 0.9, none.DataCompleteness)
}

func outdoorInput(sport models.Sport) Input {
	return Input{
		Game: models.Game{ID: "X-1", Sport: sport, HomeTeam: "Home", AwayTeam: "Away"},
		HomeStats: &models.TeamStats{
			AvgPointsScored: 24, AvgPointsAllowed: 21, GamesPlayed: 12,
			RecentForm: []float64{20, 27, 24, 31, 17},
		},
		AwayStats: &models.TeamStats{
			AvgPointsScored: 22, AvgPointsAllowed: 23, GamesPlayed: 12,
			RecentForm: []float64{24, 21, 28, 19, 23},
		},
		Context: models.GameContext{
			Venue:    models.VenueHome,
			Weather:  &models.Weather{Temperature: models.Float64Ptr(65), WindSpeed: models.Float64Ptr(5)},
			Injuries: []models.Injury{},
		},
	}
}

func TestPredict_AdverseWeather(t *testing.T) {
	e := newTestEngine()
	calm := e.Predict(outdoorInput(models.SportNFL))

	windy := outdoorInput(models.SportNFL)
	windy.Context.Weather.WindSpeed = models.Float64Ptr(18)
	got := e.Predict(windy)

	assert.Contains(t, got.Notes, NoteWeather)
	assert.NotContains(t, calm.Notes, NoteWeather)
	assert.InDelta(t, calm.ExpectedTotal-3, got.ExpectedTotal, 0.11)
	assert.Less(t, got.MTOFloor, calm.MTOFloor)

	indoor := outdoorInput(models.SportNFL)
	indoor.Context.Indoor = true
	indoor.Context.Weather.Precipitation = true
	assert.NotContains(t, e.Predict(indoor).Notes, NoteWeather)
}

func TestPredict_LowTempoAndWeatherApplyOnce(t *testing.T) {
	e := newTestEngine()
	base := e.Predict(outdoorInput(models.SportNCAAFB))

	both := outdoorInput(models.SportNCAAFB)
	both.HomeStats.Conference = "Big Ten"
	both.Context.Weather.Temperature = models.Float64Ptr(30)
	got := e.Predict(both)

	assert.Contains(t, got.Notes, NoteConferencePace)
	assert.Contains(t, got.Notes, NoteWeather)
	assert.InDelta(t, base.ExpectedTotal-3, got.ExpectedTotal, 0.11)

	nfl := outdoorInput(models.SportNFL)
	nfl.HomeStats.Conference = "Big Ten"
	assert.NotContains(t, e.Predict(nfl).Notes, NoteConferencePace, "low tempo only applies to college football")
}

func TestPredict_LowTempoTeamsMatchWholeNames(t *testing.T) {
	e := newTestEngine()
	game := func(home, away string) Input {
		in := outdoorInput(models.SportNCAAFB)
		in.Context.Indoor = true
		in.Game.HomeTeam, in.Game.AwayTeam = home, away
		return in
	}

	tests := []struct {
		name string
		home string
		away string
		want bool
	}{
		{"listed team at home", "Iowa Hawkeyes", "Nebraska Cornhuskers", true},
		{"listed team away", "Notre Dame Fighting Irish", "Navy Midshipmen", true},
		{"short school name", "Air Force", "Boise State", true},
		{"big 12 school sharing a word", "Iowa State Cyclones", "Kansas State Wildcats", false},
		{"prefixed school", "Northern Iowa Panthers", "Illinois State Redbirds", false},
		{"similar mascot", "Kentucky Wildcats", "Arizona Wildcats", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Predict(game(tt.home, tt.away))
			if tt.want {
				assert.Contains(t, got.Notes, NoteConferencePace)
			} else {
				assert.NotContains(t, got.Notes, NoteConferencePace)
			}
		})
	}

	conf := game("Iowa State Cyclones", "Kansas State Wildcats")
	conf.AwayStats.Conference = "Big Ten Conference"
	assert.Contains(t, e.Predict(conf).Notes, NoteConferencePace)

	big12 := game("Iowa State Cyclones", "Kansas State Wildcats")
	big12.HomeStats.Conference = "Big 12"
	assert.NotContains(t, e.Predict(big12).Notes, NoteConferencePace)
}

func TestPredict_Injuries(t *testing.T) {
	e := newTestEngine()
	base := e.Predict(outdoorInput(models.SportNFL))

	in := outdoorInput(models.SportNFL)
	in.Context.Injuries = []models.Injury{
		{Player: "QB1", Impact: models.InjuryImpactHigh, Status: models.InjuryStatusOut},
		{Player: "WR1", Impact: models.InjuryImpactHigh, Status: models.InjuryStatusQuestionable},
		{Player: "RB1", Impact: models.InjuryImpactHigh, Status: models.InjuryStatusProbable},
		{Player: "K", Impact: models.InjuryImpactLow, Status: models.InjuryStatusOut},
	}
	got := e.Predict(in)

	assert.Contains(t, got.Notes, NoteInjuries)
	assert.InDelta(t, base.ExpectedTotal-4, got.ExpectedTotal, 0.11)

	in.Context.Injuries = nil
	assert.InDelta(t, base.DataCompleteness-0.05, e.Predict(in).DataCompleteness, 1e-9)
}

func TestPredict_EarlySeasonShrink(t *testing.T) {
	in := outdoorInput(models.SportNFL)
	in.AwayStats.GamesPlayed = 3

	got := newTestEngine().Predict(in)

	assert.Contains(t, got.Notes, NoteEarlySeason)
}

func TestPredict_DefenseOrRivalry(t *testing.T) {
	e := newTestEngine()
	base := e.Predict(outdoorInput(models.SportNFL))

	elite := outdoorInput(models.SportNFL)
	elite.HomeStats.DefensiveRank = models.IntPtr(3)
	elite.AwayStats.DefensiveRank = models.IntPtr(8)
	got := e.Predict(elite)
	assert.Contains(t, got.Notes, NoteDefenseRivalry)
	assert.InDelta(t, base.ExpectedTotal-3, got.ExpectedTotal, 0.11)

	oneElite := outdoorInput(models.SportNFL)
	oneElite.HomeStats.DefensiveRank = models.IntPtr(3)
	oneElite.AwayStats.DefensiveRank = models.IntPtr(20)
	assert.NotContains(t, e.Predict(oneElite).Notes, NoteDefenseRivalry)

	rivalry := outdoorInput(models.SportNFL)
	rivalry.Context.Rivalry = true
	assert.Contains(t, e.Predict(rivalry).Notes, NoteDefenseRivalry)
}

func TestPredict_MissingWeatherLowersCompleteness(t *testing.T) {
	in := outdoorInput(models.SportNFL)
	in.Context.Weather = nil

	got := newTestEngine().Predict(in)

	assert.Equal(t, 0.85, got.DataCompleteness)
}

func TestFloor_MonotonicInSigma(t *testing.T) {
	p := DefaultParams()
	for _, sport := range models.AllSports() {
		prev := p.Floor(200, 0.5, sport)
		for sigma := 1.0; sigma <= 30; sigma += 0.5 {
			floor := p.Floor(200, sigma, sport)
			assert.Less(t, floor, prev, "sport %s sigma %.1f", sport, sigma)
			prev = floor
		}
	}
	assert.Equal(t, 0.0, p.Floor(5, 10, models.SportNBA))
}

func TestPredict_ConfidenceBounds(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	sports := models.AllSports()

	for i := 0; i < 500; i++ {
		sport := sports[rng.Intn(len(sports))]
		in := Input{
			Game: models.Game{ID: "g", Sport: sport},
			HomeStats: &models.TeamStats{
				AvgPointsScored:  rng.Float64() * 120,
				AvgPointsAllowed: rng.Float64() * 120,
				GamesPlayed:      rng.Intn(40),
				RecentForm:       []float64{rng.Float64() * 130, rng.Float64() * 130},
			},
			Context: models.GameContext{Indoor: rng.Intn(2) == 0},
		}
		if rng.Intn(2) == 0 {
			in.Market = models.MarketFeatures{
				MeanTotal:  models.Float64Ptr(rng.Float64() * 250),
				StdTotal:   models.Float64Ptr(rng.Float64() * 20),
				QuoteCount: models.IntPtr(rng.Intn(30)),
				Source:     models.MarketSourceLive,
			}
		}

		pred := e.Predict(in)

		assert.GreaterOrEqual(t, pred.Confidence, 0.35)
		assert.LessOrEqual(t, pred.Confidence, 0.95)
		assert.GreaterOrEqual(t, pred.DataCompleteness, 0.0)
		assert.LessOrEqual(t, pred.DataCompleteness, 1.0)
		assert.GreaterOrEqual(t, pred.MTOFloor, 0.0)
	}
}

func TestParams_WithDefaultsNormalizesKeys(t *testing.T) {
	p := Params{
		SigmaBounds:  map[models.Sport]SigmaBounds{"nba": {Min: 8, Max: 12}},
		MarketCapPct: 0.75,
	}.WithDefaults()

	assert.Equal(t, SigmaBounds{Min: 8, Max: 12}, p.SigmaBounds[models.SportNBA])
	assert.Equal(t, SigmaBounds{Min: 2, Max: 4}, p.SigmaBounds[models.SportNHL])
	assert.Equal(t, 0.75, p.MarketCapPct)
	assert.Equal(t, 0.05, p.DefaultFloorQuantile)
	assert.Equal(t, 0.30, p.Blend.MaxWeight)
	assert.Equal(t, 0.25, p.Blend.DefaultDispersion[models.SportNHL])
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 1.645, ZScore(0.05))
	assert.Equal(t, 1.88, ZScore(0.03))
	assert.Equal(t, 1.96, ZScore(0.025))
	assert.Equal(t, 1.645, ZScore(0.2))
}

func TestTrailingAverage(t *testing.T) {
	avg, ok := trailingAverage([]float64{100, 200, 110, 120, 130, 140, 150}, 5)
	require.True(t, ok)
	assert.InDelta(t, 130, avg, 1e-9)

	avg, ok = trailingAverage([]float64{90, 110}, 5)
	require.True(t, ok)
	assert.InDelta(t, 100, avg, 1e-9)

	_, ok = trailingAverage(nil, 5)
	assert.False(t, ok)
}
