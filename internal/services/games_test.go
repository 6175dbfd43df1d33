package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
	"github.com/irfndi/mto-floor-go/internal/utils"
)

type feedCall struct {
	sport  models.Sport
	window timewindow.Window
}

// fakeFeed is a scripted feeds.Adapter.
type fakeFeed struct {
	source models.SourceTag
	result feeds.Result
	block  bool

	mu    sync.Mutex
	calls []feedCall
}

func (f *fakeFeed) Source() models.SourceTag { return f.source }

func (f *fakeFeed) FetchRawGames(ctx context.Context, sport models.Sport, window timewindow.Window) (feeds.Result, models.FeedHealth) {
	f.mu.Lock()
	f.calls = append(f.calls, feedCall{sport: sport, window: window})
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return feeds.Result{OK: false, Games: []models.RawGame{}, Error: "timeout"},
			models.FeedHealth{Source: f.source, Sport: sport, LastError: "timeout"}
	}
	health := models.FeedHealth{Source: f.source, Sport: sport, OK: f.result.OK, LastError: f.result.Error, LastCount: len(f.result.Games)}
	return f.result, health
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var tipoff = time.Date(2025, 1, 10, 0, 30, 0, 0, time.UTC)

func scoreFeedGames() []models.RawGame {
	return []models.RawGame{
		{
			ID: "NBA-401", Sport: models.SportNBA,
			HomeName: "Los Angeles Lakers", AwayName: "Boston Celtics",
			HomeID: "13", AwayID: "2",
			StartTimeUTC: tipoff, Venue: "Crypto.com Arena",
			Status: models.GameStatusScheduled, SourceTag: models.SourceScoreFeed,
		},
		{
			// 01:00 New York time on Jan 10, outside the Jan 9 window.
			ID: "NBA-402", Sport: models.SportNBA,
			HomeName: "Utah Jazz", AwayName: "Denver Nuggets",
			StartTimeUTC: time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC),
			SourceTag:    models.SourceScoreFeed,
		},
	}
}

func oddsFeedGames() []models.RawGame {
	line := 224.5
	return []models.RawGame{
		{
			ID: "NBA-e1", Sport: models.SportNBA,
			HomeName: "Los Angeles Lakers", AwayName: "Boston Celtics",
			StartTimeUTC:   tipoff.Add(5 * time.Minute),
			ConsensusTotal: &line, QuoteCount: models.IntPtr(3),
			Market: &models.MarketFeatures{
				MeanTotal: &line, MedianTotal: &line, QuoteCount: models.IntPtr(3),
				StdTotal: models.Float64Ptr(1.0), Source: models.MarketSourceLive,
			},
			SourceTag: models.SourceOddsFeed,
		},
	}
}

func newTestGameService(score, odds feeds.Adapter) *GameService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewGameService(GameServiceConfig{
		ScoreFeed:       score,
		OddsFeed:        odds,
		Timeout:         time.Second,
		DefaultTimeZone: "America/New_York",
		Logger:          logger,
	})
}

func TestGameService_ListGames_Fuses(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, result: feeds.Result{OK: true, Games: scoreFeedGames()}}
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: true, Games: oddsFeedGames()}}
	svc := newTestGameService(score, odds)

	slate, err := svc.ListGames(context.Background(), SlateQuery{Sport: "nba", Date: "2025-01-09"})
	require.NoError(t, err)

	assert.Equal(t, models.SportNBA, slate.Sport)
	assert.Equal(t, "2025-01-09@America/New_York", slate.Window.Key())
	require.Len(t, slate.Games, 1)

	g := slate.Games[0]
	assert.Equal(t, "NBA-401", g.ID)
	assert.Equal(t, "Los Angeles Lakers", g.HomeTeam)
	assert.Equal(t, "13", g.HomeTeamID)
	assert.Equal(t, models.SourceMerged, g.DataSource)
	require.NotNil(t, g.SportsbookLine)
	assert.Equal(t, 224.5, *g.SportsbookLine)
	require.NotNil(t, g.Market)
	assert.Equal(t, 3, *g.Market.QuoteCount)

	require.Len(t, slate.Health, 2)
	assert.Equal(t, models.SourceScoreFeed, slate.Health[0].Source)
	assert.Equal(t, models.SourceOddsFeed, slate.Health[1].Source)
	assert.Equal(t, 1, score.callCount())
	assert.Equal(t, 1, odds.callCount())
}

func TestGameService_ListGames_OddsFeedDown(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, result: feeds.Result{OK: true, Games: scoreFeedGames()}}
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: false, Games: []models.RawGame{}, Error: "missing_api_key"}}
	svc := newTestGameService(score, odds)

	slate, err := svc.ListGames(context.Background(), SlateQuery{Sport: "NBA", Date: "2025-01-09"})
	require.NoError(t, err)

	require.Len(t, slate.Games, 1)
	assert.Equal(t, models.SourceScoreFeed, slate.Games[0].DataSource)
	assert.Nil(t, slate.Games[0].SportsbookLine)
	assert.False(t, slate.Health[1].OK)
	assert.Equal(t, "missing_api_key", slate.Health[1].LastError)
}

func TestGameService_ListGames_BothFeedsDown(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, result: feeds.Result{OK: false, Games: []models.RawGame{}, Error: "http_5xx"}}
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: false, Games: []models.RawGame{}, Error: "timeout"}}
	svc := newTestGameService(score, odds)

	slate, err := svc.ListGames(context.Background(), SlateQuery{Sport: "NBA", Date: "2025-01-09"})
	require.NoError(t, err)
	assert.NotNil(t, slate.Games)
	assert.Empty(t, slate.Games)
}

func TestGameService_ListGames_TimeoutBounded(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, block: true}
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: true, Games: oddsFeedGames()}}
	svc := newTestGameService(score, odds)
	svc.timeout = 50 * time.Millisecond

	start := time.Now()
	slate, err := svc.ListGames(context.Background(), SlateQuery{Sport: "NBA", Date: "2025-01-09"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, slate.Games, 1)
	assert.Equal(t, models.SourceOddsFeed, slate.Games[0].DataSource)
	assert.Equal(t, "timeout", slate.Health[0].LastError)
}

func TestGameService_Resolve(t *testing.T) {
	svc := newTestGameService(nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 10, 3, 0, 0, 0, time.UTC) }

	sport, window, err := svc.Resolve(SlateQuery{Sport: "icehockey_nhl"})
	require.NoError(t, err)
	assert.Equal(t, models.SportNHL, sport)
	// 22:00 on Jan 9 in New York.
	assert.Equal(t, "2025-01-09", window.Date)

	_, window, err = svc.Resolve(SlateQuery{Sport: "NHL", TimeZone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", window.Date)

	tests := []SlateQuery{
		{Sport: ""},
		{Sport: "cricket"},
		{Sport: "NBA", Date: "01/09/2025"},
		{Sport: "NBA", Date: "2025-01-09", TimeZone: "Mars/Olympus"},
	}
	for _, q := range tests {
		_, _, err := svc.Resolve(q)
		assert.True(t, utils.IsValidationError(err), "query %+v", q)
	}
}

func TestGameService_FindGame(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, result: feeds.Result{OK: true, Games: scoreFeedGames()}}
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: true, Games: oddsFeedGames()}}
	svc := newTestGameService(score, odds)
	q := SlateQuery{Sport: "NBA", Date: "2025-01-09"}

	game, window, err := svc.FindGame(context.Background(), q, "NBA-401")
	require.NoError(t, err)
	assert.Equal(t, "Boston Celtics", game.AwayTeam)
	assert.Equal(t, "2025-01-09", window.Date)

	_, _, err = svc.FindGame(context.Background(), q, "NBA-402")
	assert.True(t, errors.Is(err, ErrGameNotFound))

	_, _, err = svc.FindGame(context.Background(), q, " ")
	assert.True(t, utils.IsValidationError(err))
}

func TestGameService_Schedule(t *testing.T) {
	score := &fakeFeed{source: models.SourceScoreFeed, result: feeds.Result{OK: true, Games: scoreFeedGames()}}
	svc := newTestGameService(score, nil)

	res, err := svc.Schedule(context.Background(), SlateQuery{Sport: "NBA", Date: "2025-01-09"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.Len(t, res.Games, 1)
	assert.Equal(t, "NBA-401", res.Games[0].ID)
}

func TestGameService_Odds(t *testing.T) {
	odds := &fakeFeed{source: models.SourceOddsFeed, result: feeds.Result{OK: true, Games: oddsFeedGames()}}
	svc := newTestGameService(nil, odds)

	res, err := svc.Odds(context.Background(), "basketball_nba")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Len(t, res.Games, 1)

	require.Equal(t, 1, odds.callCount())
	assert.Equal(t, models.SportNBA, odds.calls[0].sport)
	assert.True(t, odds.calls[0].window.StartUTC.IsZero())

	_, err = svc.Odds(context.Background(), "curling")
	assert.True(t, utils.IsValidationError(err))
}

func TestGameService_MissingAdapter(t *testing.T) {
	svc := newTestGameService(nil, nil)

	res, err := svc.Schedule(context.Background(), SlateQuery{Sport: "NBA", Date: "2025-01-09"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "not_configured", res.Error)
	assert.NotNil(t, res.Games)
}

func TestInWindow(t *testing.T) {
	window, err := timewindow.ForDate("2025-01-09", "America/New_York")
	require.NoError(t, err)

	kept := inWindow(scoreFeedGames(), window)
	require.Len(t, kept, 1)
	assert.Equal(t, "NBA-401", kept[0].ID)
	assert.Empty(t, inWindow(nil, window))
}
