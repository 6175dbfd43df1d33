package models

import "time"

// SourceTag names the upstream a RawGame came from.
type SourceTag string

const (
	// SourceScoreFeed is the schedule/score feed (ESPN).
	SourceScoreFeed SourceTag = "feed-a"
	// SourceOddsFeed is the sportsbook odds feed (The Odds API).
	SourceOddsFeed SourceTag = "feed-b"
	// SourceMerged marks a game assembled from both feeds.
	SourceMerged SourceTag = "merged"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusLive      GameStatus = "live"
	GameStatusCompleted GameStatus = "completed"
)

// RawGame is a single adapter's view of an event before fusion.
type RawGame struct {
	ID              string          `json:"id"`
	Sport           Sport           `json:"sport"`
	HomeName        string          `json:"homeName"`
	AwayName        string          `json:"awayName"`
	HomeID          string          `json:"homeId,omitempty"`
	AwayID          string          `json:"awayId,omitempty"`
	HomeLogo        string          `json:"homeLogo,omitempty"`
	AwayLogo        string          `json:"awayLogo,omitempty"`
	StartTimeUTC    time.Time       `json:"startTimeUTC"`
	Venue           string          `json:"venue,omitempty"`
	Status          GameStatus      `json:"status,omitempty"`
	ConsensusTotal  *float64        `json:"consensusTotal,omitempty"`
	QuoteCount      *int            `json:"quoteCount,omitempty"`
	TotalDispersion *float64        `json:"totalDispersion,omitempty"`
	Market          *MarketFeatures `json:"market,omitempty"`
	SourceTag       SourceTag       `json:"sourceTag"`
}

// HasTotal reports whether the record carries a market total.
func (g RawGame) HasTotal() bool {
	return g.ConsensusTotal != nil
}

// Game is the normalized, source-agnostic event produced by fusion.
type Game struct {
	ID             string          `json:"id"`
	Sport          Sport           `json:"sport"`
	HomeTeam       string          `json:"homeTeam"`
	AwayTeam       string          `json:"awayTeam"`
	HomeTeamID     string          `json:"homeTeamId"`
	AwayTeamID     string          `json:"awayTeamId"`
	HomeTeamLogo   string          `json:"homeTeamLogo,omitempty"`
	AwayTeamLogo   string          `json:"awayTeamLogo,omitempty"`
	StartTimeUTC   time.Time       `json:"startTimeUTC"`
	Venue          string          `json:"venue"`
	Status         GameStatus      `json:"status"`
	SportsbookLine *float64        `json:"sportsbookLine,omitempty"`
	Market         *MarketFeatures `json:"market,omitempty"`
	DataSource     SourceTag       `json:"dataSource"`
}

// FeedHealth is the last observed state of one upstream for one sport.
type FeedHealth struct {
	Source        SourceTag `json:"source"`
	Sport         Sport     `json:"sport"`
	OK            bool      `json:"ok"`
	LastError     string    `json:"lastError,omitempty"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
	LastCount     int       `json:"lastCount"`
}
