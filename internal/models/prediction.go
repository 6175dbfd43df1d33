package models

import "time"

// MarketSource says where market features came from.
type MarketSource string

const (
	MarketSourceLive   MarketSource = "live"
	MarketSourceCached MarketSource = "cached"
	MarketSourceNone   MarketSource = "none"
)

// AltLine is one distinct totals line offered across books.
type AltLine struct {
	Line       float64  `json:"line"`
	OverPrice  *float64 `json:"overPrice,omitempty"`
	UnderPrice *float64 `json:"underPrice,omitempty"`
	// FairOverProbability is the no-vig probability of the over when both prices are known.
	FairOverProbability *float64 `json:"fairOverProbability,omitempty"`
}

// MarketFeatures is the consensus summary of bookmaker totals.
// When Source is none every numeric field is nil.
type MarketFeatures struct {
	MeanTotal   *float64     `json:"meanTotal,omitempty"`
	MedianTotal *float64     `json:"medianTotal,omitempty"`
	StdTotal    *float64     `json:"stdTotal,omitempty"`
	QuoteCount  *int         `json:"quoteCount,omitempty"`
	AltLines    []AltLine    `json:"altLines,omitempty"`
	LastUpdated *time.Time   `json:"lastUpdated,omitempty"`
	Source      MarketSource `json:"source"`
}

// NoMarket returns features describing an absent market.
func NoMarket() MarketFeatures {
	return MarketFeatures{Source: MarketSourceNone}
}

// Available reports whether a usable market mean exists.
func (m MarketFeatures) Available() bool {
	return m.Source != MarketSourceNone && m.MeanTotal != nil
}

// TeamStats is a rolling performance snapshot for one team.
type TeamStats struct {
	TeamID              string    `json:"teamId"`
	TeamName            string    `json:"teamName,omitempty"`
	Conference          string    `json:"conference,omitempty"`
	AvgPointsScored     float64   `json:"avgPointsScored"`
	AvgPointsAllowed    float64   `json:"avgPointsAllowed"`
	Pace                *float64  `json:"pace,omitempty"`
	OffensiveEfficiency *float64  `json:"offensiveEfficiency,omitempty"`
	DefensiveEfficiency *float64  `json:"defensiveEfficiency,omitempty"`
	DefensiveRank       *int      `json:"defensiveRank,omitempty"`
	RecentForm          []float64 `json:"recentForm"`
	GamesPlayed         int       `json:"gamesPlayed"`
}

// VenueType is where the game is played relative to the home team.
type VenueType string

const (
	VenueHome    VenueType = "home"
	VenueAway    VenueType = "away"
	VenueNeutral VenueType = "neutral"
)

// Weather conditions at an outdoor venue.
type Weather struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	WindSpeed     *float64 `json:"windSpeed,omitempty"`
	Precipitation bool     `json:"precipitation"`
	Conditions    string   `json:"conditions,omitempty"`
}

// InjuryImpact grades how much a player matters.
type InjuryImpact string

const (
	InjuryImpactHigh   InjuryImpact = "high"
	InjuryImpactMedium InjuryImpact = "medium"
	InjuryImpactLow    InjuryImpact = "low"
)

// InjuryStatus is the reported availability of an injured player.
type InjuryStatus string

const (
	InjuryStatusOut          InjuryStatus = "out"
	InjuryStatusQuestionable InjuryStatus = "questionable"
	InjuryStatusProbable     InjuryStatus = "probable"
)

// Injury is one entry of an injury report.
type Injury struct {
	Player string       `json:"player,omitempty"`
	Team   string       `json:"team,omitempty"`
	Impact InjuryImpact `json:"impact"`
	Status InjuryStatus `json:"status"`
}

// GameContext carries situational modifiers for a game.
type GameContext struct {
	Venue          VenueType `json:"venue"`
	Indoor         bool      `json:"indoor"`
	Weather        *Weather  `json:"weather,omitempty"`
	RestDays       int       `json:"restDays"`
	Injuries       []Injury  `json:"injuries,omitempty"`
	TravelDistance *float64  `json:"travelDistance,omitempty"`
	Rivalry        bool      `json:"rivalry"`
}

// Impact is the direction a key factor pushes the prediction.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// KeyFactor explains one adjustment applied to a prediction.
type KeyFactor struct {
	Factor      string  `json:"factor"`
	Impact      Impact  `json:"impact"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// ConfidenceBand is a coarse bucket of the confidence score.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// BandFor buckets a confidence score.
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.75:
		return ConfidenceHigh
	case confidence >= 0.55:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MTOPrediction is the engine's output for one game and date.
// Values are never mutated once built.
type MTOPrediction struct {
	GameID           string         `json:"gameId"`
	Sport            Sport          `json:"sport"`
	ExpectedTotal    float64        `json:"expectedTotal"`
	MTOFloor         float64        `json:"mtoFloor"`
	CoverageTarget   float64        `json:"coverageTarget"`
	StaysAway        bool           `json:"staysAway"`
	Confidence       float64        `json:"confidence"`
	ConfidenceBand   ConfidenceBand `json:"confidenceBand"`
	SportsbookLine   *float64       `json:"sportsbookLine,omitempty"`
	KeyFactors       []KeyFactor    `json:"keyFactors"`
	DataCompleteness float64        `json:"dataCompleteness"`
	Notes            []string       `json:"notes"`
	MarketFeatures   MarketFeatures `json:"marketFeatures"`
	AsOfDate         string         `json:"asOfDate,omitempty"`
	GeneratedAt      time.Time      `json:"generatedAt"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
