package models

import (
	"sort"
	"strings"

	"github.com/irfndi/mto-floor-go/internal/utils"
)

// Sport identifies a league the engine knows how to model.
type Sport string

const (
	SportNFL    Sport = "NFL"
	SportNCAAFB Sport = "NCAA_FB"
	SportNBA    Sport = "NBA"
	SportNCAABB Sport = "NCAA_BB"
	SportMLB    Sport = "MLB"
	SportNHL    Sport = "NHL"
	SportSoccer Sport = "SOCCER"
	SportTennis Sport = "TENNIS"
)

// SportInfo holds the upstream identifiers for a sport.
type SportInfo struct {
	Sport       Sport  `json:"sport"`
	DisplayName string `json:"displayName"`
	OddsKey     string `json:"oddsKey"`
	ESPNPath    string `json:"espnPath,omitempty"`
}

var sportInfos = map[Sport]SportInfo{
	SportNFL:    {Sport: SportNFL, DisplayName: "NFL", OddsKey: "americanfootball_nfl", ESPNPath: "football/nfl"},
	SportNCAAFB: {Sport: SportNCAAFB, DisplayName: "NCAA Football", OddsKey: "americanfootball_ncaaf", ESPNPath: "football/college-football"},
	SportNBA:    {Sport: SportNBA, DisplayName: "NBA", OddsKey: "basketball_nba", ESPNPath: "basketball/nba"},
	SportNCAABB: {Sport: SportNCAABB, DisplayName: "NCAA Basketball", OddsKey: "basketball_ncaab", ESPNPath: "basketball/mens-college-basketball"},
	SportMLB:    {Sport: SportMLB, DisplayName: "MLB", OddsKey: "baseball_mlb", ESPNPath: "baseball/mlb"},
	SportNHL:    {Sport: SportNHL, DisplayName: "NHL", OddsKey: "icehockey_nhl", ESPNPath: "hockey/nhl"},
	SportSoccer: {Sport: SportSoccer, DisplayName: "Soccer", OddsKey: "soccer_epl", ESPNPath: "soccer/eng.1"},
	SportTennis: {Sport: SportTennis, DisplayName: "Tennis", OddsKey: "tennis_atp"},
}

// Info returns the upstream identifiers for s. Unknown sports return a zero value.
func (s Sport) Info() SportInfo {
	return sportInfos[s]
}

// Valid reports whether s is a known sport.
func (s Sport) Valid() bool {
	_, ok := sportInfos[s]
	return ok
}

func (s Sport) String() string {
	return string(s)
}

// ParseSport resolves a sport from its name or from its odds feed key.
// Matching is case-insensitive.
func ParseSport(raw string) (Sport, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", utils.NewValidationError("sport is required")
	}

	candidate := Sport(strings.ToUpper(strings.ReplaceAll(v, "-", "_")))
	if candidate.Valid() {
		return candidate, nil
	}

	lower := strings.ToLower(v)
	for sport, info := range sportInfos {
		if info.OddsKey == lower {
			return sport, nil
		}
	}

	return "", utils.NewValidationErrorf("unsupported sport %q", raw)
}

// AllSports returns every known sport in a stable order.
func AllSports() []Sport {
	out := make([]Sport, 0, len(sportInfos))
	for s := range sportInfos {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LeagueAverages are the fallback league-wide figures used when team data is thin.
type LeagueAverages struct {
	AvgTotal float64  `json:"avgTotal" mapstructure:"avg_total"`
	AvgPace  *float64 `json:"avgPace,omitempty" mapstructure:"avg_pace"`
}

// Indoor reports whether the sport is played under a roof, so weather never
// applies.
func (s Sport) Indoor() bool {
	switch s {
	case SportNBA, SportNCAABB, SportNHL:
		return true
	default:
		return false
	}
}
