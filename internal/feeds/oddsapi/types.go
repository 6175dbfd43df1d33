package oddsapi

import (
	"strings"
	"time"

	"github.com/irfndi/mto-floor-go/internal/market"
)

// event is one entry of the /odds response. The summarized fields cover
// proxies that already reduced bookmaker quotes to a consensus.
type event struct {
	ID           string             `json:"id"`
	SportKey     string             `json:"sport_key"`
	CommenceTime string             `json:"commence_time"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	Bookmakers   []market.Bookmaker `json:"bookmakers"`

	Home            string   `json:"home"`
	Away            string   `json:"away"`
	CommenceTimeUTC string   `json:"commenceTimeUTC"`
	ConsensusTotal  *float64 `json:"consensusTotal"`
	Total           *float64 `json:"total"`
	QuoteCount      *int     `json:"quoteCount"`
	NumBooks        *int     `json:"numBooks"`
	TotalDispersion *float64 `json:"totalDispersion"`
	StdBooks        *float64 `json:"stdBooks"`
}

func (e event) homeName() string {
	return firstNonEmpty(e.HomeTeam, e.Home)
}

func (e event) awayName() string {
	return firstNonEmpty(e.AwayTeam, e.Away)
}

func (e event) startTime() time.Time {
	raw := firstNonEmpty(e.CommenceTime, e.CommenceTimeUTC)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// summarized reports whether the event carries a consensus instead of raw quotes.
func (e event) summarized() bool {
	return len(e.Bookmakers) == 0 && (e.ConsensusTotal != nil || e.Total != nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
