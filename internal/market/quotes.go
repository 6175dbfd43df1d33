// Package market turns bookmaker quotes into consensus features and blends
// them with model estimates.
package market

import "time"

// Outcome is one side of a bookmaker market.
type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// Market is a single bookmaker market such as "totals".
type Market struct {
	Key        string     `json:"key"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Outcomes   []Outcome  `json:"outcomes"`
}

// Bookmaker is a single book's quote for an event.
type Bookmaker struct {
	Key        string     `json:"key"`
	Title      string     `json:"title,omitempty"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Markets    []Market   `json:"markets"`
}

const (
	marketTotals          = "totals"
	marketAlternateTotals = "alternate_totals"
)

func isTotalsMarket(key string) bool {
	return key == marketTotals || key == marketAlternateTotals
}
