package market

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// AmericanToImpliedProbability converts American odds to an implied probability.
//
// Examples:
//
//	-110 -> 0.5238
//	+150 -> 0.4000
func AmericanToImpliedProbability(american float64) (float64, error) {
	switch {
	case american >= 100:
		return 100 / (american + 100), nil
	case american <= -100:
		return -american / (-american + 100), nil
	default:
		return 0, fmt.Errorf("invalid american odds: %v", american)
	}
}

// RemoveVigMultiplicative normalizes a two-way market so the fair
// probabilities sum to 1.
func RemoveVigMultiplicative(prob1, prob2 float64) (fair1, fair2 float64, err error) {
	if prob1 <= 0 || prob1 >= 1 || prob2 <= 0 || prob2 >= 1 {
		return 0, 0, fmt.Errorf("probabilities must be between 0 and 1")
	}
	total := prob1 + prob2
	return prob1 / total, prob2 / total, nil
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
