package market

import (
	"math"

	"github.com/irfndi/mto-floor-go/internal/models"
)

// BlendParams holds the market-blend policy constants.
type BlendParams struct {
	BaseWeight        float64 `mapstructure:"base_weight"`
	MinWeight         float64 `mapstructure:"min_weight"`
	MaxWeight         float64 `mapstructure:"max_weight"`
	MaxBookBonus      float64 `mapstructure:"max_book_bonus"`
	BookSaturation    float64 `mapstructure:"book_saturation"`
	MaxDispersionCost float64 `mapstructure:"max_dispersion_cost"`
	DispersionScale   float64 `mapstructure:"dispersion_scale"`
	MaxShiftPct       float64 `mapstructure:"max_shift_pct"`
	// Sigma is multiplied by SigmaInflateLow above DispersionLow and again by
	// SigmaInflateHigh above DispersionHigh.
	DispersionLow        float64 `mapstructure:"dispersion_low"`
	SigmaInflateLow      float64 `mapstructure:"sigma_inflate_low"`
	DispersionHigh       float64 `mapstructure:"dispersion_high"`
	SigmaInflateHigh     float64 `mapstructure:"sigma_inflate_high"`
	MaxConfidencePenalty float64 `mapstructure:"max_confidence_penalty"`
	ConfidencePerPoint   float64 `mapstructure:"confidence_per_point"`
	// DefaultDispersion is used when the market carries no standard deviation.
	DefaultDispersion map[models.Sport]float64 `mapstructure:"default_dispersion"`
}

// DefaultBlendParams returns the canonical blend constants.
func DefaultBlendParams() BlendParams {
	return BlendParams{
		BaseWeight:           0.10,
		MinWeight:            0.05,
		MaxWeight:            0.30,
		MaxBookBonus:         0.20,
		BookSaturation:       20,
		MaxDispersionCost:    0.10,
		DispersionScale:      20,
		MaxShiftPct:          0.20,
		DispersionLow:        1.0,
		SigmaInflateLow:      1.10,
		DispersionHigh:       1.5,
		SigmaInflateHigh:     1.15,
		MaxConfidencePenalty: 15,
		ConfidencePerPoint:   2,
		DefaultDispersion: map[models.Sport]float64{
			models.SportNFL:    0.5,
			models.SportNCAAFB: 1.0,
			models.SportNBA:    1.0,
			models.SportNCAABB: 1.0,
			models.SportMLB:    0.25,
			models.SportNHL:    0.25,
			models.SportSoccer: 0.25,
			models.SportTennis: 0.5,
		},
	}
}

// BlendResult is the outcome of blending a model estimate with the market.
type BlendResult struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	// ConfidenceAdjustment is in percentage points and never positive.
	ConfidenceAdjustment float64 `json:"confidenceAdjustment"`
	Weight               float64 `json:"weight"`
	Dispersion           float64 `json:"dispersion"`
}

// Blend shrinks muModel toward the market mean. An absent market, or a
// non-finite market mean, returns the model values untouched with zero weight.
func (p BlendParams) Blend(muModel, sigmaModel float64, features models.MarketFeatures, sport models.Sport) BlendResult {
	unchanged := BlendResult{Mu: muModel, Sigma: sigmaModel}
	if features.Source == models.MarketSourceNone || features.MeanTotal == nil {
		return unchanged
	}
	muMarket := *features.MeanTotal
	if math.IsNaN(muMarket) || math.IsInf(muMarket, 0) {
		return unchanged
	}

	books := 1.0
	if features.QuoteCount != nil && *features.QuoteCount > 1 {
		books = float64(*features.QuoteCount)
	}
	dispersion := p.DefaultDispersion[sport]
	if features.StdTotal != nil && !math.IsNaN(*features.StdTotal) {
		dispersion = math.Max(0, *features.StdTotal)
	}

	w := p.BaseWeight +
		math.Min(p.MaxBookBonus, books/p.BookSaturation*p.MaxBookBonus) -
		math.Min(p.MaxDispersionCost, dispersion/p.DispersionScale)
	w = clamp(w, p.MinWeight, p.MaxWeight)

	mu := (1-w)*muModel + w*muMarket
	maxShift := math.Abs(p.MaxShiftPct * muModel)
	mu = clamp(mu, muModel-maxShift, muModel+maxShift)

	sigma := sigmaModel
	if dispersion > p.DispersionLow {
		sigma *= p.SigmaInflateLow
	}
	if dispersion > p.DispersionHigh {
		sigma *= p.SigmaInflateHigh
	}

	return BlendResult{
		Mu:                   mu,
		Sigma:                sigma,
		ConfidenceAdjustment: -math.Min(p.MaxConfidencePenalty, dispersion*p.ConfidencePerPoint),
		Weight:               w,
		Dispersion:           dispersion,
	}
}

// BoundedMarketBlend blends with the default parameters.
func BoundedMarketBlend(muModel, sigmaModel float64, features models.MarketFeatures, sport models.Sport) BlendResult {
	return DefaultBlendParams().Blend(muModel, sigmaModel, features, sport)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
