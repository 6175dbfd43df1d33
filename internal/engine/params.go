package engine

import (
	"strings"

	"github.com/irfndi/mto-floor-go/internal/market"
	"github.com/irfndi/mto-floor-go/internal/models"
)

// SigmaBounds is the allowed sigma range for one sport.
type SigmaBounds struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// Params holds every tunable constant of the prediction pipeline.
type Params struct {
	FloorQuantile        map[models.Sport]float64               `mapstructure:"floor_quantile"`
	DefaultFloorQuantile float64                                `mapstructure:"default_floor_quantile"`
	SigmaBounds          map[models.Sport]SigmaBounds           `mapstructure:"sigma_bounds"`
	DefaultSigmaPct      map[models.Sport]float64               `mapstructure:"default_sigma_pct"`
	FallbackSigmaPct     float64                                `mapstructure:"fallback_sigma_pct"`
	LowTempoConferences  map[models.Sport][]string              `mapstructure:"low_tempo_conferences"`
	LowTempoTeams        map[models.Sport][]string              `mapstructure:"low_tempo_teams"`
	LeagueAverages       map[models.Sport]models.LeagueAverages `mapstructure:"league_averages"`

	TrailingGames int     `mapstructure:"trailing_games"`
	PaceFactor    float64 `mapstructure:"pace_factor"`

	// Low tempo and adverse weather share one adjustment.
	TempoMuShift     float64 `mapstructure:"tempo_mu_shift"`
	TempoSigmaFactor float64 `mapstructure:"tempo_sigma_factor"`
	WindThreshold    float64 `mapstructure:"wind_threshold"`
	ColdThreshold    float64 `mapstructure:"cold_threshold"`

	InjuryMuPerPlayer    float64 `mapstructure:"injury_mu_per_player"`
	InjurySigmaPerPlayer float64 `mapstructure:"injury_sigma_per_player"`

	EarlySeasonGames       int     `mapstructure:"early_season_games"`
	EarlySeasonShrink      float64 `mapstructure:"early_season_shrink"`
	EarlySeasonSigmaFactor float64 `mapstructure:"early_season_sigma_factor"`

	EliteDefenseRank   int     `mapstructure:"elite_defense_rank"`
	DefenseMuShift     float64 `mapstructure:"defense_mu_shift"`
	DefenseSigmaFactor float64 `mapstructure:"defense_sigma_factor"`

	MarketCapPct          float64                  `mapstructure:"market_cap_pct"`
	StayAwayMargin        map[models.Sport]float64 `mapstructure:"stay_away_margin"`
	DefaultStayAwayMargin float64                  `mapstructure:"default_stay_away_margin"`

	// FallbackCompletenessCost is deducted once per side on league averages.
	FallbackCompletenessCost float64 `mapstructure:"fallback_completeness_cost"`
	CompletenessWeight       float64 `mapstructure:"completeness_weight"`
	SampleGames              int     `mapstructure:"sample_games"`
	SampleBonus              float64 `mapstructure:"sample_bonus"`
	MinConfidence            float64 `mapstructure:"min_confidence"`
	MaxConfidence            float64 `mapstructure:"max_confidence"`

	Blend market.BlendParams `mapstructure:"blend"`
}

// DefaultParams returns the canonical pipeline constants.
func DefaultParams() Params {
	return Params{
		FloorQuantile:        map[models.Sport]float64{models.SportNCAAFB: 0.03},
		DefaultFloorQuantile: 0.05,
		SigmaBounds: map[models.Sport]SigmaBounds{
			models.SportNCAAFB: {Min: 6, Max: 15},
			models.SportNFL:    {Min: 5, Max: 10},
			models.SportNBA:    {Min: 7, Max: 14},
			models.SportNCAABB: {Min: 6, Max: 12},
			models.SportNHL:    {Min: 2, Max: 4},
			models.SportMLB:    {Min: 2, Max: 4},
			models.SportSoccer: {Min: 1.5, Max: 3},
			models.SportTennis: {Min: 1, Max: 2},
		},
		DefaultSigmaPct: map[models.Sport]float64{
			models.SportNCAAFB: 0.20,
			models.SportNFL:    0.18,
			models.SportNBA:    0.15,
			models.SportNCAABB: 0.18,
			models.SportNHL:    0.30,
			models.SportMLB:    0.25,
			models.SportSoccer: 0.35,
			models.SportTennis: 0.30,
		},
		FallbackSigmaPct: 0.18,
		LowTempoConferences: map[models.Sport][]string{
			models.SportNCAAFB: {"Big Ten", "B1G", "Big 10"},
		},
		LowTempoTeams: map[models.Sport][]string{
			models.SportNCAAFB: {
				"Wisconsin", "Wisconsin Badgers",
				"Iowa", "Iowa Hawkeyes",
				"Northwestern", "Northwestern Wildcats",
				"Penn State", "Penn State Nittany Lions",
				"Army", "Army Black Knights",
				"Navy", "Navy Midshipmen",
				"Air Force", "Air Force Falcons",
			},
		},
		LeagueAverages: map[models.Sport]models.LeagueAverages{
			models.SportNFL:    {AvgTotal: 44.5, AvgPace: models.Float64Ptr(64)},
			models.SportNBA:    {AvgTotal: 223, AvgPace: models.Float64Ptr(99.5)},
			models.SportNHL:    {AvgTotal: 6.2, AvgPace: models.Float64Ptr(60)},
			models.SportMLB:    {AvgTotal: 8.8},
			models.SportNCAAFB: {AvgTotal: 56, AvgPace: models.Float64Ptr(72)},
			models.SportNCAABB: {AvgTotal: 144, AvgPace: models.Float64Ptr(70)},
			models.SportSoccer: {AvgTotal: 2.8},
			models.SportTennis: {AvgTotal: 3.5},
		},

		TrailingGames: 5,
		PaceFactor:    0.10,

		TempoMuShift:     3,
		TempoSigmaFactor: 1.20,
		WindThreshold:    12,
		ColdThreshold:    45,

		InjuryMuPerPlayer:    2,
		InjurySigmaPerPlayer: 0.10,

		EarlySeasonGames:       5,
		EarlySeasonShrink:      0.30,
		EarlySeasonSigmaFactor: 1.15,

		EliteDefenseRank:   8,
		DefenseMuShift:     3,
		DefenseSigmaFactor: 1.10,

		MarketCapPct:          0.80,
		StayAwayMargin:        map[models.Sport]float64{models.SportNCAAFB: 5},
		DefaultStayAwayMargin: 4,

		FallbackCompletenessCost: 0.10,
		CompletenessWeight:       0.85,
		SampleGames:              10,
		SampleBonus:              0.15,
		MinConfidence:            0.35,
		MaxConfidence:            0.95,

		Blend: market.DefaultBlendParams(),
	}
}

// WithDefaults fills zero values from DefaultParams. Map keys are matched
// case-insensitively because configuration loaders lowercase them.
func (p Params) WithDefaults() Params {
	d := DefaultParams()

	p.FloorQuantile = mergeSportMap(p.FloorQuantile, d.FloorQuantile)
	p.SigmaBounds = mergeSportMap(p.SigmaBounds, d.SigmaBounds)
	p.DefaultSigmaPct = mergeSportMap(p.DefaultSigmaPct, d.DefaultSigmaPct)
	p.LowTempoConferences = mergeSportMap(p.LowTempoConferences, d.LowTempoConferences)
	p.LowTempoTeams = mergeSportMap(p.LowTempoTeams, d.LowTempoTeams)
	p.LeagueAverages = mergeSportMap(p.LeagueAverages, d.LeagueAverages)
	p.StayAwayMargin = mergeSportMap(p.StayAwayMargin, d.StayAwayMargin)
	p.Blend.DefaultDispersion = mergeSportMap(p.Blend.DefaultDispersion, d.Blend.DefaultDispersion)

	setFloat(&p.DefaultFloorQuantile, d.DefaultFloorQuantile)
	setFloat(&p.FallbackSigmaPct, d.FallbackSigmaPct)
	setInt(&p.TrailingGames, d.TrailingGames)
	setFloat(&p.PaceFactor, d.PaceFactor)
	setFloat(&p.TempoMuShift, d.TempoMuShift)
	setFloat(&p.TempoSigmaFactor, d.TempoSigmaFactor)
	setFloat(&p.WindThreshold, d.WindThreshold)
	setFloat(&p.ColdThreshold, d.ColdThreshold)
	setFloat(&p.InjuryMuPerPlayer, d.InjuryMuPerPlayer)
	setFloat(&p.InjurySigmaPerPlayer, d.InjurySigmaPerPlayer)
	setInt(&p.EarlySeasonGames, d.EarlySeasonGames)
	setFloat(&p.EarlySeasonShrink, d.EarlySeasonShrink)
	setFloat(&p.EarlySeasonSigmaFactor, d.EarlySeasonSigmaFactor)
	setInt(&p.EliteDefenseRank, d.EliteDefenseRank)
	setFloat(&p.DefenseMuShift, d.DefenseMuShift)
	setFloat(&p.DefenseSigmaFactor, d.DefenseSigmaFactor)
	setFloat(&p.MarketCapPct, d.MarketCapPct)
	setFloat(&p.DefaultStayAwayMargin, d.DefaultStayAwayMargin)
	setFloat(&p.FallbackCompletenessCost, d.FallbackCompletenessCost)
	setFloat(&p.CompletenessWeight, d.CompletenessWeight)
	setInt(&p.SampleGames, d.SampleGames)
	setFloat(&p.SampleBonus, d.SampleBonus)
	setFloat(&p.MinConfidence, d.MinConfidence)
	setFloat(&p.MaxConfidence, d.MaxConfidence)

	b, db := &p.Blend, d.Blend
	setFloat(&b.BaseWeight, db.BaseWeight)
	setFloat(&b.MinWeight, db.MinWeight)
	setFloat(&b.MaxWeight, db.MaxWeight)
	setFloat(&b.MaxBookBonus, db.MaxBookBonus)
	setFloat(&b.BookSaturation, db.BookSaturation)
	setFloat(&b.MaxDispersionCost, db.MaxDispersionCost)
	setFloat(&b.DispersionScale, db.DispersionScale)
	setFloat(&b.MaxShiftPct, db.MaxShiftPct)
	setFloat(&b.DispersionLow, db.DispersionLow)
	setFloat(&b.SigmaInflateLow, db.SigmaInflateLow)
	setFloat(&b.DispersionHigh, db.DispersionHigh)
	setFloat(&b.SigmaInflateHigh, db.SigmaInflateHigh)
	setFloat(&b.MaxConfidencePenalty, db.MaxConfidencePenalty)
	setFloat(&b.ConfidencePerPoint, db.ConfidencePerPoint)
	return p
}

// LeagueAveragesFor returns the configured league figures for sport.
func (p Params) LeagueAveragesFor(sport models.Sport) models.LeagueAverages {
	return p.LeagueAverages[sport]
}

// Quantile returns the floor tail quantile for sport.
func (p Params) Quantile(sport models.Sport) float64 {
	if q, ok := p.FloorQuantile[sport]; ok && q > 0 {
		return q
	}
	return p.DefaultFloorQuantile
}

// Floor returns max(0, mu - z*sigma) for the sport's quantile.
func (p Params) Floor(mu, sigma float64, sport models.Sport) float64 {
	floor := mu - ZScore(p.Quantile(sport))*sigma
	if floor < 0 {
		return 0
	}
	return floor
}

func (p Params) stayAwayMargin(sport models.Sport) float64 {
	if m, ok := p.StayAwayMargin[sport]; ok {
		return m
	}
	return p.DefaultStayAwayMargin
}

func (p Params) sigmaPct(sport models.Sport) float64 {
	if pct, ok := p.DefaultSigmaPct[sport]; ok {
		return pct
	}
	return p.FallbackSigmaPct
}

var zScores = map[float64]float64{
	0.05:  1.645,
	0.03:  1.88,
	0.025: 1.96,
}

// ZScore returns the one-sided z-score for tail quantile q, defaulting to
// the 5% value for quantiles outside the table.
func ZScore(q float64) float64 {
	if z, ok := zScores[q]; ok {
		return z
	}
	return zScores[0.05]
}

func mergeSportMap[V any](overrides, defaults map[models.Sport]V) map[models.Sport]V {
	out := make(map[models.Sport]V, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[models.Sport(strings.ToUpper(string(k)))] = v
	}
	return out
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
