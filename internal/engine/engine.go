// Package engine computes the MTO floor prediction for a single game: a
// conservative lower bound on the combined total that should be exceeded
// with high probability.
package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/mto-floor-go/internal/market"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/teams"
)

// Note tags attached to predictions.
const (
	NoteConferencePace = "conf-pace"
	NoteWeather        = "weather"
	NoteInjuries       = "injuries"
	NoteEarlySeason    = "early-season-shrink"
	NoteDefenseRivalry = "defensive-rivalry"
	NoteMarketBlend    = "market-blend"
	NoteMarketCap      = "market-cap"
	NoteLeagueFallback = "league-average-fallback"
)

// Input is everything the engine needs for one prediction. Nil team stats
// are replaced by league-average fallbacks.
type Input struct {
	Game           models.Game            `json:"game"`
	HomeStats      *models.TeamStats      `json:"homeStats,omitempty"`
	AwayStats      *models.TeamStats      `json:"awayStats,omitempty"`
	Context        models.GameContext     `json:"context"`
	Market         models.MarketFeatures  `json:"market"`
	LeagueAverages *models.LeagueAverages `json:"leagueAverages,omitempty"`
	AsOfDate       string                 `json:"asOfDate,omitempty"`
}

// Engine runs the prediction pipeline. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	params Params
	logger *logrus.Logger
	now    func() time.Time
}

// New creates an Engine. Zero-valued params fall back to DefaultParams.
func New(params Params, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{params: params.WithDefaults(), logger: logger, now: time.Now}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// working is the mutable state threaded through one pipeline run.
type working struct {
	mu           float64
	sigma        float64
	notes        []string
	keyFactors   []models.KeyFactor
	completeness float64
}

func (w *working) note(tag string) {
	for _, n := range w.notes {
		if n == tag {
			return
		}
	}
	w.notes = append(w.notes, tag)
}

func (w *working) factor(name string, impact models.Impact, weight float64, description string) {
	w.keyFactors = append(w.keyFactors, models.KeyFactor{
		Factor:      name,
		Impact:      impact,
		Weight:      market.Round(weight, 3),
		Description: description,
	})
}

// Predict runs the full pipeline. It never fails: missing optional inputs
// lower data completeness and confidence instead.
func (e *Engine) Predict(in Input) models.MTOPrediction {
	p := e.params
	sport := in.Game.Sport
	league := p.LeagueAveragesFor(sport)
	if in.LeagueAverages != nil {
		league = *in.LeagueAverages
	}
	features := normalizeMarket(in.Market)

	w := &working{completeness: 1.0}

	home, homeFallback := statsOrFallback(in.HomeStats, league)
	away, awayFallback := statsOrFallback(in.AwayStats, league)
	for _, fallback := range []bool{homeFallback, awayFallback} {
		if fallback {
			w.completeness -= p.FallbackCompletenessCost
			w.note(NoteLeagueFallback)
		}
	}

	// Center and base dispersion.
	w.mu = e.center(home, away, league)
	w.sigma = e.baseSigma(home, away, league, sport)
	direction := models.ImpactNegative
	if w.mu > league.AvgTotal {
		direction = models.ImpactPositive
	}
	w.factor("Team Scoring Trends", direction, 0.45,
		fmt.Sprintf("Model center: %.1f vs league %.1f", w.mu, league.AvgTotal))

	e.applyTempoAndWeather(w, in, home, away)
	e.applyInjuries(w, in.Context.Injuries)
	e.applyEarlySeason(w, home, away, league)
	e.applyDefenseOrRivalry(w, in.Context, home, away)

	if b, ok := p.SigmaBounds[sport]; ok && b.Max > 0 {
		w.sigma = math.Max(b.Min, math.Min(b.Max, w.sigma))
	}
	muModel, sigmaModel := w.mu, w.sigma

	// Market blend.
	blend := p.Blend.Blend(w.mu, w.sigma, features, sport)
	w.mu, w.sigma = blend.Mu, blend.Sigma
	if blend.Weight > 0 {
		w.note(NoteMarketBlend)
		books := 1
		if features.QuoteCount != nil {
			books = *features.QuoteCount
		}
		w.factor("Market Data", models.ImpactNeutral, blend.Weight,
			fmt.Sprintf("Market: %.1f (%d books, dispersion %.2f, w=%.0f%%)",
				*features.MeanTotal, books, blend.Dispersion, blend.Weight*100))
	}

	// Floor, caps and stay-away.
	q := p.Quantile(sport)
	floor := p.Floor(w.mu, w.sigma, sport)

	line := in.Game.SportsbookLine
	for _, ref := range []*float64{line, features.MeanTotal} {
		if ref == nil || *ref <= 0 {
			continue
		}
		if capAt := p.MarketCapPct * *ref; floor > capAt {
			floor = capAt
			w.note(NoteMarketCap)
		}
	}

	staysAway := false
	margin := p.stayAwayMargin(sport)
	switch {
	case line != nil && *line > 0:
		staysAway = *line-floor <= margin
	case features.Available() && *features.MeanTotal > 0:
		staysAway = *features.MeanTotal-floor <= margin
	}

	// Completeness and confidence.
	if !in.Context.Indoor && in.Context.Weather == nil {
		w.completeness -= 0.05
	}
	if in.Context.Injuries == nil {
		w.completeness -= 0.05
	}
	if !features.Available() {
		w.completeness -= 0.10
	}
	w.completeness = clamp(w.completeness, 0, 1)

	sample := 0.0
	if home.GamesPlayed >= p.SampleGames && away.GamesPlayed >= p.SampleGames {
		sample = p.SampleBonus
	}
	confidence := clamp(w.completeness*p.CompletenessWeight+sample, p.MinConfidence, p.MaxConfidence)
	confidence = clamp(confidence+blend.ConfidenceAdjustment/100, p.MinConfidence, p.MaxConfidence)
	confidence = market.Round(confidence, 2)

	prediction := models.MTOPrediction{
		GameID:           in.Game.ID,
		Sport:            sport,
		ExpectedTotal:    market.Round(w.mu, 1),
		MTOFloor:         market.Round(floor, 1),
		CoverageTarget:   market.Round(1-q, 3),
		StaysAway:        staysAway,
		Confidence:       confidence,
		ConfidenceBand:   models.BandFor(confidence),
		SportsbookLine:   line,
		KeyFactors:       w.keyFactors,
		DataCompleteness: market.Round(w.completeness, 2),
		Notes:            w.notes,
		MarketFeatures:   features,
		AsOfDate:         in.AsOfDate,
		GeneratedAt:      e.now().UTC(),
	}
	if prediction.Notes == nil {
		prediction.Notes = []string{}
	}

	e.logger.WithFields(logrus.Fields{
		"game_id":     in.Game.ID,
		"sport":       sport,
		"mu_model":    market.Round(muModel, 2),
		"sigma_model": market.Round(sigmaModel, 2),
		"weight":      market.Round(blend.Weight, 3),
		"mu_post":     market.Round(w.mu, 2),
		"sigma_post":  market.Round(w.sigma, 2),
		"quantile":    q,
		"floor":       prediction.MTOFloor,
		"stays_away":  staysAway,
		"confidence":  confidence,
		"notes":       strings.Join(w.notes, ","),
	}).Debug("MTO floor computed")

	return prediction
}

// center combines each side's blended offense with the opponent's defense
// and applies the pace adjustment.
func (e *Engine) center(home, away models.TeamStats, league models.LeagueAverages) float64 {
	p := e.params
	offense := func(s models.TeamStats) float64 {
		recent, ok := trailingAverage(s.RecentForm, p.TrailingGames)
		if !ok {
			recent = s.AvgPointsScored
		}
		return 0.5*recent + 0.5*s.AvgPointsScored
	}

	homeSide := 0.5*offense(home) + 0.5*away.AvgPointsAllowed
	awaySide := 0.5*offense(away) + 0.5*home.AvgPointsAllowed
	mu := homeSide + awaySide

	if home.Pace != nil && away.Pace != nil && league.AvgPace != nil && *league.AvgPace > 0 {
		avgPace := (*home.Pace + *away.Pace) / 2
		mu += mu * (avgPace - *league.AvgPace) / *league.AvgPace * p.PaceFactor
	}
	return mu
}

func (e *Engine) baseSigma(home, away models.TeamStats, league models.LeagueAverages, sport models.Sport) float64 {
	h, a := formStdDev(home.RecentForm), formStdDev(away.RecentForm)
	if total := math.Sqrt(h*h + a*a); total > 0 {
		return total
	}
	combined := home.AvgPointsScored + away.AvgPointsScored
	if combined <= 0 {
		combined = league.AvgTotal
	}
	return combined * e.params.sigmaPct(sport)
}

func (e *Engine) applyTempoAndWeather(w *working, in Input, home, away models.TeamStats) {
	p := e.params
	lowTempo := p.lowTempoMatch(in.Game, home, away)

	adverse := false
	var desc string
	if weather := in.Context.Weather; weather != nil && !in.Context.Indoor {
		temp, wind := 70.0, 0.0
		if weather.Temperature != nil {
			temp = *weather.Temperature
		}
		if weather.WindSpeed != nil {
			wind = *weather.WindSpeed
		}
		if wind >= p.WindThreshold || temp <= p.ColdThreshold || weather.Precipitation {
			adverse = true
			desc = fmt.Sprintf("Temp %.0f°F, wind %.0f mph", temp, wind)
			if weather.Precipitation {
				desc += ", precipitation"
			}
		}
	}

	if lowTempo == "" && !adverse {
		return
	}
	w.sigma *= p.TempoSigmaFactor
	w.mu -= p.TempoMuShift

	if lowTempo != "" {
		w.note(NoteConferencePace)
		w.factor("Low Tempo Conference", models.ImpactNegative, 0.20,
			fmt.Sprintf("%s (low pace): reduced mean, inflated sigma", lowTempo))
	}
	if adverse {
		w.note(NoteWeather)
		w.factor("Adverse Weather", models.ImpactNegative, 0.20, desc)
	}
}

func (e *Engine) applyInjuries(w *working, injuries []models.Injury) {
	n := 0
	for _, inj := range injuries {
		if inj.Impact == models.InjuryImpactHigh &&
			(inj.Status == models.InjuryStatusOut || inj.Status == models.InjuryStatusQuestionable) {
			n++
		}
	}
	if n == 0 {
		return
	}
	w.sigma *= 1 + float64(n)*e.params.InjurySigmaPerPlayer
	w.mu -= float64(n) * e.params.InjuryMuPerPlayer
	w.note(NoteInjuries)
	w.factor("Key Injuries", models.ImpactNegative, 0.10*float64(n),
		fmt.Sprintf("%d high-impact player(s) out or questionable", n))
}

func (e *Engine) applyEarlySeason(w *working, home, away models.TeamStats, league models.LeagueAverages) {
	p := e.params
	if home.GamesPlayed >= p.EarlySeasonGames && away.GamesPlayed >= p.EarlySeasonGames {
		return
	}
	w.sigma *= p.EarlySeasonSigmaFactor
	w.mu = (1-p.EarlySeasonShrink)*w.mu + p.EarlySeasonShrink*league.AvgTotal
	w.note(NoteEarlySeason)
	w.factor("Early Season Adjustment", models.ImpactNegative, 0.15,
		fmt.Sprintf("Fewer than %d games played: shrink toward league average", p.EarlySeasonGames))
}

func (e *Engine) applyDefenseOrRivalry(w *working, ctx models.GameContext, home, away models.TeamStats) {
	p := e.params
	elite := home.DefensiveRank != nil && away.DefensiveRank != nil &&
		*home.DefensiveRank <= p.EliteDefenseRank && *away.DefensiveRank <= p.EliteDefenseRank
	if !elite && !ctx.Rivalry {
		return
	}
	w.mu -= p.DefenseMuShift
	w.sigma *= p.DefenseSigmaFactor
	w.note(NoteDefenseRivalry)
	w.factor("Defensive Matchup / Rivalry", models.ImpactNegative, 0.10,
		"Both teams strong defensively or rivalry game")
}

// statsOrFallback replaces nil or empty stats with league-average halves.
func statsOrFallback(s *models.TeamStats, league models.LeagueAverages) (models.TeamStats, bool) {
	half := league.AvgTotal / 2
	if s == nil {
		return models.TeamStats{
			AvgPointsScored:  half,
			AvgPointsAllowed: half,
			Pace:             league.AvgPace,
			RecentForm:       []float64{},
		}, true
	}
	out := *s
	fallback := false
	if out.AvgPointsScored <= 0 {
		out.AvgPointsScored = half
		fallback = true
	}
	if out.AvgPointsAllowed <= 0 {
		out.AvgPointsAllowed = half
		fallback = true
	}
	return out, fallback
}

// normalizeMarket enforces the no-market invariant: source none carries no
// numbers, and a market without a mean counts as none.
func normalizeMarket(m models.MarketFeatures) models.MarketFeatures {
	if m.Source == "" && m.MeanTotal != nil {
		m.Source = models.MarketSourceLive
	}
	if m.Source == "" || m.Source == models.MarketSourceNone || m.MeanTotal == nil ||
		math.IsNaN(*m.MeanTotal) || math.IsInf(*m.MeanTotal, 0) {
		return models.NoMarket()
	}
	return m
}

// lowTempoMatch returns the conference or team that puts the game in the
// low-tempo bucket, or "". Conferences match by substring, team names only
// as whole normalized names.
func (p Params) lowTempoMatch(game models.Game, home, away models.TeamStats) string {
	for _, conf := range []string{home.Conference, away.Conference} {
		if containsAny(conf, p.LowTempoConferences[game.Sport]) {
			return conf
		}
	}
	listed := p.LowTempoTeams[game.Sport]
	for _, name := range []string{home.TeamName, away.TeamName, game.HomeTeam, game.AwayTeam} {
		key := teams.Normalize(name)
		if key == "" {
			continue
		}
		for _, team := range listed {
			if key == teams.Normalize(team) {
				return name
			}
		}
	}
	return ""
}

func containsAny(value string, needles []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(value, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
