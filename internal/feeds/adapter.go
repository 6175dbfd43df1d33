// Package feeds holds the upstream feed adapters' shared plumbing: the
// Adapter contract, the bounded JSON fetcher, error tagging, the health
// registry and the feed response cache.
package feeds

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/timewindow"
)

// Result is the tagged outcome of one adapter call. OK false always comes
// with an empty game list and a short Error tag.
type Result struct {
	OK     bool             `json:"ok"`
	Games  []models.RawGame `json:"games"`
	Error  string           `json:"error,omitempty"`
	Cached bool             `json:"cached,omitempty"`
}

// Adapter converts one upstream into RawGame records. Implementations never
// return errors; failures are reported through Result and FeedHealth.
type Adapter interface {
	Source() models.SourceTag
	FetchRawGames(ctx context.Context, sport models.Sport, window timewindow.Window) (Result, models.FeedHealth)
}

// Runner turns a fallible fetch into the soft-fail Adapter contract.
type Runner struct {
	Source   models.SourceTag
	Registry *HealthRegistry
	Logger   *logrus.Logger
}

// Run executes fetch, drops incomplete records, updates health and logs
// failures. It never propagates an error.
func (r Runner) Run(ctx context.Context, sport models.Sport, fetch func(ctx context.Context) ([]models.RawGame, error)) (Result, models.FeedHealth) {
	games, err := fetch(ctx)
	if err != nil {
		health := r.record(sport, 0, err)
		if r.Logger != nil {
			r.Logger.WithFields(logrus.Fields{
				"source": r.Source,
				"sport":  sport,
				"tag":    health.LastError,
			}).WithError(err).Warn("Feed fetch failed")
		}
		return Result{OK: false, Games: []models.RawGame{}, Error: health.LastError}, health
	}

	complete := KeepComplete(games)
	if dropped := len(games) - len(complete); dropped > 0 && r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{
			"source":  r.Source,
			"sport":   sport,
			"dropped": dropped,
		}).Debug("Dropped incomplete feed records")
	}
	health := r.record(sport, len(complete), nil)
	return Result{OK: true, Games: complete}, health
}

func (r Runner) record(sport models.Sport, count int, err error) models.FeedHealth {
	if r.Registry == nil {
		return NewHealthRegistry().Record(r.Source, sport, count, err)
	}
	return r.Registry.Record(r.Source, sport, count, err)
}

// KeepComplete drops records missing a team name or a start time.
func KeepComplete(games []models.RawGame) []models.RawGame {
	out := make([]models.RawGame, 0, len(games))
	for _, g := range games {
		if strings.TrimSpace(g.HomeName) == "" || strings.TrimSpace(g.AwayName) == "" || g.StartTimeUTC.IsZero() {
			continue
		}
		out = append(out, g)
	}
	return out
}
