// Package fusion deduplicates RawGame records from several feeds into one
// Game per real event.
package fusion

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/teams"
)

const (
	DefaultBucket = 30 * time.Minute
	MinBucket     = 10 * time.Minute
	MaxBucket     = 30 * time.Minute
)

// Fuser merges feed records that describe the same event: same sport, same
// two teams after normalization, start times in the same bucket.
type Fuser struct {
	bucket     time.Duration
	normalizer *teams.Normalizer
}

// NewFuser creates a Fuser. bucket is clamped to [MinBucket, MaxBucket]; zero
// means DefaultBucket. A nil normalizer uses the default alias table.
func NewFuser(bucket time.Duration, normalizer *teams.Normalizer) *Fuser {
	switch {
	case bucket == 0:
		bucket = DefaultBucket
	case bucket < MinBucket:
		bucket = MinBucket
	case bucket > MaxBucket:
		bucket = MaxBucket
	}
	if normalizer == nil {
		normalizer = teams.NewNormalizer()
	}
	return &Fuser{bucket: bucket, normalizer: normalizer}
}

// Bucket returns the start time bucket width.
func (f *Fuser) Bucket() time.Duration {
	return f.bucket
}

// Key returns the fusion key of g. The team names are ordered so a record
// with home and away swapped lands on the same key.
func (f *Fuser) Key(g models.RawGame) string {
	a, b := f.normalizer.Normalize(g.HomeName), f.normalizer.Normalize(g.AwayName)
	if b < a {
		a, b = b, a
	}
	slot := g.StartTimeUTC.Unix() / int64(f.bucket/time.Second)
	if g.StartTimeUTC.Unix() < 0 && g.StartTimeUTC.Unix()%int64(f.bucket/time.Second) != 0 {
		slot--
	}
	return strings.Join([]string{string(g.Sport), a, b, strconv.FormatInt(slot, 10)}, "|")
}

// Fuse merges every record of every list. The result does not depend on
// the order of the lists or of the records within them, and is sorted by
// start time then id.
func (f *Fuser) Fuse(lists ...[]models.RawGame) []models.Game {
	groups := make(map[string][]models.RawGame)
	var order []string
	for _, list := range lists {
		for _, g := range list {
			k := f.Key(g)
			if _, seen := groups[k]; !seen {
				order = append(order, k)
			}
			groups[k] = append(groups[k], g)
		}
	}

	games := make([]models.Game, 0, len(groups))
	for _, k := range order {
		games = append(games, f.resolve(groups[k]))
	}

	sort.Slice(games, func(i, j int) bool {
		if !games[i].StartTimeUTC.Equal(games[j].StartTimeUTC) {
			return games[i].StartTimeUTC.Before(games[j].StartTimeUTC)
		}
		return games[i].ID < games[j].ID
	})
	return games
}

// resolve collapses one key group into a Game.
func (f *Fuser) resolve(group []models.RawGame) models.Game {
	records := dedupe(group)
	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })

	base := records[0]
	baseHome := f.normalizer.Normalize(base.HomeName)

	game := models.Game{
		ID:           base.ID,
		Sport:        base.Sport,
		HomeTeam:     base.HomeName,
		AwayTeam:     base.AwayName,
		HomeTeamID:   base.HomeID,
		AwayTeamID:   base.AwayID,
		HomeTeamLogo: base.HomeLogo,
		AwayTeamLogo: base.AwayLogo,
		StartTimeUTC: base.StartTimeUTC,
		Venue:        base.Venue,
		Status:       base.Status,
		DataSource:   base.SourceTag,
	}

	for _, r := range records[1:] {
		if f.normalizer.Normalize(r.HomeName) != baseHome {
			r = swapSides(r)
		}
		game.HomeTeamID = firstNonEmpty(game.HomeTeamID, r.HomeID)
		game.AwayTeamID = firstNonEmpty(game.AwayTeamID, r.AwayID)
		game.HomeTeamLogo = firstNonEmpty(game.HomeTeamLogo, r.HomeLogo)
		game.AwayTeamLogo = firstNonEmpty(game.AwayTeamLogo, r.AwayLogo)
		game.Venue = firstNonEmpty(game.Venue, r.Venue)
		if game.Status == "" {
			game.Status = r.Status
		}
		if game.Sport == "" {
			game.Sport = r.Sport
		}
	}
	if game.Status == "" {
		game.Status = models.GameStatusScheduled
	}

	if carrier, ok := totalCarrier(records); ok {
		line := *carrier.ConsensusTotal
		game.SportsbookLine = &line
		game.Market = carrier.Market
	}
	if game.Market == nil {
		for _, r := range records {
			if r.Market != nil {
				game.Market = r.Market
				break
			}
		}
	}

	if mixedSources(records) {
		game.DataSource = models.SourceMerged
	}
	return game
}

// totalCarrier picks the record whose market total the Game reports: the
// odds feed when it has one, otherwise any record that has one.
func totalCarrier(records []models.RawGame) (models.RawGame, bool) {
	best, found := models.RawGame{}, false
	for _, r := range records {
		if !r.HasTotal() {
			continue
		}
		if !found || totalRank(r.SourceTag) < totalRank(best.SourceTag) {
			best, found = r, true
		}
	}
	return best, found
}

func mixedSources(records []models.RawGame) bool {
	for _, r := range records {
		if r.SourceTag == models.SourceMerged || r.SourceTag != records[0].SourceTag {
			return true
		}
	}
	return false
}

// dedupe drops records that are deeply equal to an earlier one.
func dedupe(group []models.RawGame) []models.RawGame {
	out := make([]models.RawGame, 0, len(group))
	for _, g := range group {
		dup := false
		for _, kept := range out {
			if reflect.DeepEqual(g, kept) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, g)
		}
	}
	return out
}

// identityRank orders sources for identity fields: the score feed carries
// logos and numeric team ids.
func identityRank(s models.SourceTag) int {
	switch s {
	case models.SourceScoreFeed:
		return 0
	case models.SourceMerged:
		return 1
	case models.SourceOddsFeed:
		return 2
	default:
		return 3
	}
}

func totalRank(s models.SourceTag) int {
	switch s {
	case models.SourceOddsFeed:
		return 0
	case models.SourceMerged:
		return 1
	case models.SourceScoreFeed:
		return 2
	default:
		return 3
	}
}

// less is a total order over records so resolution never depends on
// input order.
func less(a, b models.RawGame) bool {
	if ra, rb := identityRank(a.SourceTag), identityRank(b.SourceTag); ra != rb {
		return ra < rb
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if !a.StartTimeUTC.Equal(b.StartTimeUTC) {
		return a.StartTimeUTC.Before(b.StartTimeUTC)
	}
	if ta, tb := totalValue(a), totalValue(b); ta != tb {
		return ta < tb
	}
	for _, pair := range [][2]string{
		{a.HomeName, b.HomeName},
		{a.AwayName, b.AwayName},
		{a.HomeID, b.HomeID},
		{a.AwayID, b.AwayID},
		{a.Venue, b.Venue},
		{string(a.Status), string(b.Status)},
		{a.HomeLogo, b.HomeLogo},
		{a.AwayLogo, b.AwayLogo},
	} {
		if pair[0] != pair[1] {
			return pair[0] < pair[1]
		}
	}
	return false
}

func totalValue(g models.RawGame) float64 {
	if g.ConsensusTotal == nil {
		return -1
	}
	return *g.ConsensusTotal
}

func swapSides(g models.RawGame) models.RawGame {
	g.HomeName, g.AwayName = g.AwayName, g.HomeName
	g.HomeID, g.AwayID = g.AwayID, g.HomeID
	g.HomeLogo, g.AwayLogo = g.AwayLogo, g.HomeLogo
	return g
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
