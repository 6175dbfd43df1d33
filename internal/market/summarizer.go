package market

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/irfndi/mto-floor-go/internal/models"
)

// MaxAltLines bounds the alternate lines returned per summary.
const MaxAltLines = 30

// Summarize reduces bookmaker quotes to consensus totals features. Each
// totals market contributes its over line, or its under line when no over is
// quoted. With no usable line the result has source none and no numbers.
func Summarize(bookmakers []Bookmaker) models.MarketFeatures {
	var (
		lines       []float64
		alts        []models.AltLine
		books       = make(map[string]struct{})
		lastUpdated *time.Time
	)

	for _, b := range bookmakers {
		for _, m := range b.Markets {
			if !isTotalsMarket(m.Key) {
				continue
			}
			over, under := findSide(m.Outcomes, "over"), findSide(m.Outcomes, "under")

			var line *float64
			switch {
			case over != nil && validPoint(over.Point):
				line = over.Point
			case under != nil && validPoint(under.Point):
				line = under.Point
			}
			if line == nil {
				continue
			}

			lines = append(lines, *line)
			if b.Key != "" {
				books[b.Key] = struct{}{}
			}
			alts = append(alts, altLineFrom(*line, over, under))

			if m.LastUpdate != nil && (lastUpdated == nil || m.LastUpdate.After(*lastUpdated)) {
				lastUpdated = m.LastUpdate
			}
		}
	}

	if len(lines) == 0 {
		return models.NoMarket()
	}

	mean := Mean(lines)
	median := Median(lines)
	features := models.MarketFeatures{
		MeanTotal:   &mean,
		MedianTotal: &median,
		QuoteCount:  models.IntPtr(len(books)),
		AltLines:    dedupeAltLines(alts),
		LastUpdated: lastUpdated,
		Source:      models.MarketSourceLive,
	}
	if std, ok := SampleStdDev(lines); ok {
		features.StdTotal = &std
	}
	return features
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values. Even-length input averages the two
// middle values. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SampleStdDev returns the sample standard deviation. It reports false for
// fewer than two values.
func SampleStdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean := Mean(values)
	ss := 0.0
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)-1)), true
}

func findSide(outcomes []Outcome, side string) *Outcome {
	for i := range outcomes {
		if strings.HasPrefix(strings.ToLower(outcomes[i].Name), side) {
			return &outcomes[i]
		}
	}
	return nil
}

func validPoint(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

func altLineFrom(line float64, over, under *Outcome) models.AltLine {
	alt := models.AltLine{Line: line}
	if over != nil && over.Price != 0 {
		alt.OverPrice = models.Float64Ptr(over.Price)
	}
	if under != nil && under.Price != 0 {
		alt.UnderPrice = models.Float64Ptr(under.Price)
	}
	if alt.OverPrice == nil || alt.UnderPrice == nil {
		return alt
	}

	pOver, errOver := AmericanToImpliedProbability(*alt.OverPrice)
	pUnder, errUnder := AmericanToImpliedProbability(*alt.UnderPrice)
	if errOver != nil || errUnder != nil {
		return alt
	}
	if fair, _, err := RemoveVigMultiplicative(pOver, pUnder); err == nil {
		alt.FairOverProbability = models.Float64Ptr(Round(fair, 4))
	}
	return alt
}

// dedupeAltLines keeps the first quote per line rounded to two decimals,
// sorted ascending and capped at MaxAltLines.
func dedupeAltLines(items []models.AltLine) []models.AltLine {
	seen := make(map[float64]struct{}, len(items))
	out := make([]models.AltLine, 0, len(items))
	for _, item := range items {
		key := Round(item.Line, 2)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		item.Line = key
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	if len(out) > MaxAltLines {
		out = out[:MaxAltLines]
	}
	return out
}
