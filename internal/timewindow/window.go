// Package timewindow converts a local calendar date in an IANA time zone
// into the UTC instant range used to filter feed records.
package timewindow

import (
	"strings"
	"time"

	"github.com/irfndi/mto-floor-go/internal/utils"
)

// DateLayout is the ISO calendar date layout accepted by ForDate.
const DateLayout = "2006-01-02"

// Window is the half-open range [StartUTC, EndUTC) covering one local day.
type Window struct {
	Date     string    `json:"date"`
	TimeZone string    `json:"timeZone"`
	StartUTC time.Time `json:"startUTC"`
	EndUTC   time.Time `json:"endUTC"`
}

// ForDate returns the window for date (YYYY-MM-DD) in the named zone. An
// empty zone means UTC. Days with a DST transition are 23 or 25 hours long.
func ForDate(date, zone string) (Window, error) {
	loc, err := loadLocation(zone)
	if err != nil {
		return Window{}, err
	}

	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return Window{}, utils.NewFieldError("date", "expected YYYY-MM-DD")
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return Window{
		Date:     start.Format(DateLayout),
		TimeZone: loc.String(),
		StartUTC: start.UTC(),
		EndUTC:   end.UTC(),
	}, nil
}

// Today returns the window for the current local date in zone.
func Today(now time.Time, zone string) (Window, error) {
	loc, err := loadLocation(zone)
	if err != nil {
		return Window{}, err
	}
	return ForDate(now.In(loc).Format(DateLayout), zone)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.StartUTC) && t.Before(w.EndUTC)
}

// Key identifies the window in cache keys.
func (w Window) Key() string {
	return w.Date + "@" + w.TimeZone
}

// FeedDates returns the YYYYMMDD dates a date-keyed upstream should be
// queried for: the local date itself plus every UTC date the window touches.
func (w Window) FeedDates() []string {
	candidates := []string{
		strings.ReplaceAll(w.Date, "-", ""),
		w.StartUTC.Format("20060102"),
		w.EndUTC.Add(-time.Nanosecond).Format("20060102"),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, d := range candidates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func loadLocation(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, utils.NewFieldError("tz", "unknown time zone "+zone)
	}
	return loc, nil
}
