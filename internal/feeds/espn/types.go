package espn

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type scoreboardResponse struct {
	Events []event `json:"events"`
}

type scheduleResponse struct {
	Team struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"team"`
	Events []event `json:"events"`
}

type event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	Competitions []competition `json:"competitions"`
	Status       *status       `json:"status,omitempty"`
}

type competition struct {
	Date        string       `json:"date,omitempty"`
	Venue       *venue       `json:"venue,omitempty"`
	Competitors []competitor `json:"competitors"`
	Odds        []odds       `json:"odds,omitempty"`
	Status      *status      `json:"status,omitempty"`
}

type venue struct {
	FullName string `json:"fullName"`
	Indoor   bool   `json:"indoor"`
}

type competitor struct {
	ID       string     `json:"id"`
	HomeAway string     `json:"homeAway"`
	Score    scoreValue `json:"score"`
	Team     team       `json:"team"`
}

type team struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Logo        string `json:"logo"`
	Logos       []struct {
		Href string `json:"href"`
	} `json:"logos,omitempty"`
}

func (t team) logo() string {
	if t.Logo != "" {
		return t.Logo
	}
	if len(t.Logos) > 0 {
		return t.Logos[0].Href
	}
	return ""
}

type odds struct {
	OverUnder *float64 `json:"overUnder"`
}

type status struct {
	Type struct {
		State     string `json:"state"`
		Completed bool   `json:"completed"`
	} `json:"type"`
}

// scoreValue accepts the shapes ESPN uses for scores: a string on the
// scoreboard, an object with value on team schedules, occasionally a number.
type scoreValue struct {
	Value *float64
}

func (s *scoreValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s.Value = parseScore(raw)
	case '{':
		var obj struct {
			Value        *float64 `json:"value"`
			DisplayValue string   `json:"displayValue"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Value != nil {
			s.Value = obj.Value
		} else {
			s.Value = parseScore(obj.DisplayValue)
		}
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.Value = &v
	}
	return nil
}

func parseScore(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04Z",
}

// parseDate parses ESPN timestamps, which often omit seconds.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
