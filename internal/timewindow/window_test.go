package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/mto-floor-go/internal/utils"
)

func TestForDate_UTC(t *testing.T) {
	w, err := ForDate("2025-01-10", "")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), w.StartUTC)
	assert.Equal(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), w.EndUTC)
	assert.Equal(t, "UTC", w.TimeZone)
}

func TestForDate_NamedZone(t *testing.T) {
	w, err := ForDate("2025-01-10", "America/New_York")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 10, 5, 0, 0, 0, time.UTC), w.StartUTC)
	assert.Equal(t, time.Date(2025, 1, 11, 5, 0, 0, 0, time.UTC), w.EndUTC)
	assert.Equal(t, []string{"20250110", "20250111"}, w.FeedDates())
}

func TestForDate_DSTDayIsShort(t *testing.T) {
	w, err := ForDate("2025-03-09", "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, 23*time.Hour, w.EndUTC.Sub(w.StartUTC))
}

func TestForDate_Invalid(t *testing.T) {
	_, err := ForDate("10/01/2025", "UTC")
	assert.True(t, utils.IsValidationError(err))

	_, err = ForDate("2025-01-10", "Mars/Olympus")
	assert.True(t, utils.IsValidationError(err))
}

func TestWindow_ContainsIsHalfOpen(t *testing.T) {
	w, err := ForDate("2025-01-10", "UTC")
	require.NoError(t, err)

	assert.True(t, w.Contains(w.StartUTC))
	assert.True(t, w.Contains(w.EndUTC.Add(-time.Second)))
	assert.False(t, w.Contains(w.EndUTC))
	assert.False(t, w.Contains(w.StartUTC.Add(-time.Second)))
}

func TestToday(t *testing.T) {
	now := time.Date(2025, 1, 11, 3, 0, 0, 0, time.UTC)

	w, err := Today(now, "America/Los_Angeles")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-10", w.Date)
	assert.True(t, w.Contains(now))
	assert.Equal(t, "2025-01-10@America/Los_Angeles", w.Key())
}
