package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_IsUTC(t *testing.T) {
	got := Now()

	assert.Equal(t, time.UTC, got.Location())
	assert.WithinDuration(t, time.Now().UTC(), got, 10*time.Millisecond)
}

func TestUnixToTime(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		UnixToTime(1788177600))
	assert.True(t, UnixToTime(0).IsZero())
	assert.True(t, UnixToTime(-5).IsZero())
}

func TestUnixToTimeWithMilliseconds(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 8, 31, 12, 0, 0, 250000000, time.UTC),
		UnixToTimeWithMilliseconds(1788177600250))
	assert.True(t, UnixToTimeWithMilliseconds(0).IsZero())
}

func TestFormatISO8601(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	assert.Equal(t, "2026-08-31T12:00:00Z",
		FormatISO8601(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-08-31T17:00:00Z",
		FormatISO8601(time.Date(2026, 8, 31, 12, 0, 0, 0, est)),
		"non-UTC input is normalized")
}
