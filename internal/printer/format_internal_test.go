package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"Now should be zero seconds.":            {time: now, expected: "0 seconds ago (UTC)"},
		"1 second ago.":                          {time: now.Add(-1 * time.Second), expected: "1 second ago (UTC)"},
		"30 seconds ago.":                        {time: now.Add(-30 * time.Second), expected: "30 seconds ago (UTC)"},
		"1 minute ago.":                          {time: now.Add(-1 * time.Minute), expected: "1 minute ago (UTC)"},
		"45 minutes ago.":                        {time: now.Add(-45*time.Minute - 10*time.Second), expected: "45 minutes ago (UTC)"},
		"1 hour ago.":                            {time: now.Add(-1 * time.Hour), expected: "1 hour ago (UTC)"},
		"5 hours ago.":                           {time: now.Add(-5 * time.Hour), expected: "5 hours ago (UTC)"},
		"1 day ago.":                             {time: now.Add(-24 * time.Hour), expected: "1 day ago (UTC)"},
		"7 days ago.":                            {time: now.Add(-7 * 24 * time.Hour), expected: "7 days ago (UTC)"},
		"Other timezones should be compared.":    {time: now.Add(-2 * time.Hour).In(time.FixedZone("EST", -5*3600)), expected: "2 hours ago (UTC)"},
		"Future times should not be a distance.": {time: now.Add(5 * time.Minute), expected: "in the future (UTC)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, timeAgo(now, test.time))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"UTC timestamp.": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.UTC),
			expected: "2026-01-30 10:15:30 UTC",
		},
		"Other timezones should be converted to UTC.": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.FixedZone("EST", -5*3600)),
			expected: "2026-01-30 15:15:30 UTC",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, FormatTimestamp(test.time))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		d        time.Duration
		expected string
	}{
		"Sub second durations should use milliseconds.":  {d: 1234567 * time.Microsecond / 10, expected: "123ms"},
		"Longer durations should be rounded to seconds.": {d: 90*time.Second + 400*time.Millisecond, expected: "1m30s"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, FormatDuration(test.d))
		})
	}
}
