package printer

import (
	"fmt"
	"strings"
	"time"
)

var agoUnits = []struct {
	name string
	size time.Duration
}{
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// TimeAgo returns a human readable relative time, e.g. `3 hours ago (UTC)`.
func TimeAgo(t time.Time) string {
	return timeAgo(time.Now().UTC(), t)
}

func timeAgo(now, t time.Time) string {
	diff := now.Sub(t.UTC())
	if diff < 0 {
		return "in the future (UTC)"
	}

	for _, u := range agoUnits {
		if diff < u.size && u.size != time.Second {
			continue
		}
		n := int(diff / u.size)
		if n == 1 {
			return fmt.Sprintf("1 %s ago (UTC)", u.name)
		}
		return fmt.Sprintf("%d %ss ago (UTC)", n, u.name)
	}

	return ""
}

// FormatTimestamp returns the timestamp in UTC, e.g. `2006-01-02 15:04:05 UTC`.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration returns the duration rounded to the second, sub second ones as milliseconds.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
