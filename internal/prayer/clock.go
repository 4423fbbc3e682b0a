package prayer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salat/internal/solar"
)

// Sentinel stands in for a time the sun never reaches.
const Sentinel = "--:--"

// FormatDecimalHour renders a fractional hour as zero-padded "HH:MM".
// Values outside [0, 24) are wrapped first. A minute that rounds to 60 rolls
// into the next hour, and hour 24 rolls to 00.
func FormatDecimalHour(h float64) string {
	if solar.Unsolvable(h) {
		return Sentinel
	}
	h = solar.FixHour(h)
	hours := int(math.Floor(h))
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		minutes = 0
		hours++
	}
	if hours == 24 {
		hours = 0
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// IsSentinel reports whether s is the unsolvable marker.
func IsSentinel(s string) bool {
	return strings.TrimSpace(s) == Sentinel
}

// ParseClock parses "HH:MM", ignoring a trailing suffix such as " (BST)".
func ParseClock(raw string) (hour, minute int, err error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time format: %q", raw)
	}
	if hour, err = clockField(hh, 23); err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	if minute, err = clockField(mm, 59); err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	return hour, minute, nil
}

func clockField(s string, max int) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("want 1-2 digits, got %q", s)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("want 1-2 digits, got %q", s)
		}
		n = n*10 + int(s[i]-'0')
	}
	if n > max {
		return 0, fmt.Errorf("%d out of range 0-%d", n, max)
	}
	return n, nil
}

// parseTimeStr parses a clock string into a time.Time on date's calendar day
// in loc.
func parseTimeStr(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	hour, min, err := ParseClock(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}

func nan() float64 { return math.NaN() }
