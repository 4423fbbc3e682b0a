package prayer

import (
	"fmt"
	"time"
)

// Prayer is one marker placed on the timeline.
type Prayer struct {
	Name string
	Time time.Time
}

// DefaultPrayerNames are the markers tracked by default.
var DefaultPrayerNames = []string{
	"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha",
}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	"Fajr":    "F",
	"Sunrise": "S",
	"Dhuhr":   "D",
	"Asr":     "A",
	"Maghrib": "M",
	"Isha":    "I",
}

// ParseTimings places the selected entries of times on date's calendar day
// in loc. Entries holding Sentinel are left out. An entry earlier than the one
// before it in the day is moved to the following day.
func ParseTimings(times TimeSet, date time.Time, loc *time.Location, selected []string) ([]Prayer, error) {
	want := make(map[Key]bool, len(selected))
	for _, name := range selected {
		k, ok := ParseKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", name)
		}
		want[k] = true
	}

	var prayers []Prayer
	var prev time.Time
	for _, k := range Keys {
		raw := times.Get(k)
		if IsSentinel(raw) {
			continue
		}
		t, err := parseTimeStr(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s (%q): %w", k, raw, err)
		}
		if !prev.IsZero() && t.Before(prev) {
			t = t.AddDate(0, 0, 1)
		}
		prev = t

		if want[k] {
			prayers = append(prayers, Prayer{Name: string(k), Time: t})
		}
	}

	return prayers, nil
}

// CurrentPrayer returns the latest prayer at or before now, or nil when none
// has started yet.
func CurrentPrayer(prayers []Prayer, now time.Time) *Prayer {
	var cur *Prayer
	for i := range prayers {
		if prayers[i].Time.After(now) {
			break
		}
		cur = &prayers[i]
	}
	return cur
}

// Upcoming returns the first prayer strictly after now, or nil when all have
// passed (the caller then looks at tomorrow's Fajr).
func Upcoming(prayers []Prayer, now time.Time) *Prayer {
	for i := range prayers {
		if prayers[i].Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(p Prayer, now time.Time) time.Duration {
	return p.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
