package prayer

import (
	"fmt"
	"time"
)

// Next is the upcoming prayer.
type Next struct {
	Key Key
	// Time is the clock string exactly as it appears in the time set.
	Time string
	// Tomorrow is set when the prayer falls on the calendar day after now.
	Tomorrow bool
	// At is the resolved instant in now's location. It is zero when Time
	// cannot be parsed.
	At time.Time
}

// NextPrayer returns the first prayer in canonical order whose time is
// strictly after now. Entries that do not parse are skipped. When every
// prayer has passed it returns Fajr with Tomorrow set.
//
// Clock times are not all anchored to now's calendar day. Once a prayer's
// clock time is earlier than the one before it (Isha at 00:30 after Maghrib
// at 22:10, say), it and every later prayer are placed on the next day. At
// 23:00 with Isha at 00:30 this returns Isha with Tomorrow set, where plain
// same-day anchoring would treat Isha as passed and wrap to Fajr.
func NextPrayer(times TimeSet, now time.Time) Next {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	shift := 0
	prev := -1
	for _, k := range Prayers {
		raw := times.Get(k)
		h, m, err := ParseClock(raw)
		if err != nil {
			continue
		}
		minutes := h*60 + m
		if minutes < prev {
			shift = 1
		}
		prev = minutes

		at := time.Date(midnight.Year(), midnight.Month(), midnight.Day()+shift, h, m, 0, 0, now.Location())
		if at.After(now) {
			return Next{Key: k, Time: raw, Tomorrow: shift > 0, At: at}
		}
	}

	next := Next{Key: Fajr, Time: times.Fajr, Tomorrow: true}
	if h, m, err := ParseClock(times.Fajr); err == nil {
		next.At = time.Date(midnight.Year(), midnight.Month(), midnight.Day()+1, h, m, 0, 0, now.Location())
	}
	return next
}

// Urgency is a three-level proximity band.
type Urgency int

const (
	Green Urgency = iota
	Orange
	Red
)

func (u Urgency) String() string {
	switch u {
	case Orange:
		return "orange"
	case Red:
		return "red"
	default:
		return "green"
	}
}

// MarshalText encodes the band as its lower-case name.
func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (u *Urgency) UnmarshalText(b []byte) error {
	switch string(b) {
	case "green":
		*u = Green
	case "orange":
		*u = Orange
	case "red":
		*u = Red
	default:
		return fmt.Errorf("unknown urgency %q", b)
	}
	return nil
}

// Thresholds are the minute limits for the orange and red bands. The
// classifier does not require RedMinutes < OrangeMinutes.
type Thresholds struct {
	OrangeMinutes int `json:"orange_minutes"`
	RedMinutes    int `json:"red_minutes"`
}

// DefaultThresholds matches the shipped settings.
var DefaultThresholds = Thresholds{OrangeMinutes: 30, RedMinutes: 10}

// UrgencyStatus classifies a clock time, read as today's local time, by how
// many minutes remain until it. Unparseable or already passed times are
// Green. Both thresholds are inclusive.
func UrgencyStatus(timeStr string, th Thresholds, now time.Time) Urgency {
	at, err := parseTimeStr(timeStr, now, now.Location())
	if err != nil {
		return Green
	}
	return band(at.Sub(now), th)
}

// Classify returns the band for a prayer left away. Zero or negative
// durations are Green.
func (th Thresholds) Classify(left time.Duration) Urgency {
	return band(left, th)
}

func band(left time.Duration, th Thresholds) Urgency {
	minutes := left.Minutes()
	switch {
	case minutes <= 0:
		return Green
	case minutes <= float64(th.RedMinutes):
		return Red
	case minutes <= float64(th.OrangeMinutes):
		return Orange
	default:
		return Green
	}
}

// Status combines NextPrayer with the urgency of the returned prayer. Unlike
// UrgencyStatus it measures against the resolved instant, so a prayer after
// midnight is classified by its real distance.
func Status(times TimeSet, th Thresholds, now time.Time) (Next, Urgency) {
	next := NextPrayer(times, now)
	if next.At.IsZero() {
		return next, Green
	}
	return next, band(next.At.Sub(now), th)
}

// StatusWithTomorrow is Status, except that once every prayer has passed it
// takes Fajr from tomorrow(), the next day's own times, instead of repeating
// today's Fajr clock. tomorrow is only called in that case.
func StatusWithTomorrow(times TimeSet, tomorrow func() TimeSet, th Thresholds, now time.Time) (Next, Urgency) {
	next, urgency := Status(times, th, now)
	if !next.Tomorrow || next.Key != Fajr {
		return next, urgency
	}

	raw := tomorrow().Fajr
	next = Next{Key: Fajr, Time: raw, Tomorrow: true}
	h, m, err := ParseClock(raw)
	if err != nil {
		return next, Green
	}
	next.At = time.Date(now.Year(), now.Month(), now.Day()+1, h, m, 0, 0, now.Location())
	return next, th.Classify(next.At.Sub(now))
}
