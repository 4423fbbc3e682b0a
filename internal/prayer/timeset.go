package prayer

import (
	"fmt"
	"strings"
	"time"
)

// Key names one of the six daily markers.
type Key string

const (
	Fajr    Key = "Fajr"
	Sunrise Key = "Sunrise"
	Dhuhr   Key = "Dhuhr"
	Asr     Key = "Asr"
	Maghrib Key = "Maghrib"
	Isha    Key = "Isha"
)

// Keys lists the six markers in chronological order.
var Keys = []Key{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// Prayers lists the five prayers in canonical order. Sunrise is not a prayer.
var Prayers = []Key{Fajr, Dhuhr, Asr, Maghrib, Isha}

// ParseKey matches a prayer name case-insensitively.
func ParseKey(name string) (Key, bool) {
	for _, k := range Keys {
		if strings.EqualFold(string(k), strings.TrimSpace(name)) {
			return k, true
		}
	}
	return "", false
}

// Date is a civil calendar date with no time-of-day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Coordinates is a geographic position in decimal degrees, north and east
// positive.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// TimeSet holds the six formatted clock times for one day. Every field is
// always set; unsolvable entries hold Sentinel.
type TimeSet struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Get returns the clock string for k, or "" for an unknown key.
func (ts TimeSet) Get(k Key) string {
	switch k {
	case Fajr:
		return ts.Fajr
	case Sunrise:
		return ts.Sunrise
	case Dhuhr:
		return ts.Dhuhr
	case Asr:
		return ts.Asr
	case Maghrib:
		return ts.Maghrib
	case Isha:
		return ts.Isha
	}
	return ""
}

// Entry is one key/value pair of a TimeSet.
type Entry struct {
	Key  Key
	Time string
}

// Entries returns the six entries in chronological order.
func (ts TimeSet) Entries() []Entry {
	out := make([]Entry, len(Keys))
	for i, k := range Keys {
		out[i] = Entry{Key: k, Time: ts.Get(k)}
	}
	return out
}
