package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
)

// Response represents the top-level Al Adhan API response. The local HTTP
// server answers with the same envelope so existing clients can point at it.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Data   `json:"data"`
}

// ErrorResponse is the envelope used for failed requests; Data carries the
// message.
type ErrorResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   string `json:"data"`
}

// Data holds the prayer timings, date info, and metadata.
type Data struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings contains all prayer and event times as HH:MM strings.
// The API may include a timezone suffix like " (BST)" which is stripped by
// TimeSet.
type Timings struct {
	Fajr       string `json:"Fajr"`
	Sunrise    string `json:"Sunrise"`
	Dhuhr      string `json:"Dhuhr"`
	Asr        string `json:"Asr"`
	Sunset     string `json:"Sunset"`
	Maghrib    string `json:"Maghrib"`
	Isha       string `json:"Isha"`
	Imsak      string `json:"Imsak,omitempty"`
	Midnight   string `json:"Midnight,omitempty"`
	Firstthird string `json:"Firstthird,omitempty"`
	Lastthird  string `json:"Lastthird,omitempty"`
}

// TimingsFrom fills the six computed times. Sunset and Maghrib coincide.
func TimingsFrom(ts prayer.TimeSet) Timings {
	return Timings{
		Fajr:    ts.Fajr,
		Sunrise: ts.Sunrise,
		Dhuhr:   ts.Dhuhr,
		Asr:     ts.Asr,
		Sunset:  ts.Maghrib,
		Maghrib: ts.Maghrib,
		Isha:    ts.Isha,
	}
}

// TimeSet normalises the six prayer-relevant entries to "HH:MM". Entries that
// do not parse become the "--:--" sentinel.
func (t Timings) TimeSet() prayer.TimeSet {
	return prayer.TimeSet{
		Fajr:    normalise(t.Fajr),
		Sunrise: normalise(t.Sunrise),
		Dhuhr:   normalise(t.Dhuhr),
		Asr:     normalise(t.Asr),
		Maghrib: normalise(t.Maghrib),
		Isha:    normalise(t.Isha),
	}
}

func normalise(raw string) string {
	h, m, err := prayer.ParseClock(raw)
	if err != nil {
		return prayer.Sentinel
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// DateInfo contains date representations.
type DateInfo struct {
	Readable  string        `json:"readable"`
	Timestamp string        `json:"timestamp"`
	Gregorian GregorianDate `json:"gregorian"`
}

// DateInfoFor describes d the way the API does, with the timestamp taken at
// local midnight for the given UTC offset.
func DateInfoFor(d prayer.Date, utcOffset float64) DateInfo {
	loc := time.FixedZone("", int(utcOffset*3600))
	t := d.In(loc)
	return DateInfo{
		Readable:  t.Format("02 Jan 2006"),
		Timestamp: strconv.FormatInt(t.Unix(), 10),
		Gregorian: GregorianDate{
			Date:    t.Format("02-01-2006"),
			Day:     t.Format("02"),
			Weekday: GregorianDay{En: t.Weekday().String()},
			Month:   GregorianMonth{Number: int(t.Month()), En: t.Month().String()},
			Year:    t.Format("2006"),
		},
	}
}

// GregorianDate represents the Gregorian date from the API response.
type GregorianDate struct {
	Date    string         `json:"date"` // e.g. "28-02-2026"
	Day     string         `json:"day"`
	Weekday GregorianDay   `json:"weekday"`
	Month   GregorianMonth `json:"month"`
	Year    string         `json:"year"`
}

// Parse reads the DD-MM-YYYY date field.
func (g GregorianDate) Parse() (prayer.Date, error) {
	t, err := time.Parse("02-01-2006", g.Date)
	if err != nil {
		return prayer.Date{}, fmt.Errorf("invalid gregorian date %q: %w", g.Date, err)
	}
	return prayer.DateOf(t), nil
}

// GregorianDay contains the weekday name.
type GregorianDay struct {
	En string `json:"en"` // e.g. "Saturday"
}

// GregorianMonth contains the month details.
type GregorianMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"` // e.g. "February"
}

// Meta contains request metadata returned by the API.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Offset    *float64   `json:"utcOffset,omitempty"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

// MethodInfo identifies the calculation method used.
type MethodInfo struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// MethodInfoOf describes m with its angles as params.
func MethodInfoOf(m method.Method) MethodInfo {
	return MethodInfo{
		ID:     m.ID,
		Name:   m.Name,
		Params: map[string]any{"Fajr": m.Fajr, "Isha": m.Isha.String()},
	}
}

// SchoolName maps the school id to the label the API uses.
func SchoolName(school int) string {
	if school == 1 {
		return "HANAFI"
	}
	return "STANDARD"
}

// CalendarResponse represents the Al Adhan calendar API response.
// The calendar endpoint returns an array of daily data objects for a whole month.
type CalendarResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []Data `json:"data"`
}
