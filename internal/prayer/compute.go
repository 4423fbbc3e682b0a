// Package prayer computes the daily prayer times from solar geometry and
// classifies which prayer comes next and how close it is.
//
// Every function is pure; callers pass "now" explicitly.
package prayer

import (
	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/solar"
)

// horizonAltitude is the apparent altitude of the sun's centre at sunrise and
// sunset: refraction plus the solar semi-diameter.
const horizonAltitude = -0.833

// dhuhrMargin keeps Dhuhr one minute after true solar noon.
const dhuhrMargin = 1.0 / 60

// Asr shadow factors.
const (
	ShadowStandard = 1.0
	ShadowHanafi   = 2.0
)

// Request describes one day's computation.
type Request struct {
	Date        Date
	Coordinates Coordinates
	// UTCOffset is the local civil offset in hours, e.g. 5.5 or -3.
	UTCOffset float64
	Method    int
	// AsrFactor is the Asr shadow factor. Zero means ShadowStandard.
	AsrFactor float64
}

// ShadowFactor maps a school id (0 Shafi, 1 Hanafi) to its shadow factor.
func ShadowFactor(school int) float64 {
	if school == 1 {
		return ShadowHanafi
	}
	return ShadowStandard
}

// Hours holds the unformatted local hours for each marker. Unsolvable
// entries are NaN. Isha may exceed 24 when it falls after midnight.
type Hours struct {
	Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha float64
}

// Get returns the hour for k, or NaN for an unknown key.
func (h Hours) Get(k Key) float64 {
	switch k {
	case Fajr:
		return h.Fajr
	case Sunrise:
		return h.Sunrise
	case Dhuhr:
		return h.Dhuhr
	case Asr:
		return h.Asr
	case Maghrib:
		return h.Maghrib
	case Isha:
		return h.Isha
	}
	return nan()
}

// Format converts every entry to a clock string.
func (h Hours) Format() TimeSet {
	return TimeSet{
		Fajr:    FormatDecimalHour(h.Fajr),
		Sunrise: FormatDecimalHour(h.Sunrise),
		Dhuhr:   FormatDecimalHour(h.Dhuhr),
		Asr:     FormatDecimalHour(h.Asr),
		Maghrib: FormatDecimalHour(h.Maghrib),
		Isha:    FormatDecimalHour(h.Isha),
	}
}

// Solve computes the six local hours for req. Unknown methods fall back to
// method.Default.
func Solve(req Request) Hours {
	m := method.Resolve(req.Method)
	factor := req.AsrFactor
	if factor == 0 {
		factor = ShadowStandard
	}

	lat, lon, off := req.Coordinates.Latitude, req.Coordinates.Longitude, req.UTCOffset
	jd := solar.JulianDay(req.Date.Year, int(req.Date.Month), req.Date.Day)

	maghrib := solar.TimeForAltitude(jd, horizonAltitude, lat, lon, off, solar.AfterNoon)
	isha := m.Isha.Resolve(maghrib, func(depression float64) float64 {
		return solar.TimeForAltitude(jd, -depression, lat, lon, off, solar.AfterNoon)
	})

	return Hours{
		Fajr:    solar.TimeForAltitude(jd, -m.Fajr, lat, lon, off, solar.BeforeNoon),
		Sunrise: solar.TimeForAltitude(jd, horizonAltitude, lat, lon, off, solar.BeforeNoon),
		Dhuhr:   solar.SolarNoon(jd, lon, off) + dhuhrMargin,
		Asr:     solar.AsrTime(jd, lat, lon, off, factor),
		Maghrib: maghrib,
		Isha:    isha,
	}
}

// ComputeWith returns the formatted time set for req.
func ComputeWith(req Request) TimeSet {
	return Solve(req).Format()
}

// Compute returns the formatted time set using the standard Asr convention.
func Compute(date Date, at Coordinates, utcOffset float64, methodID int) TimeSet {
	return ComputeWith(Request{
		Date:        date,
		Coordinates: at,
		UTCOffset:   utcOffset,
		Method:      methodID,
		AsrFactor:   ShadowStandard,
	})
}
