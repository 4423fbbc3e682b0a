// Package reference recomputes the horizon-based prayer times with an
// independent ephemeris (github.com/sj14/astral) so the local solver can be
// checked against it.
package reference

import (
	"math"
	"time"

	"github.com/sj14/astral/pkg/astral"

	"github.com/smokyabdulrahman/salat/internal/method"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/solar"
)

// Events are the reference local hours for the markers an ephemeris can
// produce directly. NaN marks an event the sun never reaches.
type Events struct {
	Fajr    float64
	Sunrise float64
	Maghrib float64
	Isha    float64
}

// Keys lists the markers Events covers, in canonical order.
var Keys = []prayer.Key{prayer.Fajr, prayer.Sunrise, prayer.Maghrib, prayer.Isha}

// Get returns the hour for k, or NaN when Events does not cover it.
func (e Events) Get(k prayer.Key) float64 {
	switch k {
	case prayer.Fajr:
		return e.Fajr
	case prayer.Sunrise:
		return e.Sunrise
	case prayer.Maghrib:
		return e.Maghrib
	case prayer.Isha:
		return e.Isha
	}
	return math.NaN()
}

// Solve computes the reference events for req using the same method table
// as the local solver.
func Solve(req prayer.Request) Events {
	m := method.Resolve(req.Method)
	obs := astral.Observer{Latitude: req.Coordinates.Latitude, Longitude: req.Coordinates.Longitude}
	date := time.Date(req.Date.Year, req.Date.Month, req.Date.Day, 12, 0, 0, 0, time.UTC)
	off := req.UTCOffset

	maghrib := localHours(astral.Sunset(obs, date))(off)
	isha := m.Isha.Resolve(maghrib, func(depression float64) float64 {
		return localHours(astral.Dusk(obs, date, depression))(off)
	})

	return Events{
		Fajr:    localHours(astral.Dawn(obs, date, m.Fajr))(off),
		Sunrise: localHours(astral.Sunrise(obs, date))(off),
		Maghrib: maghrib,
		Isha:    isha,
	}
}

// localHours turns an ephemeris result into a local hour of day for a UTC
// offset. Errors become NaN.
func localHours(t time.Time, err error) func(offset float64) float64 {
	return func(offset float64) float64 {
		if err != nil || t.IsZero() {
			return math.NaN()
		}
		u := t.UTC()
		h := float64(u.Hour()) + float64(u.Minute())/60 + float64(u.Second())/3600 +
			float64(u.Nanosecond())/3.6e12
		return solar.FixHour(h + offset)
	}
}

// Delta is the disagreement for one marker.
type Delta struct {
	Key       prayer.Key
	Local     float64
	Reference float64
	// Minutes is Local minus Reference on the 24 hour circle, in [-720, 720).
	// NaN when either side is unsolvable.
	Minutes float64
}

// Agrees reports whether both sides are solvable and within tolerance, or
// both are unsolvable.
func (d Delta) Agrees(tolerance time.Duration) bool {
	if math.IsNaN(d.Local) || math.IsNaN(d.Reference) {
		return math.IsNaN(d.Local) == math.IsNaN(d.Reference)
	}
	return math.Abs(d.Minutes) <= tolerance.Minutes()
}

// Compare lines up the local solver output with the reference events.
func Compare(local prayer.Hours, ref Events) []Delta {
	out := make([]Delta, 0, len(Keys))
	for _, k := range Keys {
		l, r := local.Get(k), ref.Get(k)
		d := Delta{Key: k, Local: l, Reference: r, Minutes: math.NaN()}
		if !solar.Unsolvable(l) && !solar.Unsolvable(r) {
			diff := math.Mod((solar.FixHour(l)-solar.FixHour(r))*60, 24*60)
			if diff >= 12*60 {
				diff -= 24 * 60
			} else if diff < -12*60 {
				diff += 24 * 60
			}
			d.Minutes = diff
		}
		out = append(out, d)
	}
	return out
}
