// Package solar implements the low-order solar ephemeris and the hour-angle
// solver used to derive prayer times.
//
// The coefficients are those of the classic "approximate solar coordinates"
// algorithm (accurate to roughly an arcminute for dates near J2000). They are
// reproduced exactly so results match existing deployments to the minute.
// Every function is pure and safe for concurrent use.
package solar

import "math"

// j2000 is the Julian day of 2000-01-01 12:00 TT.
const j2000 = 2451545.0

// JulianDay converts a proleptic Gregorian calendar date to a Julian day
// number at 0h UT. The caller guarantees a valid date.
func JulianDay(year, month, day int) float64 {
	y, m := float64(year), float64(month)
	if month <= 2 {
		y--
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(day) + b - 1524.5
}

// position holds the intermediate solar coordinates for a Julian day.
type position struct {
	meanLongitude float64 // q, degrees
	eclipticLong  float64 // L, radians
	obliquity     float64 // e, radians
}

func sunPosition(jd float64) position {
	d := jd - j2000
	g := deg2rad(math.Mod(357.529+0.98560028*d, 360))
	q := math.Mod(280.459+0.98564736*d, 360)
	l := deg2rad(math.Mod(q+1.915*math.Sin(g)+0.020*math.Sin(2*g), 360))
	e := deg2rad(23.439 - 0.00000036*d)
	return position{meanLongitude: q, eclipticLong: l, obliquity: e}
}

// Declination returns the sun's declination in degrees for the Julian day.
func Declination(jd float64) float64 {
	p := sunPosition(jd)
	return rad2deg(math.Asin(math.Sin(p.obliquity) * math.Sin(p.eclipticLong)))
}

// EquationOfTime returns the difference between mean and apparent solar
// time, in hours, for the Julian day.
func EquationOfTime(jd float64) float64 {
	p := sunPosition(jd)
	ra := rad2deg(math.Atan2(math.Cos(p.obliquity)*math.Sin(p.eclipticLong), math.Cos(p.eclipticLong))) / 15
	return p.meanLongitude/15 - FixHour(ra)
}

// FixHour wraps an hour value into [0, 24).
func FixHour(hour float64) float64 {
	hour = math.Mod(hour, 24)
	if hour < 0 {
		hour += 24
	}
	return hour
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func rad2deg(r float64) float64 { return r * 180 / math.Pi }
