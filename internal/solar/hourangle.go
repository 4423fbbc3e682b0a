package solar

import "math"

// Side selects which side of solar noon an hour angle is applied to.
type Side int

const (
	// BeforeNoon is used for morning events (Fajr, sunrise).
	BeforeNoon Side = iota
	// AfterNoon is used for afternoon and evening events (Asr, sunset, Isha).
	AfterNoon
)

func (s Side) String() string {
	if s == BeforeNoon {
		return "before-noon"
	}
	return "after-noon"
}

// SolarNoon returns the local civil hour of solar transit.
// Longitude is east-positive; utcOffset is in hours.
func SolarNoon(jd, longitude, utcOffset float64) float64 {
	return FixHour(12 - EquationOfTime(jd) - longitude/15 + utcOffset)
}

// TimeForAltitude returns the local civil hour at which the sun's centre
// reaches altitude degrees on the given side of noon. It returns NaN when the
// sun never reaches that altitude on that day at that latitude.
func TimeForAltitude(jd, altitude, latitude, longitude, utcOffset float64, side Side) float64 {
	ha := hourAngle(deg2rad(altitude), deg2rad(latitude), deg2rad(Declination(jd)))
	if math.IsNaN(ha) {
		return ha
	}
	noon := SolarNoon(jd, longitude, utcOffset)
	if side == BeforeNoon {
		return noon - ha
	}
	return noon + ha
}

// AsrTime returns the local civil hour at which an object's shadow equals
// shadowFactor times its height plus its noon shadow. A shadowFactor of 1 is
// the standard convention and 2 the Hanafi one. It returns NaN when unsolvable.
func AsrTime(jd, latitude, longitude, utcOffset, shadowFactor float64) float64 {
	lat := deg2rad(latitude)
	dec := deg2rad(Declination(jd))

	// cot(altitude) = shadowFactor + tan(|lat - dec|)
	a := math.Abs(lat - dec)
	altitude := math.Atan(1 / (shadowFactor + math.Tan(a)))

	ha := hourAngle(altitude, lat, dec)
	if math.IsNaN(ha) {
		return ha
	}
	return SolarNoon(jd, longitude, utcOffset) + ha
}

// AsrAltitude returns the sun altitude, in degrees, that defines Asr for the
// Julian day and latitude.
func AsrAltitude(jd, latitude, shadowFactor float64) float64 {
	a := math.Abs(deg2rad(latitude) - deg2rad(Declination(jd)))
	return rad2deg(math.Atan(1 / (shadowFactor + math.Tan(a))))
}

// Unsolvable reports whether h is the "no solution" marker returned by the
// solver functions.
func Unsolvable(h float64) bool {
	return math.IsNaN(h) || math.IsInf(h, 0)
}

// hourAngle solves the spherical triangle for the hour angle, in hours, at
// which the sun reaches altitude. All inputs are radians.
func hourAngle(altitude, lat, dec float64) float64 {
	cosHA := (math.Sin(altitude) - math.Sin(lat)*math.Sin(dec)) / (math.Cos(lat) * math.Cos(dec))
	if cosHA > 1 || cosHA < -1 || math.IsNaN(cosHA) {
		return math.NaN()
	}
	return rad2deg(math.Acos(cosHA)) / 15
}
