package ephemeris

import (
	"math"
	"time"
)

const (
	unixEpochJD = 2440587.5
	j2000JD     = 2451545.0
	daysPerCent = 36525.0
	deg2rad     = math.Pi / 180
	rad2deg     = 180 / math.Pi
)

// julianDay converts an instant to a Julian Day number (UT treated as TT).
func julianDay(t time.Time) float64 {
	const secondsPerDay = 86400
	return float64(t.Unix())/secondsPerDay + float64(t.Nanosecond())/(secondsPerDay*1e9) + unixEpochJD
}

// centuries returns Julian centuries since J2000.0.
func centuries(t time.Time) float64 {
	return (julianDay(t) - j2000JD) / daysPerCent
}

func sind(d float64) float64 { return math.Sin(d * deg2rad) }
func cosd(d float64) float64 { return math.Cos(d * deg2rad) }

func norm360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
