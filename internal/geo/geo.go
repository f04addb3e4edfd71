package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for all great-circle math.
	EarthRadiusMeters = 6371000.0

	FeetPerMeter  = 3.28084
	KnotsPerMPS   = 1.94384
	MPSPerKnot    = 0.51444
	MilesPerMeter = 0.000621371

	Gravity = 9.81 // m/s^2
)

// BearingSentinel is returned by InitialBearing when no bearing can be
// derived and no fallback is supplied. It is outside the wrapped heading
// range, so callers can tell "unknown" from a genuine 0 (north).
const BearingSentinel = 360.0

// Distance returns the great-circle distance between two points in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// InitialBearing returns the forward azimuth from point 1 to point 2 in
// degrees 0-360. Points closer than one meter, or a numerically degenerate
// bearing vector, cannot produce a stable azimuth: the fallback is returned
// when haveFallback is set, otherwise BearingSentinel.
func InitialBearing(lat1, lon1, lat2, lon2, fallback float64, haveFallback bool) float64 {
	if Distance(lat1, lon1, lat2, lon2) < 1.0 {
		if haveFallback {
			return fallback
		}
		return BearingSentinel
	}

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	if math.Abs(x) < 1e-10 && math.Abs(y) < 1e-10 {
		if haveFallback {
			return fallback
		}
		return BearingSentinel
	}

	deg := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	if deg < 0.001 {
		// A hair south of due north collapses to the sentinel rather than
		// reporting a spurious 0.
		return BearingSentinel
	}
	return deg
}

// WrapHeading normalizes a heading into [0, 360).
func WrapHeading(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// WrapAttitude normalizes a pitch or roll angle into (-180, 180].
func WrapAttitude(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m > 180 {
		m -= 360
	} else if m <= -180 {
		m += 360
	}
	return m
}

// InterpolateHeading blends two headings along the shortest angular path.
// frac 0 returns from, frac 1 returns to; the result is wrapped into [0, 360).
func InterpolateHeading(from, to, frac float64) float64 {
	diff := to - from
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return WrapHeading(from + diff*frac)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
