// Package frames converts between the inertial frame the propagator works
// in and Earth-fixed/geodetic coordinates used by artifacts and ground-risk
// scoring.
package frames

import (
	"math"
	"time"

	"github.com/AntAci/AstraGuard/internal/orbit"
)

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563

	// MeanEarthRadiusM is the spherical radius used by great-circle math.
	MeanEarthRadiusM = 6371000.0
)

// julianDate converts a time to a Julian date (UT1 approximated by UTC,
// which is within a second and irrelevant at screening accuracy).
func julianDate(t time.Time) float64 {
	return float64(t.UnixNano())/1e9/86400.0 + 2440587.5
}

// GMST returns the Greenwich mean sidereal time in radians at t, using the
// IAU 1982 polynomial.
func GMST(t time.Time) float64 {
	jd := julianDate(t)
	d := jd - 2451545.0
	tc := d / 36525.0
	deg := 280.46061837 +
		360.98564736629*d +
		0.000387933*tc*tc -
		tc*tc*tc/38710000.0
	rad := math.Mod(deg*math.Pi/180, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return rad
}

// EciToEcef rotates an inertial position into the Earth-fixed frame at t.
func EciToEcef(p orbit.Vec3, t time.Time) orbit.Vec3 {
	theta := GMST(t)
	sin, cos := math.Sin(theta), math.Cos(theta)
	return orbit.Vec3{
		X: p.X*cos + p.Y*sin,
		Y: -p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// EcefToEci is the inverse rotation.
func EcefToEci(p orbit.Vec3, t time.Time) orbit.Vec3 {
	theta := GMST(t)
	sin, cos := math.Sin(theta), math.Cos(theta)
	return orbit.Vec3{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// Geodetic is a WGS84 latitude/longitude/altitude triple. Angles in radians,
// altitude in meters above the ellipsoid.
type Geodetic struct {
	LatRad float64
	LonRad float64
	AltM   float64
}

// EcefToGeodetic converts an Earth-fixed position to geodetic coordinates
// using Bowring's closed-form approximation, which is exact to well under a
// meter for orbital altitudes.
func EcefToGeodetic(p orbit.Vec3) Geodetic {
	a := wgs84A
	b := a * (1 - wgs84F)
	e2 := wgs84F * (2 - wgs84F)
	ep2 := (a*a - b*b) / (b * b)

	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)
	if rho == 0 {
		// Polar axis: latitude is a sign, altitude measures from the pole.
		lat := math.Pi / 2
		if p.Z < 0 {
			lat = -lat
		}
		return Geodetic{LatRad: lat, LonRad: 0, AltM: math.Abs(p.Z) - b}
	}

	theta := math.Atan2(p.Z*a, rho*b)
	sinT, cosT := math.Sin(theta), math.Cos(theta)
	lat := math.Atan2(
		p.Z+ep2*b*sinT*sinT*sinT,
		rho-e2*a*cosT*cosT*cosT,
	)
	sinLat := math.Sin(lat)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	alt := rho/math.Cos(lat) - n

	return Geodetic{LatRad: lat, LonRad: lon, AltM: alt}
}

// Haversine returns the great-circle ground distance in meters between two
// latitude/longitude pairs given in radians.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * MeanEarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}
