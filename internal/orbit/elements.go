package orbit

import (
	"fmt"
	"math"
	"time"
)

// Physical constants (WGS-72 values, consistent with catalog-grade element
// sets).
const (
	MuEarth      = 3.986004418e14 // gravitational parameter (m^3/s^2)
	EarthRadiusM = 6378137.0      // equatorial radius (m)
	J2           = 1.08262668e-3  // second zonal harmonic
)

// Elements is a mean orbital element set at a reference epoch. Angles are in
// radians, mean motion in radians per second. The set is immutable once
// loaded for a run.
type Elements struct {
	Epoch        time.Time
	Inclination  float64 // i
	RAAN         float64 // Ω, right ascension of the ascending node
	Eccentricity float64 // e
	ArgPerigee   float64 // ω
	MeanAnomaly  float64 // M at epoch
	MeanMotion   float64 // n (rad/s)
	BStar        float64 // drag term, carried for completeness
}

// PropagationError reports a degenerate element set that cannot be advanced.
// The pipeline skips the offending object and continues the run.
type PropagationError struct {
	CatalogID int
	Reason    string
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation failed for object %d: %s", e.CatalogID, e.Reason)
}

// Validate checks the element set for numeric degeneracy. A nil return
// guarantees SemiMajorAxis and the secular rates are finite.
func (el Elements) Validate() error {
	switch {
	case math.IsNaN(el.Eccentricity) || el.Eccentricity < 0 || el.Eccentricity >= 1:
		return fmt.Errorf("eccentricity %v outside [0,1)", el.Eccentricity)
	case math.IsNaN(el.MeanMotion) || el.MeanMotion <= 0:
		return fmt.Errorf("mean motion %v not positive", el.MeanMotion)
	case math.IsNaN(el.Inclination) || math.IsNaN(el.RAAN) ||
		math.IsNaN(el.ArgPerigee) || math.IsNaN(el.MeanAnomaly):
		return fmt.Errorf("non-finite angular element")
	}
	if a := el.SemiMajorAxis(); a < EarthRadiusM {
		return fmt.Errorf("semi-major axis %.0f m below Earth radius", a)
	}
	return nil
}

// SemiMajorAxis derives a from the mean motion via Kepler's third law.
func (el Elements) SemiMajorAxis() float64 {
	return math.Cbrt(MuEarth / (el.MeanMotion * el.MeanMotion))
}

// SecularRates holds the J2 secular drift rates applied on top of two-body
// motion. All rates are rad/s.
type SecularRates struct {
	RAANDot       float64
	ArgPerigeeDot float64
	MeanMotionDot float64 // perturbed mean motion (includes the two-body n)
}

// Secular computes the first-order J2 secular rates for the element set.
func (el Elements) Secular() SecularRates {
	a := el.SemiMajorAxis()
	e2 := el.Eccentricity * el.Eccentricity
	p := a * (1 - e2)
	cosI := math.Cos(el.Inclination)
	sinI := math.Sin(el.Inclination)
	rp := EarthRadiusM / p
	factor := 1.5 * J2 * rp * rp * el.MeanMotion

	return SecularRates{
		RAANDot:       -factor * cosI,
		ArgPerigeeDot: factor * (2 - 2.5*sinI*sinI),
		MeanMotionDot: el.MeanMotion + factor*math.Sqrt(1-e2)*(1-1.5*sinI*sinI),
	}
}

// solveKepler inverts Kepler's equation M = E - e·sinE by Newton iteration.
// Converges in a handful of steps for catalog eccentricities.
func solveKepler(meanAnomaly, ecc float64) float64 {
	m := math.Mod(meanAnomaly, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	e := m
	if ecc > 0.8 {
		e = math.Pi
	}
	for i := 0; i < 15; i++ {
		delta := (e - ecc*math.Sin(e) - m) / (1 - ecc*math.Cos(e))
		e -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return e
}
