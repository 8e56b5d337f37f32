package orbit

import (
	"fmt"
	"math"
	"time"
)

// RTNBasis is the radial / along-track (tangential) / cross-track (normal)
// frame at an instantaneous state. Maneuver burn directions are expressed in
// this frame.
type RTNBasis struct {
	R, T, N Vec3 // unit vectors in ECI
}

// RTNAt builds the RTN basis for a state. For the near-circular orbits the
// screening pipeline deals with, T is close to the velocity direction.
func RTNAt(st State) RTNBasis {
	r := st.Position.Normalized()
	n := st.Position.Cross(st.Velocity).Normalized()
	t := n.Cross(r)
	return RTNBasis{R: r, T: t, N: n}
}

// ToECI converts an RTN-frame vector to ECI.
func (b RTNBasis) ToECI(v Vec3) Vec3 {
	return b.R.Scale(v.X).Add(b.T.Scale(v.Y)).Add(b.N.Scale(v.Z))
}

// ApplyImpulse returns the state after an instantaneous velocity increment
// expressed in the RTN frame of the pre-burn state.
func ApplyImpulse(st State, deltaVRTN Vec3) State {
	basis := RTNAt(st)
	return State{
		Position: st.Position,
		Velocity: st.Velocity.Add(basis.ToECI(deltaVRTN)),
	}
}

// ElementsFromState converts an osculating inertial state to orbital
// elements at the given epoch. Used by the maneuver planner to re-propagate
// a burned trajectory with the same analytic model as the nominal one.
//
// Near-singular geometries (circular, equatorial) are handled by pinning the
// undefined angles to zero rather than failing, which is adequate for the
// planner's perturbed-by-centimeters use case.
func ElementsFromState(st State, epoch time.Time) (Elements, error) {
	r := st.Position
	v := st.Velocity
	rNorm := r.Norm()
	vNorm := v.Norm()
	if rNorm == 0 {
		return Elements{}, fmt.Errorf("zero position vector")
	}

	h := r.Cross(v)
	hNorm := h.Norm()
	if hNorm == 0 {
		return Elements{}, fmt.Errorf("degenerate rectilinear orbit")
	}

	// Node vector (points at the ascending node).
	node := Vec3{X: -h.Y, Y: h.X}
	nodeNorm := node.Norm()

	rDotV := r.Dot(v)
	eVec := r.Scale(vNorm*vNorm - MuEarth/rNorm).Sub(v.Scale(rDotV)).Scale(1 / MuEarth)
	ecc := eVec.Norm()
	if ecc >= 1 {
		return Elements{}, fmt.Errorf("non-elliptical orbit (e=%.6f)", ecc)
	}

	energy := vNorm*vNorm/2 - MuEarth/rNorm
	a := -MuEarth / (2 * energy)
	if a <= 0 {
		return Elements{}, fmt.Errorf("non-positive semi-major axis")
	}

	incl := math.Acos(clamp(h.Z/hNorm, -1, 1))

	var raan float64
	if nodeNorm > 1e-10 {
		raan = math.Acos(clamp(node.X/nodeNorm, -1, 1))
		if node.Y < 0 {
			raan = 2*math.Pi - raan
		}
	}

	var argp float64
	if nodeNorm > 1e-10 && ecc > 1e-11 {
		argp = math.Acos(clamp(node.Dot(eVec)/(nodeNorm*ecc), -1, 1))
		if eVec.Z < 0 {
			argp = 2*math.Pi - argp
		}
	} else if ecc > 1e-11 {
		// Equatorial elliptical: measure ω from the X axis.
		argp = math.Atan2(eVec.Y, eVec.X)
		if argp < 0 {
			argp += 2 * math.Pi
		}
	}

	var nu float64
	if ecc > 1e-11 {
		nu = math.Acos(clamp(eVec.Dot(r)/(ecc*rNorm), -1, 1))
		if rDotV < 0 {
			nu = 2*math.Pi - nu
		}
	} else if nodeNorm > 1e-10 {
		// Circular inclined: argument of latitude stands in for ν.
		nu = math.Acos(clamp(node.Dot(r)/(nodeNorm*rNorm), -1, 1))
		if r.Z < 0 {
			nu = 2*math.Pi - nu
		}
	} else {
		// Circular equatorial: true longitude.
		nu = math.Atan2(r.Y, r.X)
		if nu < 0 {
			nu += 2 * math.Pi
		}
	}

	// ν -> E -> M.
	sinNu, cosNu := math.Sin(nu), math.Cos(nu)
	denom := 1 + ecc*cosNu
	sinE := math.Sqrt(1-ecc*ecc) * sinNu / denom
	cosE := (ecc + cosNu) / denom
	eccAnom := math.Atan2(sinE, cosE)
	meanAnom := eccAnom - ecc*math.Sin(eccAnom)
	if meanAnom < 0 {
		meanAnom += 2 * math.Pi
	}

	el := Elements{
		Epoch:        epoch.UTC(),
		Inclination:  incl,
		RAAN:         raan,
		Eccentricity: ecc,
		ArgPerigee:   argp,
		MeanAnomaly:  meanAnom,
		MeanMotion:   math.Sqrt(MuEarth / (a * a * a)),
	}
	if err := el.Validate(); err != nil {
		return Elements{}, err
	}
	return el, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
