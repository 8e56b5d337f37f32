package screening

import (
	"math"
	"time"

	"gonum.org/v1/gonum/integrate"

	"github.com/AntAci/AstraGuard/internal/catalog"
)

// SigmaModel selects how per-object position uncertainty is modeled.
type SigmaModel string

const (
	// SigmaIsotropic assigns one fixed sigma per classification.
	SigmaIsotropic SigmaModel = "isotropic"
	// SigmaAnisotropicRTN assigns per-axis radial/tangential/normal sigmas
	// per classification, with along-track growth away from TCA.
	SigmaAnisotropicRTN SigmaModel = "anisotropic_rtn"
)

// AxisSigmas are 1-sigma position uncertainties along the RTN axes, meters.
type AxisSigmas struct {
	R, T, N float64
}

// RiskConfig parametrizes the collision probability model.
type RiskConfig struct {
	Model              SigmaModel
	HardBodyRadiusM    float64
	SigmaPayloadM      float64 // isotropic model
	SigmaDebrisM       float64 // isotropic model
	PayloadAxes        AxisSigmas
	DebrisAxes         AxisSigmas
	AlongTrackGrowthMS float64 // sigma_T growth per second away from TCA (m/s)
	SigmaFloorM        float64 // clamp for degenerate combined sigma
}

// pcRadialSamples is the radial discretization of the encounter-plane
// integral. 400 points keeps the trapezoid error well below the uncertainty
// of the assumed covariance itself.
const pcRadialSamples = 400

// objectSigma returns the effective isotropic sigma for one object at a
// signed offset from TCA. For the anisotropic model the three axis sigmas
// (with grown along-track term) collapse to their RMS, matching the
// circular-covariance assumption of the encounter integral.
func (rc RiskConfig) objectSigma(class catalog.Class, dtFromTCA time.Duration) float64 {
	if rc.Model != SigmaAnisotropicRTN {
		if class == catalog.ClassDebris {
			return rc.SigmaDebrisM
		}
		return rc.SigmaPayloadM
	}
	axes := rc.PayloadAxes
	if class == catalog.ClassDebris {
		axes = rc.DebrisAxes
	}
	t := axes.T + rc.AlongTrackGrowthMS*math.Abs(dtFromTCA.Seconds())
	return math.Sqrt((axes.R*axes.R + t*t + axes.N*axes.N) / 3)
}

// CombinedSigma combines both objects' uncertainties in quadrature. A
// degenerate result (zero or non-finite) is clamped to the configured floor
// and flagged so the run report can count it; the scorer never lets a
// degenerate sigma turn into NaN in an event.
func (rc RiskConfig) CombinedSigma(classA, classB catalog.Class, dtFromTCA time.Duration) (sigma float64, clamped bool) {
	sa := rc.objectSigma(classA, dtFromTCA)
	sb := rc.objectSigma(classB, dtFromTCA)
	sigma = math.Sqrt(sa*sa + sb*sb)
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		floor := rc.SigmaFloorM
		if floor <= 0 {
			floor = 1.0
		}
		return floor, true
	}
	return sigma, false
}

// CollisionProbability integrates a circular 2D Gaussian relative-position
// density over the combined hard-body disk in the encounter plane. The
// angular integral is handled analytically via the modified Bessel function
// I0, leaving a 1D radial integral:
//
//	Pc = ∫₀ᴿ (ρ/σ²)·exp(−(ρ²+d²)/(2σ²))·I0(ρd/σ²) dρ
//
// The integrand is evaluated in log space so the huge dynamic range of Pc
// (1e-12 and below is routine) neither underflows prematurely nor
// overflows through I0's exponential growth.
func CollisionProbability(missDistanceM, sigmaM, hardBodyRadiusM float64) float64 {
	d := math.Max(0, missDistanceM)
	sigma := sigmaM
	radius := math.Max(0, hardBodyRadiusM)
	if sigma <= 0 || radius <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}

	variance := sigma * sigma
	xs := make([]float64, pcRadialSamples)
	ys := make([]float64, pcRadialSamples)
	step := radius / float64(pcRadialSamples-1)
	for i := 1; i < pcRadialSamples; i++ {
		rho := float64(i) * step
		xs[i] = rho
		logTerm := math.Log(rho/variance) -
			(rho*rho+d*d)/(2*variance) +
			logBesselI0(rho*d/variance)
		ys[i] = math.Exp(logTerm)
	}
	// rho=0: the leading rho factor zeroes the integrand.
	xs[0], ys[0] = 0, 0

	pc := integrate.Trapezoidal(xs, ys)
	if math.IsNaN(pc) || math.IsInf(pc, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, pc))
}

// logBesselI0 computes ln(I0(x)) using the Abramowitz & Stegun polynomial
// approximations (9.8.1, 9.8.2). The large-argument branch folds the e^x
// factor into the log, which is the whole point: I0 itself overflows float64
// near x≈713 while close conjunctions routinely need x in the thousands.
func logBesselI0(x float64) float64 {
	ax := math.Abs(x)
	if ax < 3.75 {
		t := x / 3.75
		t *= t
		i0 := 1.0 + t*(3.5156229+t*(3.0899424+t*(1.2067492+
			t*(0.2659732+t*(0.0360768+t*0.0045813)))))
		return math.Log(i0)
	}
	t := 3.75 / ax
	poly := 0.39894228 + t*(0.01328592+t*(0.00225319+t*(-0.00157565+
		t*(0.00916281+t*(-0.02057706+t*(0.02635537+
			t*(-0.01647633+t*0.00392377)))))))
	return ax - 0.5*math.Log(ax) + math.Log(poly)
}

// ScoredApproach pairs a refined approach with its assumed collision
// probability.
type ScoredApproach struct {
	Approach     RefinedApproach
	Pc           float64
	SigmaClamped bool
}

// Score computes the at-TCA collision probability for a refined approach.
func (rc RiskConfig) Score(app RefinedApproach, classA, classB catalog.Class) ScoredApproach {
	sigma, clamped := rc.CombinedSigma(classA, classB, 0)
	pc := CollisionProbability(app.MissDistance, sigma, rc.HardBodyRadiusM)
	return ScoredApproach{Approach: app, Pc: pc, SigmaClamped: clamped}
}
