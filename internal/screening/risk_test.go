package screening

import (
	"math"
	"testing"
	"time"

	"github.com/AntAci/AstraGuard/internal/catalog"
)

// Head-on geometry has a closed form: Pc(d=0) = 1 - exp(-R^2 / 2sigma^2).
func TestCollisionProbability_HeadOnClosedForm(t *testing.T) {
	cases := []struct{ radius, sigma float64 }{
		{100, 50},
		{20, 1000},
		{5, 5},
	}
	for _, c := range cases {
		want := 1 - math.Exp(-(c.radius*c.radius)/(2*c.sigma*c.sigma))
		got := CollisionProbability(0, c.sigma, c.radius)
		if math.Abs(got-want) > 1e-4*math.Max(want, 1e-12) && math.Abs(got-want) > 1e-9 {
			t.Errorf("Pc(0, %v, %v) = %v, want %v", c.sigma, c.radius, got, want)
		}
	}
}

func TestCollisionProbability_BoundaryBehavior(t *testing.T) {
	if got := CollisionProbability(1000, 500, 0); got != 0 {
		t.Errorf("zero hard-body radius: Pc = %v, want 0", got)
	}
	if got := CollisionProbability(1000, 0, 20); got != 0 {
		t.Errorf("zero sigma: Pc = %v, want 0", got)
	}
	if got := CollisionProbability(100e3, 100, 20); got > 1e-300 {
		t.Errorf("far miss should underflow to ~0, got %v", got)
	}
	if got := CollisionProbability(math.NaN(), 100, 20); got != 0 {
		t.Errorf("NaN miss distance: Pc = %v, want 0", got)
	}
	// Huge Bessel argument: d/sigma in the thousands must not overflow.
	if got := CollisionProbability(500e3, 100, 20); math.IsNaN(got) || got < 0 || got > 1 {
		t.Errorf("extreme geometry left [0,1]: %v", got)
	}
}

func TestCollisionProbability_MonotonicInRadius(t *testing.T) {
	prev := 0.0
	for _, r := range []float64{1, 10, 50, 200, 1000} {
		pc := CollisionProbability(300, 400, r)
		if pc < prev {
			t.Fatalf("Pc decreased as radius grew: Pc(R=%v) = %v < %v", r, pc, prev)
		}
		prev = pc
	}
	if prev <= 0 {
		t.Error("largest radius should yield a positive probability")
	}
}

func TestCollisionProbability_MonotonicInMiss(t *testing.T) {
	prev := math.Inf(1)
	for _, d := range []float64{0, 100, 500, 2000, 10000} {
		pc := CollisionProbability(d, 400, 50)
		if pc > prev {
			t.Fatalf("Pc increased with miss distance at d=%v: %v > %v", d, pc, prev)
		}
		prev = pc
	}
}

func TestCombinedSigma_QuadratureAndClamp(t *testing.T) {
	rc := RiskConfig{
		Model:         SigmaIsotropic,
		SigmaPayloadM: 300,
		SigmaDebrisM:  400,
		SigmaFloorM:   2,
	}
	sigma, clamped := rc.CombinedSigma(catalog.ClassActive, catalog.ClassDebris, 0)
	if clamped {
		t.Error("healthy sigmas flagged as clamped")
	}
	if math.Abs(sigma-500) > 1e-9 {
		t.Errorf("quadrature of 300/400 = %v, want 500", sigma)
	}

	rc.SigmaPayloadM, rc.SigmaDebrisM = 0, 0
	sigma, clamped = rc.CombinedSigma(catalog.ClassActive, catalog.ClassActive, 0)
	if !clamped || sigma != 2 {
		t.Errorf("degenerate sigma: got (%v, %v), want floor 2 flagged", sigma, clamped)
	}
}

func TestCombinedSigma_AlongTrackGrowth(t *testing.T) {
	rc := RiskConfig{
		Model:              SigmaAnisotropicRTN,
		PayloadAxes:        AxisSigmas{R: 100, T: 300, N: 100},
		DebrisAxes:         AxisSigmas{R: 200, T: 600, N: 200},
		AlongTrackGrowthMS: 0.5,
		SigmaFloorM:        1,
	}
	atTCA, _ := rc.CombinedSigma(catalog.ClassActive, catalog.ClassDebris, 0)
	later, _ := rc.CombinedSigma(catalog.ClassActive, catalog.ClassDebris, time.Hour)
	earlier, _ := rc.CombinedSigma(catalog.ClassActive, catalog.ClassDebris, -time.Hour)
	if later <= atTCA {
		t.Errorf("sigma must grow away from TCA: %v <= %v", later, atTCA)
	}
	if math.Abs(later-earlier) > 1e-9 {
		t.Errorf("growth must be symmetric about TCA: %v vs %v", later, earlier)
	}
}

func TestRiskTier_Boundaries(t *testing.T) {
	cases := []struct {
		pc   float64
		want string
	}{
		{1e-2, "CRITICAL"},
		{1e-3, "CRITICAL"},
		{9.9e-4, "HIGH"},
		{1e-5, "HIGH"},
		{1e-6, "MODERATE"},
		{1e-7, "MODERATE"},
		{1e-8, "LOW"},
		{0, "LOW"},
	}
	for _, c := range cases {
		if got := RiskTier(c.pc); got != c.want {
			t.Errorf("RiskTier(%v) = %s, want %s", c.pc, got, c.want)
		}
	}
}
