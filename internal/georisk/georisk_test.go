package georisk

import (
	"math"
	"testing"
)

func TestScoreGround_MetroBeatsOcean(t *testing.T) {
	tokyo := scoreGround(35.7, 139.7, 550)
	pacific := scoreGround(0.0, -140.0, 550)

	if tokyo.Impact <= pacific.Impact {
		t.Errorf("Tokyo %.3f should outscore open Pacific %.3f", tokyo.Impact, pacific.Impact)
	}
	if tokyo.NearestZone != "Tokyo Metro" || tokyo.ZoneCategory != "tier_1_metro" {
		t.Errorf("nearest zone = %s/%s", tokyo.NearestZone, tokyo.ZoneCategory)
	}
	if tokyo.ZoneDistanceKM > 50 {
		t.Errorf("distance to own zone center = %.1f km", tokyo.ZoneDistanceKM)
	}
	// Zone-interior points get the full zone weight times category weight.
	if want := 0.95 * 0.9; math.Abs(tokyo.Components.Infra-want) > 1e-9 {
		t.Errorf("Tokyo infra = %v, want %v", tokyo.Components.Infra, want)
	}
}

func TestScoreGround_OceanOverridesLatitudeBand(t *testing.T) {
	// 35N would score 0.85 on the land band; mid-Atlantic must not.
	atlantic := scoreGround(35.0, -40.0, 550)
	if atlantic.Components.Population != oceanPopulationScore {
		t.Errorf("mid-Atlantic population = %v, want ocean score", atlantic.Components.Population)
	}
	inland := scoreGround(35.0, 100.0, 550)
	if inland.Components.Population != 0.85 {
		t.Errorf("35N land band = %v, want 0.85", inland.Components.Population)
	}
}

func TestOrbitalDensityScore_Bands(t *testing.T) {
	cases := []struct {
		altKM float64
		want  float64
	}{
		{350, 0.30},
		{550, 0.55},
		{800, 0.85},
		{1000, 0.60},
		{35786, 0.20},
		{-10, 0.10}, // out of band
	}
	for _, c := range cases {
		if got := orbitalDensityScore(c.altKM); got != c.want {
			t.Errorf("orbitalDensityScore(%v) = %v, want %v", c.altKM, got, c.want)
		}
	}
}

func TestScoreGround_CompositeWeighting(t *testing.T) {
	s := scoreGround(0.0, -140.0, 800) // deep ocean, busiest shell
	want := 0.6*s.Components.Infra + 0.3*oceanPopulationScore + 0.1*0.85
	if math.Abs(s.Impact-want) > 1e-9 {
		t.Errorf("composite = %v, want %v", s.Impact, want)
	}
	if s.Impact < 0 || s.Impact > 1 {
		t.Errorf("impact out of range: %v", s.Impact)
	}
}

func TestScoreGround_IsDeterministic(t *testing.T) {
	a := scoreGround(48.9, 2.3, 600)
	b := scoreGround(48.9, 2.3, 600)
	if a != b {
		t.Errorf("identical inputs scored differently:\n%+v\n%+v", a, b)
	}
}
