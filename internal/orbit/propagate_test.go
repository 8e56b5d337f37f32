package orbit

import (
	"math"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// circularElements builds a circular orbit at semi-major axis a.
func circularElements(a, inclRad, raanRad, meanAnomRad float64) Elements {
	return Elements{
		Epoch:       testEpoch,
		Inclination: inclRad,
		RAAN:        raanRad,
		MeanAnomaly: meanAnomRad,
		MeanMotion:  math.Sqrt(MuEarth / (a * a * a)),
	}
}

func TestNewTimeGrid_Coverage(t *testing.T) {
	grid, err := NewTimeGrid(testEpoch, 72*time.Hour, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewTimeGrid: %v", err)
	}
	if grid.Samples != 72*6+1 {
		t.Errorf("expected %d samples, got %d", 72*6+1, grid.Samples)
	}
	if !grid.End().Equal(testEpoch.Add(72 * time.Hour)) {
		t.Errorf("grid end %v does not cover horizon", grid.End())
	}
	if got := grid.At(6); !got.Equal(testEpoch.Add(time.Hour)) {
		t.Errorf("At(6) = %v, want epoch+1h", got)
	}
}

func TestNewTimeGrid_RejectsBadStep(t *testing.T) {
	if _, err := NewTimeGrid(testEpoch, time.Hour, 0); err == nil {
		t.Error("expected error for zero step")
	}
	if _, err := NewTimeGrid(testEpoch, time.Minute, time.Hour); err == nil {
		t.Error("expected error for horizon shorter than step")
	}
}

func TestTimeGrid_NearestIndex(t *testing.T) {
	grid, _ := NewTimeGrid(testEpoch, time.Hour, 10*time.Minute)
	cases := []struct {
		offset time.Duration
		want   int
	}{
		{0, 0},
		{4 * time.Minute, 0},
		{6 * time.Minute, 1},
		{59 * time.Minute, 6},
		{5 * time.Hour, grid.Samples - 1},
		{-time.Hour, 0},
	}
	for _, c := range cases {
		if got := grid.NearestIndex(testEpoch.Add(c.offset)); got != c.want {
			t.Errorf("NearestIndex(+%v) = %d, want %d", c.offset, got, c.want)
		}
	}
}

func TestElements_ValidateRejectsDegenerate(t *testing.T) {
	good := circularElements(7000e3, 0.9, 0, 0)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid elements rejected: %v", err)
	}

	bad := good
	bad.Eccentricity = 1.2
	if err := bad.Validate(); err == nil {
		t.Error("hyperbolic eccentricity accepted")
	}

	bad = good
	bad.MeanMotion = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero mean motion accepted")
	}

	bad = good
	bad.MeanAnomaly = math.NaN()
	if err := bad.Validate(); err == nil {
		t.Error("NaN mean anomaly accepted")
	}
}

func TestSolveKepler_Inverts(t *testing.T) {
	for _, ecc := range []float64{0, 0.1, 0.5, 0.9} {
		for m := 0.0; m < 2*math.Pi; m += 0.37 {
			e := solveKepler(m, ecc)
			back := e - ecc*math.Sin(e)
			diff := math.Mod(back-m+3*math.Pi, 2*math.Pi) - math.Pi
			if math.Abs(diff) > 1e-9 {
				t.Fatalf("kepler inversion e=%v M=%v: residual %v", ecc, m, diff)
			}
		}
	}
}

func TestStateAt_CircularOrbitGeometry(t *testing.T) {
	a := 7000e3
	el := circularElements(a, 51.6*math.Pi/180, 1.2, 0.4)

	wantSpeed := math.Sqrt(MuEarth / a)
	for _, dt := range []time.Duration{0, 17 * time.Minute, 3 * time.Hour} {
		st, err := StateAt(el, testEpoch.Add(dt))
		if err != nil {
			t.Fatalf("StateAt(+%v): %v", dt, err)
		}
		if r := st.Position.Norm(); math.Abs(r-a) > 1.0 {
			t.Errorf("radius at +%v = %.3f m, want %.0f", dt, r, a)
		}
		if v := st.Velocity.Norm(); math.Abs(v-wantSpeed) > 0.01 {
			t.Errorf("speed at +%v = %.4f m/s, want %.4f", dt, v, wantSpeed)
		}
		// Velocity perpendicular to position on a circular orbit.
		if dot := st.Position.Normalized().Dot(st.Velocity.Normalized()); math.Abs(dot) > 1e-6 {
			t.Errorf("radial velocity component at +%v: %v", dt, dot)
		}
	}
}

func TestStateAt_IsPureFunction(t *testing.T) {
	el := circularElements(7200e3, 0.7, 0.3, 2.1)
	at := testEpoch.Add(42 * time.Minute)
	a, err := StateAt(el, at)
	if err != nil {
		t.Fatal(err)
	}
	b, err := StateAt(el, at)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("repeated evaluation differs: %+v vs %+v", a, b)
	}
}

func TestStateAt_J2RegressesRAAN(t *testing.T) {
	// A prograde inclined orbit must show westward node drift: the orbit
	// plane normal precesses. Compare the node direction of the angular
	// momentum after a day.
	el := circularElements(7000e3, 51.6*math.Pi/180, 0, 0)
	rates := el.Secular()
	if rates.RAANDot >= 0 {
		t.Fatalf("prograde orbit should have negative RAAN rate, got %v", rates.RAANDot)
	}
	// Polar orbit: no node drift.
	polar := circularElements(7000e3, math.Pi/2, 0, 0)
	if got := polar.Secular().RAANDot; math.Abs(got) > 1e-15 {
		t.Errorf("polar orbit RAAN rate = %v, want 0", got)
	}
}

func TestPropagate_SkipsDegenerateObject(t *testing.T) {
	grid, _ := NewTimeGrid(testEpoch, time.Hour, 10*time.Minute)
	bad := Elements{Epoch: testEpoch, Eccentricity: 1.5, MeanMotion: 1e-3}
	if _, err := Propagate(99, bad, grid); err == nil {
		t.Fatal("expected propagation error for degenerate elements")
	} else if perr, ok := err.(*PropagationError); !ok || perr.CatalogID != 99 {
		t.Errorf("error should carry catalog id 99: %v", err)
	}
}

func TestPropagateAll_ContinuesPastFailures(t *testing.T) {
	grid, _ := NewTimeGrid(testEpoch, time.Hour, 10*time.Minute)
	inputs := []PropagateInput{
		{CatalogID: 1, Elements: circularElements(7000e3, 0.5, 0, 0)},
		{CatalogID: 2, Elements: Elements{Epoch: testEpoch, Eccentricity: 2, MeanMotion: 1e-3}},
		{CatalogID: 3, Elements: circularElements(7100e3, 0.9, 1, 2)},
	}
	tracks, skipped := PropagateAll(inputs, grid, 2)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].CatalogID != 1 || tracks[1].CatalogID != 3 {
		t.Errorf("track order not preserved: %d, %d", tracks[0].CatalogID, tracks[1].CatalogID)
	}
	if len(skipped) != 1 || skipped[0].CatalogID != 2 {
		t.Errorf("expected object 2 skipped, got %+v", skipped)
	}
	if len(tracks[0].Positions) != grid.Samples {
		t.Errorf("track length %d != grid samples %d", len(tracks[0].Positions), grid.Samples)
	}
}

func TestElementsFromState_RoundTrip(t *testing.T) {
	cases := []Elements{
		circularElements(7000e3, 51.6*math.Pi/180, 0.4, 1.0),
		{
			Epoch:        testEpoch,
			Inclination:  0.3,
			RAAN:         2.0,
			Eccentricity: 0.05,
			ArgPerigee:   1.1,
			MeanAnomaly:  0.7,
			MeanMotion:   math.Sqrt(MuEarth / math.Pow(7300e3, 3)),
		},
	}
	for i, el := range cases {
		at := testEpoch.Add(30 * time.Minute)
		st, err := StateAt(el, at)
		if err != nil {
			t.Fatalf("case %d: StateAt: %v", i, err)
		}
		back, err := ElementsFromState(st, at)
		if err != nil {
			t.Fatalf("case %d: ElementsFromState: %v", i, err)
		}
		st2, err := StateAt(back, at)
		if err != nil {
			t.Fatalf("case %d: re-propagate: %v", i, err)
		}
		if d := st2.Position.Sub(st.Position).Norm(); d > 1.0 {
			t.Errorf("case %d: position round-trip error %.3f m", i, d)
		}
		if d := st2.Velocity.Sub(st.Velocity).Norm(); d > 0.01 {
			t.Errorf("case %d: velocity round-trip error %.5f m/s", i, d)
		}
	}
}

func TestApplyImpulse_AlongTrackRaisesSpeed(t *testing.T) {
	el := circularElements(7000e3, 0.9, 0, 0)
	st, err := StateAt(el, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	burned := ApplyImpulse(st, Vec3{Y: 0.5}) // +T
	if burned.Velocity.Norm() <= st.Velocity.Norm() {
		t.Error("along-track impulse did not raise speed")
	}
	if burned.Position != st.Position {
		t.Error("impulse must not move the object")
	}
	// The impulse magnitude must be preserved.
	dv := burned.Velocity.Sub(st.Velocity).Norm()
	if math.Abs(dv-0.5) > 1e-9 {
		t.Errorf("impulse magnitude %v, want 0.5", dv)
	}
}

func TestRTNBasis_Orthonormal(t *testing.T) {
	el := circularElements(7000e3, 1.0, 0.5, 0.25)
	st, err := StateAt(el, testEpoch.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	b := RTNAt(st)
	for name, v := range map[string]Vec3{"R": b.R, "T": b.T, "N": b.N} {
		if math.Abs(v.Norm()-1) > 1e-12 {
			t.Errorf("%s not unit length: %v", name, v.Norm())
		}
	}
	if math.Abs(b.R.Dot(b.T)) > 1e-12 || math.Abs(b.R.Dot(b.N)) > 1e-12 || math.Abs(b.T.Dot(b.N)) > 1e-12 {
		t.Error("RTN axes not mutually orthogonal")
	}
}
