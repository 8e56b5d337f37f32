package screening

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/orbit"
)

var screeningEpoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func circularElements(a, inclRad, raanRad, meanAnomRad float64) orbit.Elements {
	return orbit.Elements{
		Epoch:       screeningEpoch,
		Inclination: inclRad,
		RAAN:        raanRad,
		MeanAnomaly: meanAnomRad,
		MeanMotion:  math.Sqrt(orbit.MuEarth / (a * a * a)),
	}
}

func activeObject(id int, el orbit.Elements) catalog.Object {
	return catalog.Object{NoradID: id, Class: catalog.ClassActive, Epoch: el.Epoch, Elements: el}
}

// conjunctionPair builds two circular orbits in planes separated by a small
// node offset, phased so both objects reach the plane intersection line at
// the requested time. The geometry gives a genuine low-relative-speed close
// approach that a coarse grid can catch.
func conjunctionPair(a, inclRad, deltaRAAN float64, at time.Duration) (orbit.Elements, orbit.Elements) {
	elA := circularElements(a, inclRad, 0, 0)
	rates := elA.Secular()
	uRate := rates.ArgPerigeeDot + rates.MeanMotionDot
	t := at.Seconds()

	// Object A crosses the intersection line at argument of latitude pi/2;
	// object B's crossing sits at pi/2 - deltaRAAN*cos(i) in its own plane.
	wrap := func(x float64) float64 {
		x = math.Mod(x, 2*math.Pi)
		if x < 0 {
			x += 2 * math.Pi
		}
		return x
	}
	elA.MeanAnomaly = wrap(math.Pi/2 - uRate*t)
	elB := circularElements(a, inclRad, deltaRAAN, 0)
	elB.MeanAnomaly = wrap(math.Pi/2 - deltaRAAN*math.Cos(inclRad) - uRate*t)
	return elA, elB
}

func testRunConfig() Config {
	return Config{
		Start:      screeningEpoch,
		Horizon:    24 * time.Hour,
		CoarseStep: 10 * time.Minute,
		VoxelEdgeM: 50e3,
		TopK:       20,
		Workers:    2,
		Refine: RefineConfig{
			HalfWidthSteps: 2,
			FineStep:       time.Minute,
		},
		Risk: RiskConfig{
			Model:           SigmaIsotropic,
			HardBodyRadiusM: 20,
			SigmaPayloadM:   500,
			SigmaDebrisM:    1000,
			SigmaFloorM:     1,
		},
	}
}

func TestRun_FindsPlantedConjunction(t *testing.T) {
	incl := 51.6 * math.Pi / 180
	elA, elB := conjunctionPair(7000e3, incl, 0.002, 12*time.Hour)
	objects := []catalog.Object{
		activeObject(1001, elA),
		activeObject(1002, elB),
		activeObject(2001, circularElements(7500e3, 0.9, 2.0, 1.0)), // never close
	}

	res, err := Run(testRunConfig(), objects)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.ObjectsKept != 3 || res.Report.ObjectsSkipped != 0 {
		t.Errorf("kept/skipped = %d/%d, want 3/0", res.Report.ObjectsKept, res.Report.ObjectsSkipped)
	}
	if len(res.Events) == 0 {
		t.Fatal("planted conjunction not detected")
	}

	top := res.Events[0]
	if top.PrimaryID != 1001 || top.SecondaryID != 1002 {
		t.Fatalf("top event pairs %d/%d, want 1001/1002", top.PrimaryID, top.SecondaryID)
	}
	if top.MissDistanceM > 2000 {
		t.Errorf("miss distance %.0f m, want under 2 km for planted crossing", top.MissDistanceM)
	}
	if top.RelativeSpeedMPS > 50 {
		t.Errorf("relative speed %.1f m/s, want low-speed encounter", top.RelativeSpeedMPS)
	}
	if top.TCA.Before(res.Grid.Start) || top.TCA.After(res.Grid.End()) {
		t.Errorf("TCA %v outside run window", top.TCA)
	}
	// Crossings recur every half-orbit, so the TCA must sit within a few
	// fine steps of 12h plus an integer number of half-periods.
	rates := elA.Secular()
	halfPeriod := math.Pi / (rates.ArgPerigeeDot + rates.MeanMotionDot)
	dt := top.TCA.Sub(screeningEpoch.Add(12 * time.Hour)).Seconds()
	offset := math.Abs(dt - halfPeriod*math.Round(dt/halfPeriod))
	if offset > 180 {
		t.Errorf("TCA %v is %.0f s from the nearest analytic crossing", top.TCA, offset)
	}
	if top.EventID != EventIDFor(1001, 1002, top.TCA) {
		t.Errorf("event id %q does not match canonical format", top.EventID)
	}
	if top.ModelVersion != ModelVersion {
		t.Errorf("model version %q", top.ModelVersion)
	}

	// The distant object must not produce events.
	for _, ev := range res.Events {
		if ev.PrimaryID == 2001 || ev.SecondaryID == 2001 {
			t.Errorf("spurious event against distant object: %+v", ev)
		}
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	incl := 51.6 * math.Pi / 180
	elA, elB := conjunctionPair(7000e3, incl, 0.002, 8*time.Hour)
	objects := []catalog.Object{
		activeObject(10, elA),
		activeObject(20, elB),
		activeObject(30, circularElements(7200e3, 1.1, 0.7, 2.2)),
	}
	cfg := testRunConfig()
	cfg.Workers = 4

	first, err := Run(cfg, objects)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(cfg, objects)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Events, second.Events) {
		t.Errorf("event lists differ between identical runs:\n%+v\n%+v", first.Events, second.Events)
	}
	if first.Report.UniquePairs != second.Report.UniquePairs ||
		first.Report.CandidateEmissions != second.Report.CandidateEmissions {
		t.Errorf("candidate counters differ between identical runs")
	}
}

func TestRun_FatalConditions(t *testing.T) {
	cfg := testRunConfig()

	if _, err := Run(cfg, nil); !errors.Is(err, ErrNoObjects) {
		t.Errorf("empty input: got %v, want ErrNoObjects", err)
	}

	bad := cfg
	bad.TopK = 0
	if _, err := Run(bad, []catalog.Object{activeObject(1, circularElements(7000e3, 1, 0, 0))}); err == nil {
		t.Error("invalid config accepted")
	}

	degenerate := orbit.Elements{Epoch: screeningEpoch, Eccentricity: 1.5, MeanMotion: 1e-3}
	if _, err := Run(cfg, []catalog.Object{{NoradID: 7, Elements: degenerate}}); !errors.Is(err, ErrNoUsableObjects) {
		t.Errorf("all-degenerate input: got %v, want ErrNoUsableObjects", err)
	}
}

func TestEvaluateEvent_ManeuverPathAttachesPlan(t *testing.T) {
	incl := 51.6 * math.Pi / 180
	elA, elB := conjunctionPair(7000e3, incl, 0.002, 12*time.Hour)
	objects := []catalog.Object{activeObject(1001, elA), activeObject(1002, elB)}

	cfg := testRunConfig()
	cfg.Trend = TrendConfig{
		Window:           10 * time.Minute,
		Cadence:          time.Minute,
		Threshold:        1e-7,
		CriticalOverride: 0.5, // out of reach, exercise the sustained-risk path
		StabilityMin:     0,   // any stability counts as sustained
		DeferHorizon:     48 * time.Hour,
		DeferRevisit:     6 * time.Hour,
		DeferTCAGuard:    2 * time.Hour,
	}
	cfg.Maneuver = ManeuverConfig{
		BurnOffsets:      []time.Duration{6 * time.Hour, 2 * time.Hour},
		MaxDeltaVMPS:     0.5,
		TargetMissM:      5000,
		LateBurnLead:     30 * time.Minute,
		EvalWindow:       15 * time.Minute,
		EvalStep:         time.Minute,
		BisectIterations: 10,
	}

	res, err := Run(cfg, objects)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) == 0 {
		t.Fatal("no events to evaluate")
	}

	decision, err := EvaluateEvent(res.Objects, res.Events[0], screeningEpoch, cfg)
	if err != nil {
		t.Fatalf("EvaluateEvent: %v", err)
	}
	if decision.Trend.Decision != GateManeuver {
		t.Fatalf("gate = %s (%s), want MANEUVER", decision.Trend.Decision, decision.Trend.ReasonCode)
	}
	if decision.Plan == nil {
		t.Fatal("maneuver gate must attach a plan")
	}
	plan := decision.Plan
	if plan.Feasibility != FeasibilityFeasible {
		t.Fatalf("planted low-speed conjunction should be avoidable: %+v", plan)
	}
	if plan.DeltaVMPS <= 0 || plan.DeltaVMPS > cfg.Maneuver.MaxDeltaVMPS {
		t.Errorf("delta-v %.4f m/s outside (0, budget]", plan.DeltaVMPS)
	}
	if plan.ExpectedMissM < cfg.Maneuver.TargetMissM {
		t.Errorf("expected miss %.0f m below target %.0f m", plan.ExpectedMissM, cfg.Maneuver.TargetMissM)
	}
	if plan.Frame != "RTN" {
		t.Errorf("plan frame %q", plan.Frame)
	}

	if got := ConservativePolicy(decision, EconomicParams{}); got != ActionExecute {
		t.Errorf("conservative policy on feasible plan = %s, want EXECUTE", got)
	}
}

func TestEvaluateEvent_UnknownObjectFails(t *testing.T) {
	cfg := testRunConfig()
	ev := ConjunctionEvent{EventID: "EVT-1-2-x", PrimaryID: 1, SecondaryID: 2}
	if _, err := EvaluateEvent(nil, ev, screeningEpoch, cfg); err == nil {
		t.Error("expected error for event referencing unknown objects")
	}
}
