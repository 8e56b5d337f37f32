package screening

import (
	"sort"
	"time"

	"github.com/AntAci/AstraGuard/internal/orbit"
)

// Feasibility values for a maneuver plan. Infeasible is a valid, reportable
// planner outcome, never an error.
const (
	FeasibilityFeasible   = "feasible"
	FeasibilityInfeasible = "infeasible"
)

// BurnDirection names a unit burn axis in the RTN frame.
type BurnDirection struct {
	Name string
	Axis orbit.Vec3
}

// DefaultBurnDirections covers both senses of each RTN axis. Along-track
// burns lead because they are by far the most effective at separating
// near-circular orbits.
func DefaultBurnDirections() []BurnDirection {
	return []BurnDirection{
		{Name: "+T", Axis: orbit.Vec3{Y: 1}},
		{Name: "-T", Axis: orbit.Vec3{Y: -1}},
		{Name: "+R", Axis: orbit.Vec3{X: 1}},
		{Name: "-R", Axis: orbit.Vec3{X: -1}},
		{Name: "+N", Axis: orbit.Vec3{Z: 1}},
		{Name: "-N", Axis: orbit.Vec3{Z: -1}},
	}
}

// ManeuverConfig parametrizes the planner search.
type ManeuverConfig struct {
	BurnOffsets      []time.Duration // lead times before TCA, e.g. 24h/12h/6h/2h
	Directions       []BurnDirection // RTN burn axes to try
	MaxDeltaVMPS     float64         // velocity-change budget
	TargetMissM      float64         // required post-burn separation
	LateBurnLead     time.Duration   // late-baseline burn lead before TCA
	EvalWindow       time.Duration   // half-window around nominal TCA for post-burn miss search
	EvalStep         time.Duration   // sampling step of that search
	BisectIterations int             // delta-v bisection depth
}

// LateBaseline is the reference late burn computed purely for cost
// comparison reporting. It is never a selectable plan.
type LateBaseline struct {
	BurnTime  time.Time `json:"burn_time_utc"`
	Direction string    `json:"direction"`
	DeltaVMPS float64   `json:"delta_v_mps"`
	Feasible  bool      `json:"feasible"`
}

// ManeuverPlan is the planner output for one maneuver-eligible event.
type ManeuverPlan struct {
	BurnTime         time.Time    `json:"burn_time_utc"`
	Frame            string       `json:"frame"` // always "RTN"
	Direction        string       `json:"direction"`
	DeltaVMPS        float64      `json:"delta_v_mps"`
	ExpectedMissM    float64      `json:"expected_miss_m"`
	Feasibility      string       `json:"feasibility"`
	NominalMissM     float64      `json:"nominal_miss_m"`
	TargetMissM      float64      `json:"target_miss_m"`
	EarlyVsLateRatio *float64     `json:"early_vs_late_ratio,omitempty"`
	LateBaseline     LateBaseline `json:"late_baseline"`
}

// postBurnMiss simulates one impulse: the primary's state at the burn time
// gets a velocity increment in the RTN frame, the perturbed state is
// converted back to elements, and both objects are re-propagated across a
// window around the nominal TCA. The window minimum is the resulting miss
// distance; the impulse shifts the true TCA slightly, which the window scan
// absorbs.
func postBurnMiss(elPrimary, elSecondary orbit.Elements, burnTime time.Time, axis orbit.Vec3, deltaV float64, tca time.Time, cfg ManeuverConfig) (float64, error) {
	burnedElements := elPrimary
	if deltaV != 0 {
		st, err := orbit.StateAt(elPrimary, burnTime)
		if err != nil {
			return 0, err
		}
		burned := orbit.ApplyImpulse(st, axis.Scale(deltaV))
		burnedElements, err = orbit.ElementsFromState(burned, burnTime)
		if err != nil {
			return 0, err
		}
	}

	minMiss := -1.0
	for at := tca.Add(-cfg.EvalWindow); !at.After(tca.Add(cfg.EvalWindow)); at = at.Add(cfg.EvalStep) {
		stP, err := orbit.StateAt(burnedElements, at)
		if err != nil {
			return 0, err
		}
		stS, err := orbit.StateAt(elSecondary, at)
		if err != nil {
			return 0, err
		}
		if d := stP.Position.Sub(stS.Position).Norm(); minMiss < 0 || d < minMiss {
			minMiss = d
		}
	}
	return minMiss, nil
}

// minFeasibleDeltaV finds the smallest velocity change along one candidate
// (burn time, direction) that reaches the target separation, by bisecting
// over [0, budget]. Returns ok=false when even the full budget falls short.
// The upper bound of the bisection always remains feasible, so the result is
// feasible by construction.
func minFeasibleDeltaV(elPrimary, elSecondary orbit.Elements, burnTime time.Time, axis orbit.Vec3, budget float64, tca time.Time, cfg ManeuverConfig) (deltaV, missM float64, ok bool, err error) {
	missAtBudget, err := postBurnMiss(elPrimary, elSecondary, burnTime, axis, budget, tca, cfg)
	if err != nil {
		return 0, 0, false, err
	}
	if missAtBudget < cfg.TargetMissM {
		return 0, missAtBudget, false, nil
	}

	nominal, err := postBurnMiss(elPrimary, elSecondary, burnTime, axis, 0, tca, cfg)
	if err != nil {
		return 0, 0, false, err
	}
	if nominal >= cfg.TargetMissM {
		return 0, nominal, true, nil
	}

	lo, hi := 0.0, budget
	hiMiss := missAtBudget
	iters := cfg.BisectIterations
	if iters <= 0 {
		iters = 12
	}
	for i := 0; i < iters; i++ {
		mid := (lo + hi) / 2
		miss, err := postBurnMiss(elPrimary, elSecondary, burnTime, axis, mid, tca, cfg)
		if err != nil {
			return 0, 0, false, err
		}
		if miss >= cfg.TargetMissM {
			hi, hiMiss = mid, miss
		} else {
			lo = mid
		}
	}
	return hi, hiMiss, true, nil
}

type planCandidate struct {
	burnTime  time.Time
	direction string
	deltaV    float64
	missM     float64
}

// PlanManeuver searches the configured burn-offset × direction grid for the
// minimum velocity change that pushes the predicted miss distance past the
// target separation. Ties prefer the earliest burn, then the direction name,
// keeping selection deterministic. When nothing within budget works the
// returned plan is marked infeasible rather than erroring, so the event
// stays reportable.
func PlanManeuver(elPrimary, elSecondary orbit.Elements, event ConjunctionEvent, cfg ManeuverConfig) (ManeuverPlan, error) {
	directions := cfg.Directions
	if len(directions) == 0 {
		directions = DefaultBurnDirections()
	}
	tca := event.TCA

	nominalMiss, err := postBurnMiss(elPrimary, elSecondary, tca, orbit.Vec3{}, 0, tca, cfg)
	if err != nil {
		return ManeuverPlan{}, err
	}

	var feasible []planCandidate
	for _, offset := range cfg.BurnOffsets {
		burnTime := tca.Add(-offset)
		for _, dir := range directions {
			dv, miss, ok, err := minFeasibleDeltaV(elPrimary, elSecondary, burnTime, dir.Axis, cfg.MaxDeltaVMPS, tca, cfg)
			if err != nil {
				// A candidate whose perturbed trajectory degenerates is
				// simply not available; the others still compete.
				continue
			}
			if ok {
				feasible = append(feasible, planCandidate{
					burnTime:  burnTime,
					direction: dir.Name,
					deltaV:    dv,
					missM:     miss,
				})
			}
		}
	}

	late := lateBaseline(elPrimary, elSecondary, tca, cfg)

	plan := ManeuverPlan{
		Frame:         "RTN",
		Feasibility:   FeasibilityInfeasible,
		ExpectedMissM: nominalMiss,
		NominalMissM:  nominalMiss,
		TargetMissM:   cfg.TargetMissM,
		LateBaseline:  late,
	}
	if len(feasible) == 0 {
		return plan, nil
	}

	sort.Slice(feasible, func(i, j int) bool {
		if feasible[i].deltaV != feasible[j].deltaV {
			return feasible[i].deltaV < feasible[j].deltaV
		}
		if !feasible[i].burnTime.Equal(feasible[j].burnTime) {
			return feasible[i].burnTime.Before(feasible[j].burnTime)
		}
		return feasible[i].direction < feasible[j].direction
	})
	selected := feasible[0]

	plan.BurnTime = selected.burnTime
	plan.Direction = selected.direction
	plan.DeltaVMPS = selected.deltaV
	plan.ExpectedMissM = selected.missM
	plan.Feasibility = FeasibilityFeasible
	if late.Feasible && late.DeltaVMPS > 0 {
		ratio := selected.deltaV / late.DeltaVMPS
		plan.EarlyVsLateRatio = &ratio
	}
	return plan, nil
}

// lateBaselineBudgetFactor widens the delta-v cap for the reporting-only
// late baseline so the comparison stays meaningful even when the late burn
// would blow the operational budget.
const lateBaselineBudgetFactor = 20

func lateBaseline(elPrimary, elSecondary orbit.Elements, tca time.Time, cfg ManeuverConfig) LateBaseline {
	burnTime := tca.Add(-cfg.LateBurnLead)
	base := LateBaseline{BurnTime: burnTime, Direction: "+T"}
	dvCap := cfg.MaxDeltaVMPS * lateBaselineBudgetFactor
	dv, _, ok, err := minFeasibleDeltaV(elPrimary, elSecondary, burnTime, orbit.Vec3{Y: 1}, dvCap, tca, cfg)
	if err != nil || !ok {
		base.DeltaVMPS = dvCap
		return base
	}
	base.DeltaVMPS = dv
	base.Feasible = true
	return base
}
