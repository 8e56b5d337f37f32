package screening

import (
	"errors"
	"time"

	"github.com/AntAci/AstraGuard/internal/orbit"
)

// ErrRefinementUnresolved marks a candidate pair whose fine-grained minimum
// kept landing on the search window boundary after one extension. The pair
// is dropped and counted; the run continues.
var ErrRefinementUnresolved = errors.New("no interior minimum within extended refinement window")

// coarseHit is the best (closest) coarse-grid observation of a pair. The
// refiner consolidates all coarse hits for an unordered pair into one of
// these before doing any fine work, which prevents the same conjunction
// from being refined and reported more than once.
type coarseHit struct {
	DistM float64
	Step  int
}

// better reports whether the candidate observation beats the current best.
// The timestep tiebreak keeps merge order irrelevant, so parallel coarse
// screening stays deterministic.
func (h coarseHit) better(than coarseHit) bool {
	if h.DistM != than.DistM {
		return h.DistM < than.DistM
	}
	return h.Step < than.Step
}

// RefinedApproach is the accurately located closest approach of one pair.
// The minimum is guaranteed to be interior to the refinement window.
type RefinedApproach struct {
	AIdx, BIdx   int // track indices (AIdx < BIdx)
	TCA          time.Time
	MissDistance float64    // meters
	RelPosition  orbit.Vec3 // A - B at TCA, meters
	RelVelocity  orbit.Vec3 // A - B at TCA, m/s
	RelSpeed     float64    // |RelVelocity|, m/s
	WindowStart  time.Time
	WindowEnd    time.Time
}

// RefineConfig controls the fine search around a coarse hit.
type RefineConfig struct {
	HalfWidthSteps int           // coarse steps either side of the hit
	FineStep       time.Duration // fine re-sampling cadence
}

// refinePair locates the local distance minimum for one pair around its
// best coarse timestep. Both objects are re-propagated at the fine step
// directly from their element sets, so the search needs no stored tracks.
//
// If the minimum falls on the window edge the window is extended once by the
// half-width on that side; a minimum still on the edge is unresolvable and
// the pair is dropped.
func refinePair(elA, elB orbit.Elements, grid orbit.TimeGrid, hit coarseHit, cfg RefineConfig) (RefinedApproach, error) {
	lo := hit.Step - cfg.HalfWidthSteps
	hi := hit.Step + cfg.HalfWidthSteps
	if lo < 0 {
		lo = 0
	}
	if hi > grid.Samples-1 {
		hi = grid.Samples - 1
	}

	start := grid.At(lo)
	end := grid.At(hi)

	for attempt := 0; attempt < 2; attempt++ {
		times := fineTimes(start, end, cfg.FineStep)
		dists := make([]float64, len(times))
		minIdx := 0
		var minState [2]orbit.State

		for i, at := range times {
			stA, err := orbit.StateAt(elA, at)
			if err != nil {
				return RefinedApproach{}, err
			}
			stB, err := orbit.StateAt(elB, at)
			if err != nil {
				return RefinedApproach{}, err
			}
			dists[i] = stA.Position.Sub(stB.Position).Norm()
			if i == 0 || dists[i] < dists[minIdx] {
				minIdx = i
				minState = [2]orbit.State{stA, stB}
			}
		}

		interior := minIdx > 0 && minIdx < len(times)-1
		if interior {
			relPos := minState[0].Position.Sub(minState[1].Position)
			relVel := minState[0].Velocity.Sub(minState[1].Velocity)
			return RefinedApproach{
				TCA:          times[minIdx],
				MissDistance: dists[minIdx],
				RelPosition:  relPos,
				RelVelocity:  relVel,
				RelSpeed:     relVel.Norm(),
				WindowStart:  start,
				WindowEnd:    end,
			}, nil
		}

		if attempt == 1 {
			break
		}

		// Extend once toward the boundary the minimum sits on, clamped to
		// the run horizon.
		extension := time.Duration(cfg.HalfWidthSteps) * grid.Step
		extended := false
		if minIdx == 0 && start.After(grid.Start) {
			start = maxTime(grid.Start, start.Add(-extension))
			extended = true
		}
		if minIdx == len(times)-1 && end.Before(grid.End()) {
			end = minTime(grid.End(), end.Add(extension))
			extended = true
		}
		if !extended {
			break
		}
	}
	return RefinedApproach{}, ErrRefinementUnresolved
}

// fineTimes samples [start, end] inclusive at the given step, always
// including the end instant.
func fineTimes(start, end time.Time, step time.Duration) []time.Time {
	n := int(end.Sub(start)/step) + 1
	out := make([]time.Time, 0, n+1)
	for at := start; !at.After(end); at = at.Add(step) {
		out = append(out, at)
	}
	if out[len(out)-1].Before(end) {
		out = append(out, end)
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
