package orbit

import (
	"fmt"
	"time"
)

// TimeGrid is the shared propagation schedule for a screening run. Every
// pipeline stage receives the same grid so that per-object tracks line up
// sample-for-sample. The grid is a value type and never mutated after
// construction.
type TimeGrid struct {
	Start   time.Time
	Step    time.Duration
	Samples int // number of samples including the start instant
}

// NewTimeGrid builds a grid covering [start, start+horizon] at the given
// step. The final sample always lands on or after start+horizon so the full
// horizon is covered even when step does not divide it evenly.
func NewTimeGrid(start time.Time, horizon, step time.Duration) (TimeGrid, error) {
	if step <= 0 {
		return TimeGrid{}, fmt.Errorf("time grid step must be positive, got %v", step)
	}
	if horizon < step {
		return TimeGrid{}, fmt.Errorf("time grid horizon %v shorter than step %v", horizon, step)
	}
	samples := int(horizon/step) + 1
	if time.Duration(samples-1)*step < horizon {
		samples++
	}
	return TimeGrid{Start: start.UTC(), Step: step, Samples: samples}, nil
}

// At returns the instant of sample i. Callers must keep i within
// [0, Samples); the grid does not range-check for speed.
func (g TimeGrid) At(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Step)
}

// End returns the instant of the final sample.
func (g TimeGrid) End() time.Time {
	return g.At(g.Samples - 1)
}

// Times materializes every sample instant. Used by artifact writers; the
// pipeline itself indexes with At to avoid the allocation.
func (g TimeGrid) Times() []time.Time {
	out := make([]time.Time, g.Samples)
	for i := range out {
		out[i] = g.At(i)
	}
	return out
}

// NearestIndex returns the sample index closest to t, clamped to the grid.
func (g TimeGrid) NearestIndex(t time.Time) int {
	if g.Samples == 0 {
		return 0
	}
	offset := t.Sub(g.Start)
	i := int((offset + g.Step/2) / g.Step)
	if i < 0 {
		return 0
	}
	if i >= g.Samples {
		return g.Samples - 1
	}
	return i
}

// Equal reports whether two grids describe the same schedule. Pipeline
// stages use this to detect shared-grid mismatches, which are fatal.
func (g TimeGrid) Equal(o TimeGrid) bool {
	return g.Start.Equal(o.Start) && g.Step == o.Step && g.Samples == o.Samples
}
