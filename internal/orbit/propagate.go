package orbit

import (
	"math"
	"runtime"
	"sync"
	"time"
)

// State is an instantaneous inertial-frame position/velocity sample.
type State struct {
	Position Vec3 // meters, ECI
	Velocity Vec3 // meters/second, ECI
}

// Track is a propagated position/velocity history for one object on the
// shared time grid. Created once per run and read-only thereafter.
type Track struct {
	CatalogID  int
	Grid       TimeGrid
	Positions  []Vec3
	Velocities []Vec3
}

// StateAt evaluates the J2-perturbed Keplerian state at the target instant.
// It is a pure function of (elements, t): no state is carried between calls,
// so evaluations are safe to run concurrently across objects.
func StateAt(el Elements, t time.Time) (State, error) {
	if err := el.Validate(); err != nil {
		return State{}, err
	}

	dt := t.Sub(el.Epoch).Seconds()
	rates := el.Secular()

	raan := el.RAAN + rates.RAANDot*dt
	argp := el.ArgPerigee + rates.ArgPerigeeDot*dt
	meanAnom := el.MeanAnomaly + rates.MeanMotionDot*dt

	ecc := el.Eccentricity
	a := el.SemiMajorAxis()
	p := a * (1 - ecc*ecc)

	eccAnom := solveKepler(meanAnom, ecc)
	sinE, cosE := math.Sin(eccAnom), math.Cos(eccAnom)

	// True anomaly and radius from the eccentric anomaly.
	sqrt1me2 := math.Sqrt(1 - ecc*ecc)
	nu := math.Atan2(sqrt1me2*sinE, cosE-ecc)
	r := a * (1 - ecc*cosE)

	sinNu, cosNu := math.Sin(nu), math.Cos(nu)

	// Perifocal frame state.
	posPF := Vec3{X: r * cosNu, Y: r * sinNu}
	vScale := math.Sqrt(MuEarth / p)
	velPF := Vec3{X: -vScale * sinNu, Y: vScale * (ecc + cosNu)}

	// Perifocal -> ECI: Rz(Ω) Rx(i) Rz(ω).
	pos := rotatePerifocalToECI(posPF, raan, el.Inclination, argp)
	vel := rotatePerifocalToECI(velPF, raan, el.Inclination, argp)

	if !pos.IsFinite() || !vel.IsFinite() {
		return State{}, &PropagationError{Reason: "non-finite state"}
	}
	return State{Position: pos, Velocity: vel}, nil
}

func rotatePerifocalToECI(v Vec3, raan, incl, argp float64) Vec3 {
	sinO, cosO := math.Sin(raan), math.Cos(raan)
	sinI, cosI := math.Sin(incl), math.Cos(incl)
	sinW, cosW := math.Sin(argp), math.Cos(argp)

	// Composite rotation matrix rows, applied to the in-plane vector.
	r11 := cosO*cosW - sinO*sinW*cosI
	r12 := -cosO*sinW - sinO*cosW*cosI
	r21 := sinO*cosW + cosO*sinW*cosI
	r22 := -sinO*sinW + cosO*cosW*cosI
	r31 := sinW * sinI
	r32 := cosW * sinI

	return Vec3{
		X: r11*v.X + r12*v.Y,
		Y: r21*v.X + r22*v.Y,
		Z: r31*v.X + r32*v.Y,
	}
}

// Propagate advances one object across the whole grid. Any per-sample
// failure aborts the object (never the run) with a PropagationError carrying
// the catalog ID.
func Propagate(catalogID int, el Elements, grid TimeGrid) (*Track, error) {
	if err := el.Validate(); err != nil {
		return nil, &PropagationError{CatalogID: catalogID, Reason: err.Error()}
	}
	track := &Track{
		CatalogID:  catalogID,
		Grid:       grid,
		Positions:  make([]Vec3, grid.Samples),
		Velocities: make([]Vec3, grid.Samples),
	}
	for i := 0; i < grid.Samples; i++ {
		st, err := StateAt(el, grid.At(i))
		if err != nil {
			return nil, &PropagationError{CatalogID: catalogID, Reason: err.Error()}
		}
		track.Positions[i] = st.Position
		track.Velocities[i] = st.Velocity
	}
	return track, nil
}

// PropagateInput pairs a catalog identity with its element set for batch
// propagation.
type PropagateInput struct {
	CatalogID int
	Elements  Elements
}

// PropagateAll fans propagation out across a worker pool. Failed objects are
// skipped and reported; output order matches input order with failed entries
// removed, keeping downstream indexing deterministic.
func PropagateAll(inputs []PropagateInput, grid TimeGrid, workers int) (tracks []*Track, skipped []*PropagationError) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Track, len(inputs))
	errs := make([]*PropagationError, len(inputs))

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				track, err := Propagate(inputs[idx].CatalogID, inputs[idx].Elements, grid)
				if err != nil {
					var perr *PropagationError
					if pe, ok := err.(*PropagationError); ok {
						perr = pe
					} else {
						perr = &PropagationError{CatalogID: inputs[idx].CatalogID, Reason: err.Error()}
					}
					errs[idx] = perr
					continue
				}
				results[idx] = track
			}
		}()
	}
	for idx := range inputs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	tracks = make([]*Track, 0, len(inputs))
	for idx := range inputs {
		if errs[idx] != nil {
			skipped = append(skipped, errs[idx])
			continue
		}
		tracks = append(tracks, results[idx])
	}
	return tracks, skipped
}
