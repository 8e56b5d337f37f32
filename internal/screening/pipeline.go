package screening

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/monitoring"
	"github.com/AntAci/AstraGuard/internal/orbit"
)

// Fatal run conditions. Everything else is a per-item failure that the
// pipeline counts and skips.
var (
	ErrNoObjects       = errors.New("no objects to screen")
	ErrNoUsableObjects = errors.New("no objects survived propagation")
	ErrGridMismatch    = errors.New("track grid does not match the run grid")
)

// Config is the resolved run configuration handed to the pipeline. All
// values are concrete; file parsing and defaulting happen in
// internal/config.
type Config struct {
	Start      time.Time
	Horizon    time.Duration
	CoarseStep time.Duration
	VoxelEdgeM float64
	TopK       int
	Workers    int

	Refine   RefineConfig
	Risk     RiskConfig
	Trend    TrendConfig
	Maneuver ManeuverConfig
}

// Validate rejects malformed configuration before any work starts. A bad
// configuration is fatal for the run.
func (c Config) Validate() error {
	switch {
	case c.Horizon <= 0 || c.CoarseStep <= 0:
		return fmt.Errorf("invalid time grid: horizon=%v step=%v", c.Horizon, c.CoarseStep)
	case c.VoxelEdgeM <= 0:
		return fmt.Errorf("voxel edge must be positive, got %v", c.VoxelEdgeM)
	case c.Refine.FineStep <= 0 || c.Refine.FineStep > c.CoarseStep:
		return fmt.Errorf("refine step %v must be positive and finer than coarse step %v", c.Refine.FineStep, c.CoarseStep)
	case c.Refine.HalfWidthSteps <= 0:
		return fmt.Errorf("refine half-width must be positive, got %d", c.Refine.HalfWidthSteps)
	case c.Risk.HardBodyRadiusM <= 0:
		return fmt.Errorf("hard-body radius must be positive, got %v", c.Risk.HardBodyRadiusM)
	case c.Risk.Model != SigmaIsotropic && c.Risk.Model != SigmaAnisotropicRTN:
		return fmt.Errorf("unknown sigma model %q", c.Risk.Model)
	case c.TopK <= 0:
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	return nil
}

// RunReport records everything the run recovered from, for reproducibility
// auditing. Per-item failures never abort a run; they land here.
type RunReport struct {
	RunID               string                   `json:"run_id"`
	StartedAt           time.Time                `json:"started_at_utc"`
	ObjectsRequested    int                      `json:"objects_requested"`
	ObjectsKept         int                      `json:"objects_kept"`
	ObjectsSkipped      int                      `json:"objects_skipped"`
	CandidateEmissions  int                      `json:"candidate_emissions"`
	UniquePairs         int                      `json:"unique_pairs"`
	RefinedApproaches   int                      `json:"refined_approaches"`
	DroppedUnresolved   int                      `json:"dropped_unresolved"`
	ClampedScores       int                      `json:"clamped_scores"`
	FilteredDebrisPairs int                      `json:"filtered_debris_pairs"`
	EventsScored        int                      `json:"events_scored"`
	StageDurations      map[string]time.Duration `json:"stage_durations_ns"`
}

// Result is the full output of one screening run.
type Result struct {
	Grid      orbit.TimeGrid
	Objects   []catalog.Object // kept objects, aligned with Tracks
	Tracks    []*orbit.Track
	Events    []ConjunctionEvent // every scored event, ranked
	TopEvents []ConjunctionEvent // the top-K slice of Events
	Report    RunReport
}

// Run executes the batch pipeline: propagate, generate candidates, refine,
// score, assemble and rank. Trend classification and maneuver planning are
// per-event follow-ups driven through EvaluateEvent.
func Run(cfg Config, objects []catalog.Object) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, ErrNoObjects
	}

	grid, err := orbit.NewTimeGrid(cfg.Start, cfg.Horizon, cfg.CoarseStep)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	report := RunReport{
		RunID:            uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		ObjectsRequested: len(objects),
		StageDurations:   make(map[string]time.Duration),
	}

	// Stage 1: propagation, parallel per object.
	stageStart := time.Now()
	inputs := make([]orbit.PropagateInput, len(objects))
	for i, obj := range objects {
		inputs[i] = orbit.PropagateInput{CatalogID: obj.NoradID, Elements: obj.Elements}
	}
	tracks, skipped := orbit.PropagateAll(inputs, grid, workers)
	for _, perr := range skipped {
		monitoring.Logf("[WARN] skipping object %d: %s", perr.CatalogID, perr.Reason)
	}
	kept := make([]catalog.Object, 0, len(tracks))
	byID := make(map[int]catalog.Object, len(objects))
	for _, obj := range objects {
		byID[obj.NoradID] = obj
	}
	for _, tr := range tracks {
		if !tr.Grid.Equal(grid) {
			return nil, ErrGridMismatch
		}
		kept = append(kept, byID[tr.CatalogID])
	}
	report.ObjectsKept = len(tracks)
	report.ObjectsSkipped = len(skipped)
	report.StageDurations["propagate"] = time.Since(stageStart)
	monitoring.Logf("[INFO] propagation complete: requested=%d kept=%d skipped=%d timesteps=%d",
		len(objects), len(tracks), len(skipped), grid.Samples)
	if len(tracks) == 0 {
		return nil, ErrNoUsableObjects
	}

	// Stage 2: coarse candidate generation, parallel per timestep, merged
	// into one deduplicated best-hit-per-pair map. The merge is the only
	// synchronization point in the run.
	stageStart = time.Now()
	bestByPair, emissions := coarseCandidates(tracks, grid, cfg.VoxelEdgeM, workers)
	report.CandidateEmissions = emissions
	report.UniquePairs = len(bestByPair)
	report.StageDurations["candidates"] = time.Since(stageStart)
	monitoring.Logf("[INFO] candidate generation: emissions=%d unique_pairs=%d", emissions, len(bestByPair))

	// Stage 3: refinement, parallel per distinct pair.
	stageStart = time.Now()
	refined, unresolved := refineAll(bestByPair, kept, grid, cfg.Refine, workers)
	report.RefinedApproaches = len(refined)
	report.DroppedUnresolved = unresolved
	report.StageDurations["refine"] = time.Since(stageStart)
	monitoring.Logf("[INFO] refinement: refined=%d dropped_unresolved=%d", len(refined), unresolved)

	// Stage 4: risk scoring.
	stageStart = time.Now()
	scored := make([]ScoredApproach, 0, len(refined))
	for _, app := range refined {
		s := cfg.Risk.Score(app, kept[app.AIdx].Class, kept[app.BIdx].Class)
		if s.SigmaClamped {
			report.ClampedScores++
		}
		scored = append(scored, s)
	}
	report.StageDurations["score"] = time.Since(stageStart)

	// Stage 5: event assembly and ranking.
	stageStart = time.Now()
	events, filteredDebris := AssembleEvents(scored, kept, grid, 0)
	report.FilteredDebrisPairs = filteredDebris
	report.EventsScored = len(events)
	top := events
	if len(top) > cfg.TopK {
		top = top[:cfg.TopK]
	}
	report.StageDurations["assemble"] = time.Since(stageStart)
	monitoring.Logf("[INFO] events: scored=%d filtered_debris_pairs=%d top_k=%d",
		len(events), filteredDebris, len(top))

	return &Result{
		Grid:      grid,
		Objects:   kept,
		Tracks:    tracks,
		Events:    events,
		TopEvents: top,
		Report:    report,
	}, nil
}

// coarseCandidates builds a voxel index per timestep and reduces every
// emission into the globally closest coarse observation per unordered pair.
func coarseCandidates(tracks []*orbit.Track, grid orbit.TimeGrid, voxelEdgeM float64, workers int) (map[CandidatePair]coarseHit, int) {
	best := make(map[CandidatePair]coarseHit)
	emissions := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	steps := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			positions := make([]orbit.Vec3, len(tracks))
			local := make(map[CandidatePair]coarseHit)
			localEmissions := 0
			for t := range steps {
				for i, tr := range tracks {
					positions[i] = tr.Positions[t]
				}
				index := NewVoxelIndex(voxelEdgeM)
				index.Build(positions)
				pairs := index.CandidatePairs(positions)
				localEmissions += len(pairs)
				for _, p := range pairs {
					hit := coarseHit{
						DistM: positions[p.A].Sub(positions[p.B]).Norm(),
						Step:  t,
					}
					if prev, ok := local[p]; !ok || hit.better(prev) {
						local[p] = hit
					}
				}
			}
			mu.Lock()
			for p, hit := range local {
				if prev, ok := best[p]; !ok || hit.better(prev) {
					best[p] = hit
				}
			}
			emissions += localEmissions
			mu.Unlock()
		}()
	}
	for t := 0; t < grid.Samples; t++ {
		steps <- t
	}
	close(steps)
	wg.Wait()
	return best, emissions
}

// refineAll refines each distinct pair at most once, in parallel. Pairs are
// processed in canonical order so the output slice is deterministic.
func refineAll(bestByPair map[CandidatePair]coarseHit, objects []catalog.Object, grid orbit.TimeGrid, cfg RefineConfig, workers int) ([]RefinedApproach, int) {
	pairs := make([]CandidatePair, 0, len(bestByPair))
	for p := range bestByPair {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	results := make([]*RefinedApproach, len(pairs))
	var unresolved int
	var mu sync.Mutex

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := pairs[idx]
				app, err := refinePair(objects[p.A].Elements, objects[p.B].Elements, grid, bestByPair[p], cfg)
				if err != nil {
					mu.Lock()
					unresolved++
					mu.Unlock()
					continue
				}
				app.AIdx, app.BIdx = p.A, p.B
				results[idx] = &app
			}
		}()
	}
	for idx := range pairs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	out := make([]RefinedApproach, 0, len(pairs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, unresolved
}

// EventDecision bundles everything the decision collaborator needs for one
// event: the trend evaluation and, when the gate allows it, a maneuver plan.
type EventDecision struct {
	Event ConjunctionEvent `json:"event"`
	Trend TrendEvaluation  `json:"trend"`
	Plan  *ManeuverPlan    `json:"maneuver_plan,omitempty"`
}

// EvaluateEvent runs trend classification for one event and, only when the
// gate lands on MANEUVER, the maneuver planner. Independent across events;
// strictly sequential within one event because the gate decides whether
// planning runs at all.
func EvaluateEvent(objects []catalog.Object, event ConjunctionEvent, now time.Time, cfg Config) (EventDecision, error) {
	var primary, secondary *catalog.Object
	for i := range objects {
		switch objects[i].NoradID {
		case event.PrimaryID:
			primary = &objects[i]
		case event.SecondaryID:
			secondary = &objects[i]
		}
	}
	if primary == nil || secondary == nil {
		return EventDecision{}, fmt.Errorf("event %s references objects missing from the run", event.EventID)
	}

	trend, err := EvaluateTrend(primary.Elements, secondary.Elements, primary.Class, secondary.Class,
		event, now, cfg.Trend, cfg.Risk)
	if err != nil {
		return EventDecision{}, err
	}

	decision := EventDecision{Event: event, Trend: trend}
	if trend.Decision == GateManeuver {
		plan, err := PlanManeuver(primary.Elements, secondary.Elements, event, cfg.Maneuver)
		if err != nil {
			return EventDecision{}, err
		}
		decision.Plan = &plan
	}
	return decision, nil
}
