package artifacts

import (
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/frames"
	"github.com/AntAci/AstraGuard/internal/monitoring"
	"github.com/AntAci/AstraGuard/internal/screening"
)

// SnapshotObject is one object's Earth-fixed track in the snapshot.
type SnapshotObject struct {
	ObjectIndex    int          `json:"object_index"`
	NoradID        int          `json:"norad_id"`
	Name           string       `json:"name"`
	SourceGroup    string       `json:"source_group"`
	Class          string       `json:"class"`
	PositionsECEFM [][3]float64 `json:"positions_ecef_m"`
}

// SnapshotMeta records the sampling relationship to the run grid.
type SnapshotMeta struct {
	NativeStepS    int `json:"native_dt_s"`
	ExportStepS    int `json:"export_dt_s"`
	DownsampleStep int `json:"downsample_step"`
}

// Snapshot is the visualization artifact: downsampled Earth-fixed tracks for
// a balanced subset of the screened objects.
type Snapshot struct {
	GeneratedAt   time.Time        `json:"generated_at_utc"`
	SchemaVersion string           `json:"schema_version"`
	ModelVersion  string           `json:"model_version"`
	TimesUTC      []time.Time      `json:"times_utc"`
	Meta          SnapshotMeta     `json:"meta"`
	Notes         string           `json:"notes"`
	Objects       []SnapshotObject `json:"objects"`
}

// SnapshotConfig controls snapshot sampling.
type SnapshotConfig struct {
	Stride     int   // keep every Nth grid instant
	MaxObjects int   // total object cap
	Seed       int64 // selection seed; fixed per run for reproducibility
}

// snapshotSeed is the default selection seed. Fixed so re-running the same
// input reproduces the same artifact byte for byte.
const snapshotSeed = 20260301

// BuildSnapshot downsamples the run's tracks, rotates them into the
// Earth-fixed frame, and selects a balanced active/debris subset. Objects
// named in requiredIDs (event participants) are always included, even if
// that overflows MaxObjects.
func BuildSnapshot(res *screening.Result, cfg SnapshotConfig, requiredIDs map[int]bool, generatedAt time.Time) Snapshot {
	stride := cfg.Stride
	if stride < 1 {
		stride = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = snapshotSeed
	}

	times := make([]time.Time, 0, res.Grid.Samples/stride+1)
	for i := 0; i < res.Grid.Samples; i += stride {
		times = append(times, res.Grid.At(i))
	}

	selected := balancedIndices(res.Objects, cfg.MaxObjects, seed, requiredIDs)

	objects := make([]SnapshotObject, 0, len(selected))
	for outIdx, idx := range selected {
		track := res.Tracks[idx]
		positions := make([][3]float64, 0, len(times))
		for i := 0; i < res.Grid.Samples; i += stride {
			ecef := frames.EciToEcef(track.Positions[i], res.Grid.At(i))
			positions = append(positions, [3]float64{ecef.X, ecef.Y, ecef.Z})
		}
		obj := res.Objects[idx]
		objects = append(objects, SnapshotObject{
			ObjectIndex:    outIdx,
			NoradID:        obj.NoradID,
			Name:           obj.Name,
			SourceGroup:    obj.SourceGroup,
			Class:          string(obj.Class),
			PositionsECEFM: positions,
		})
	}

	stepS := int(res.Grid.Step.Seconds())
	return Snapshot{
		GeneratedAt:   generatedAt.UTC(),
		SchemaVersion: SchemaVersion,
		ModelVersion:  screening.ModelVersion,
		TimesUTC:      times,
		Meta: SnapshotMeta{
			NativeStepS:    stepS,
			ExportStepS:    stepS * stride,
			DownsampleStep: stride,
		},
		Notes:   "Coordinates are ECEF meters.",
		Objects: objects,
	}
}

// balancedIndices picks the snapshot object subset: all required objects,
// then active and debris pools sampled evenly with a seeded shuffle. The
// result is sorted by catalog number so output order never depends on
// sampling internals.
func balancedIndices(objects []catalog.Object, maxTotal int, seed int64, requiredIDs map[int]bool) []int {
	var required, activePool, debrisPool []int
	for i, obj := range objects {
		if requiredIDs[obj.NoradID] {
			required = append(required, i)
			continue
		}
		if obj.Class == catalog.ClassDebris {
			debrisPool = append(debrisPool, i)
		} else {
			activePool = append(activePool, i)
		}
	}

	if maxTotal <= 0 || len(required)+len(activePool)+len(debrisPool) <= maxTotal {
		out := append(append(append([]int{}, required...), activePool...), debrisPool...)
		sort.Ints(out)
		return out
	}

	slots := maxTotal - len(required)
	if slots < 0 {
		monitoring.Logf("[WARN] snapshot cap %d below required event objects %d, expanding", maxTotal, len(required))
		slots = 0
	}
	activeTake := slots / 2
	debrisTake := slots - activeTake
	// Rebalance when one pool runs short.
	if activeTake > len(activePool) {
		debrisTake += activeTake - len(activePool)
		activeTake = len(activePool)
	}
	if debrisTake > len(debrisPool) {
		activeTake = min(activeTake+debrisTake-len(debrisPool), len(activePool))
		debrisTake = len(debrisPool)
	}

	rng := rand.New(rand.NewSource(seed))
	out := append([]int{}, required...)
	out = append(out, sampleWithout(rng, activePool, activeTake)...)
	out = append(out, sampleWithout(rng, debrisPool, debrisTake)...)
	sort.Ints(out)
	return out
}

func sampleWithout(rng *rand.Rand, pool []int, take int) []int {
	if take >= len(pool) {
		return append([]int{}, pool...)
	}
	perm := rng.Perm(len(pool))
	out := make([]int, take)
	for i := 0; i < take; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// WriteSnapshot writes the snapshot artifact and returns its path.
func WriteSnapshot(dir string, snap Snapshot) (string, error) {
	path := filepath.Join(dir, SnapshotName)
	if err := writeJSON(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

// ValidateEventLinks drops events whose participants or grid index are not
// representable in the snapshot, so the visualization never dangles.
func ValidateEventLinks(events []screening.ConjunctionEvent, snap Snapshot) (kept []screening.ConjunctionEvent, dropped int) {
	present := make(map[int]bool, len(snap.Objects))
	for _, obj := range snap.Objects {
		present[obj.NoradID] = true
	}
	maxIndex := len(snap.TimesUTC)*snap.Meta.DownsampleStep - 1

	kept = make([]screening.ConjunctionEvent, 0, len(events))
	for _, ev := range events {
		if !present[ev.PrimaryID] || !present[ev.SecondaryID] {
			dropped++
			continue
		}
		if ev.TCAGridIndex < 0 || ev.TCAGridIndex > maxIndex {
			dropped++
			continue
		}
		kept = append(kept, ev)
	}
	if dropped > 0 {
		monitoring.Logf("[WARN] dropped %d events with invalid snapshot links", dropped)
	}
	return kept, dropped
}
