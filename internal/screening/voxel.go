// Package screening implements the conjunction screening pipeline: voxel
// candidate generation, two-stage close-approach refinement, probabilistic
// risk scoring, event assembly and ranking, trend-gated decision
// classification, and minimum-delta-v maneuver planning.
package screening

import (
	"github.com/AntAci/AstraGuard/internal/orbit"
)

// EstimatedObjectsPerVoxel sizes the initial voxel map capacity.
const EstimatedObjectsPerVoxel = 2

// CandidatePair is an unordered pair of track indices flagged as near
// neighbors at some coarse timestep. A < B always holds.
type CandidatePair struct {
	A, B int
}

// VoxelIndex buckets object positions at one timestep into a uniform 3D
// grid so that neighbor search touches only adjacent cells instead of all
// pairs. The index is rebuilt fresh per timestep; nothing persists across
// timesteps.
type VoxelIndex struct {
	EdgeLength float64 // voxel edge in meters
	cells      map[uint64][]int
}

// NewVoxelIndex creates an index with the given voxel edge length.
func NewVoxelIndex(edgeLength float64) *VoxelIndex {
	return &VoxelIndex{
		EdgeLength: edgeLength,
		cells:      make(map[uint64][]int),
	}
}

// voxelKey packs signed 3D cell coordinates into a single map key. Cell
// coordinates for Earth-orbiting objects stay well within ±2^20 even at a
// 1 km voxel edge, so 21 bits per axis is ample.
func voxelKey(ix, iy, iz int64) uint64 {
	const bias = int64(1) << 20
	return uint64(ix+bias)<<42 | uint64(iy+bias)<<21 | uint64(iz+bias)
}

func (vi *VoxelIndex) cellCoords(p orbit.Vec3) (int64, int64, int64) {
	return floorDiv(p.X, vi.EdgeLength), floorDiv(p.Y, vi.EdgeLength), floorDiv(p.Z, vi.EdgeLength)
}

func floorDiv(v, edge float64) int64 {
	q := v / edge
	i := int64(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}

// Build populates the index from one position per tracked object. The slice
// index doubles as the object handle in emitted pairs.
func (vi *VoxelIndex) Build(positions []orbit.Vec3) {
	vi.cells = make(map[uint64][]int, len(positions)/EstimatedObjectsPerVoxel+1)
	for i, p := range positions {
		ix, iy, iz := vi.cellCoords(p)
		key := voxelKey(ix, iy, iz)
		vi.cells[key] = append(vi.cells[key], i)
	}
}

// CandidatePairs emits every unordered pair of objects sharing a voxel or
// occupying adjacent voxels (27-neighborhood). The result is a superset of
// all pairs within one voxel edge of each other: recall is total, precision
// is left to the cheap distance check downstream.
//
// Each neighboring cell relationship is visited exactly once (same cell, or
// the neighbor with the greater key), so no pair is emitted twice.
func (vi *VoxelIndex) CandidatePairs(positions []orbit.Vec3) []CandidatePair {
	pairs := make([]CandidatePair, 0)
	for key, members := range vi.cells {
		// Same-cell pairs.
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pairs = append(pairs, orderedPair(members[i], members[j]))
			}
		}

		// Cross-cell pairs against the 26 neighbors, visiting each
		// unordered cell relationship from one side only.
		ix, iy, iz := vi.cellCoords(positions[members[0]])
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					nkey := voxelKey(ix+dx, iy+dy, iz+dz)
					if nkey <= key {
						continue
					}
					neighbors, ok := vi.cells[nkey]
					if !ok {
						continue
					}
					for _, a := range members {
						for _, b := range neighbors {
							pairs = append(pairs, orderedPair(a, b))
						}
					}
				}
			}
		}
	}
	return pairs
}

func orderedPair(a, b int) CandidatePair {
	if a > b {
		a, b = b, a
	}
	return CandidatePair{A: a, B: b}
}
