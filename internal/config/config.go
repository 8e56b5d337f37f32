// Package config loads the screening run configuration. Fields are
// pointer-typed so a partial JSON file only overrides what it names; the
// Get* accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunConfig is the JSON-file schema for one screening run. Command-line
// flags on the root command override whatever the file sets.
type RunConfig struct {
	// Catalog params
	DatabasePath *string  `json:"database_path,omitempty"`
	SourceGroups []string `json:"source_groups,omitempty"`
	MaxObjects   *int     `json:"max_objects,omitempty"`

	// Time grid params
	StartUTC   *string `json:"start_utc,omitempty"`   // RFC3339; empty means now
	Horizon    *string `json:"horizon,omitempty"`     // duration string like "72h"
	CoarseStep *string `json:"coarse_step,omitempty"` // duration string like "10m"

	// Candidate generation params
	VoxelEdgeM *float64 `json:"voxel_edge_m,omitempty"`
	Workers    *int     `json:"workers,omitempty"`

	// Refinement params
	FineStep        *string `json:"fine_step,omitempty"`
	RefineHalfSteps *int    `json:"refine_half_width_steps,omitempty"`

	// Risk params
	SigmaModel         *string   `json:"sigma_model,omitempty"` // isotropic | anisotropic_rtn
	HardBodyRadiusM    *float64  `json:"hard_body_radius_m,omitempty"`
	SigmaPayloadM      *float64  `json:"sigma_payload_m,omitempty"`
	SigmaDebrisM       *float64  `json:"sigma_debris_m,omitempty"`
	PayloadSigmaRTNM   []float64 `json:"payload_sigma_rtn_m,omitempty"` // [r, t, n]
	DebrisSigmaRTNM    []float64 `json:"debris_sigma_rtn_m,omitempty"`
	AlongTrackGrowthMS *float64  `json:"along_track_growth_mps,omitempty"`
	SigmaFloorM        *float64  `json:"sigma_floor_m,omitempty"`

	// Ranking params
	TopK *int `json:"top_k,omitempty"`

	// Trend gate params
	TrendWindow   *string  `json:"trend_window,omitempty"`
	TrendCadence  *string  `json:"trend_cadence,omitempty"`
	PcThreshold   *float64 `json:"pc_threshold,omitempty"`
	PcCritical    *float64 `json:"pc_critical,omitempty"`
	StabilityMin  *float64 `json:"stability_min,omitempty"`
	DeferHorizon  *string  `json:"defer_horizon,omitempty"`
	DeferRevisit  *string  `json:"defer_revisit,omitempty"`
	DeferTCAGuard *string  `json:"defer_tca_guard,omitempty"`

	// Maneuver planner params
	BurnOffsets      []string `json:"burn_offsets,omitempty"` // duration strings
	MaxDeltaVMPS     *float64 `json:"max_delta_v_mps,omitempty"`
	TargetMissM      *float64 `json:"target_miss_m,omitempty"`
	LateBurnLead     *string  `json:"late_burn_lead,omitempty"`
	EvalWindow       *string  `json:"eval_window,omitempty"`
	EvalStep         *string  `json:"eval_step,omitempty"`
	BisectIterations *int     `json:"bisect_iterations,omitempty"`

	// Artifact params
	ArtifactDir        *string `json:"artifact_dir,omitempty"`
	SnapshotStride     *int    `json:"snapshot_stride,omitempty"`
	SnapshotMaxObjects *int    `json:"snapshot_max_objects,omitempty"`
}

// Empty returns a RunConfig with every field unset.
func Empty() *RunConfig {
	return &RunConfig{}
}

// Load reads a RunConfig from a JSON file. The path must carry a .json
// extension and the file must be under 1MB. Fields omitted from the file
// keep their defaults, so partial configs are safe.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set fields are well-formed. Unset fields are always
// valid because the accessors default them.
func (c *RunConfig) Validate() error {
	durations := map[string]*string{
		"horizon":         c.Horizon,
		"coarse_step":     c.CoarseStep,
		"fine_step":       c.FineStep,
		"trend_window":    c.TrendWindow,
		"trend_cadence":   c.TrendCadence,
		"defer_horizon":   c.DeferHorizon,
		"defer_revisit":   c.DeferRevisit,
		"defer_tca_guard": c.DeferTCAGuard,
		"late_burn_lead":  c.LateBurnLead,
		"eval_window":     c.EvalWindow,
		"eval_step":       c.EvalStep,
	}
	for name, field := range durations {
		if field != nil && *field != "" {
			if _, err := time.ParseDuration(*field); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *field, err)
			}
		}
	}
	for _, off := range c.BurnOffsets {
		if _, err := time.ParseDuration(off); err != nil {
			return fmt.Errorf("invalid burn offset %q: %w", off, err)
		}
	}
	if c.StartUTC != nil && *c.StartUTC != "" {
		if _, err := time.Parse(time.RFC3339, *c.StartUTC); err != nil {
			return fmt.Errorf("invalid start_utc %q: %w", *c.StartUTC, err)
		}
	}
	if c.SigmaModel != nil {
		if *c.SigmaModel != "isotropic" && *c.SigmaModel != "anisotropic_rtn" {
			return fmt.Errorf("sigma_model must be isotropic or anisotropic_rtn, got %q", *c.SigmaModel)
		}
	}
	for _, axes := range [][]float64{c.PayloadSigmaRTNM, c.DebrisSigmaRTNM} {
		if len(axes) != 0 && len(axes) != 3 {
			return fmt.Errorf("per-axis sigma needs exactly [r, t, n], got %d values", len(axes))
		}
	}
	if c.HardBodyRadiusM != nil && *c.HardBodyRadiusM <= 0 {
		return fmt.Errorf("hard_body_radius_m must be positive, got %v", *c.HardBodyRadiusM)
	}
	if c.TopK != nil && *c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", *c.TopK)
	}
	if c.MaxObjects != nil && *c.MaxObjects < 0 {
		return fmt.Errorf("max_objects must be non-negative, got %d", *c.MaxObjects)
	}
	return nil
}

func (c *RunConfig) duration(field *string, def time.Duration) time.Duration {
	if field == nil || *field == "" {
		return def
	}
	d, err := time.ParseDuration(*field)
	if err != nil {
		return def
	}
	return d
}

// GetDatabasePath returns the catalog database path or the default.
func (c *RunConfig) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "astraguard.db"
	}
	return *c.DatabasePath
}

// GetSourceGroups returns the catalog groups to screen or the default.
func (c *RunConfig) GetSourceGroups() []string {
	if len(c.SourceGroups) == 0 {
		return []string{"ACTIVE"}
	}
	return c.SourceGroups
}

// GetMaxObjects returns the object cap; 0 means unlimited.
func (c *RunConfig) GetMaxObjects() int {
	if c.MaxObjects == nil {
		return 0
	}
	return *c.MaxObjects
}

// GetStart returns the run start instant; an unset field means "now",
// truncated to the second for reproducible grids.
func (c *RunConfig) GetStart(now time.Time) time.Time {
	if c.StartUTC == nil || *c.StartUTC == "" {
		return now.UTC().Truncate(time.Second)
	}
	t, err := time.Parse(time.RFC3339, *c.StartUTC)
	if err != nil {
		return now.UTC().Truncate(time.Second)
	}
	return t.UTC()
}

func (c *RunConfig) GetHorizon() time.Duration    { return c.duration(c.Horizon, 72*time.Hour) }
func (c *RunConfig) GetCoarseStep() time.Duration { return c.duration(c.CoarseStep, 10*time.Minute) }
func (c *RunConfig) GetFineStep() time.Duration   { return c.duration(c.FineStep, time.Minute) }

// GetRefineHalfSteps returns the refinement half-width in coarse steps.
func (c *RunConfig) GetRefineHalfSteps() int {
	if c.RefineHalfSteps == nil {
		return 2
	}
	return *c.RefineHalfSteps
}

// GetVoxelEdgeM returns the candidate-index voxel edge in meters.
func (c *RunConfig) GetVoxelEdgeM() float64 {
	if c.VoxelEdgeM == nil {
		return 50e3
	}
	return *c.VoxelEdgeM
}

// GetWorkers returns the worker count; 0 lets the pipeline size itself.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

func (c *RunConfig) GetSigmaModel() string {
	if c.SigmaModel == nil {
		return "isotropic"
	}
	return *c.SigmaModel
}

func (c *RunConfig) GetHardBodyRadiusM() float64 {
	if c.HardBodyRadiusM == nil {
		return 20
	}
	return *c.HardBodyRadiusM
}

func (c *RunConfig) GetSigmaPayloadM() float64 {
	if c.SigmaPayloadM == nil {
		return 500
	}
	return *c.SigmaPayloadM
}

func (c *RunConfig) GetSigmaDebrisM() float64 {
	if c.SigmaDebrisM == nil {
		return 2000
	}
	return *c.SigmaDebrisM
}

// GetPayloadSigmaRTNM returns [r, t, n] sigmas for payloads.
func (c *RunConfig) GetPayloadSigmaRTNM() [3]float64 {
	if len(c.PayloadSigmaRTNM) == 3 {
		return [3]float64{c.PayloadSigmaRTNM[0], c.PayloadSigmaRTNM[1], c.PayloadSigmaRTNM[2]}
	}
	return [3]float64{200, 600, 200}
}

// GetDebrisSigmaRTNM returns [r, t, n] sigmas for debris.
func (c *RunConfig) GetDebrisSigmaRTNM() [3]float64 {
	if len(c.DebrisSigmaRTNM) == 3 {
		return [3]float64{c.DebrisSigmaRTNM[0], c.DebrisSigmaRTNM[1], c.DebrisSigmaRTNM[2]}
	}
	return [3]float64{800, 2400, 800}
}

func (c *RunConfig) GetAlongTrackGrowthMS() float64 {
	if c.AlongTrackGrowthMS == nil {
		return 0.5
	}
	return *c.AlongTrackGrowthMS
}

func (c *RunConfig) GetSigmaFloorM() float64 {
	if c.SigmaFloorM == nil {
		return 1
	}
	return *c.SigmaFloorM
}

func (c *RunConfig) GetTopK() int {
	if c.TopK == nil {
		return 20
	}
	return *c.TopK
}

func (c *RunConfig) GetTrendWindow() time.Duration  { return c.duration(c.TrendWindow, 30*time.Minute) }
func (c *RunConfig) GetTrendCadence() time.Duration { return c.duration(c.TrendCadence, time.Minute) }

func (c *RunConfig) GetPcThreshold() float64 {
	if c.PcThreshold == nil {
		return 1e-5
	}
	return *c.PcThreshold
}

func (c *RunConfig) GetPcCritical() float64 {
	if c.PcCritical == nil {
		return 1e-3
	}
	return *c.PcCritical
}

func (c *RunConfig) GetStabilityMin() float64 {
	if c.StabilityMin == nil {
		return 0.3
	}
	return *c.StabilityMin
}

func (c *RunConfig) GetDeferHorizon() time.Duration  { return c.duration(c.DeferHorizon, 12*time.Hour) }
func (c *RunConfig) GetDeferRevisit() time.Duration  { return c.duration(c.DeferRevisit, 6*time.Hour) }
func (c *RunConfig) GetDeferTCAGuard() time.Duration { return c.duration(c.DeferTCAGuard, 2*time.Hour) }

// GetBurnOffsets returns the candidate burn lead times before TCA.
func (c *RunConfig) GetBurnOffsets() []time.Duration {
	if len(c.BurnOffsets) == 0 {
		return []time.Duration{24 * time.Hour, 12 * time.Hour, 6 * time.Hour, 2 * time.Hour}
	}
	out := make([]time.Duration, 0, len(c.BurnOffsets))
	for _, s := range c.BurnOffsets {
		d, err := time.ParseDuration(s)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *RunConfig) GetMaxDeltaVMPS() float64 {
	if c.MaxDeltaVMPS == nil {
		return 0.5
	}
	return *c.MaxDeltaVMPS
}

func (c *RunConfig) GetTargetMissM() float64 {
	if c.TargetMissM == nil {
		return 5000
	}
	return *c.TargetMissM
}

func (c *RunConfig) GetLateBurnLead() time.Duration {
	return c.duration(c.LateBurnLead, 30*time.Minute)
}
func (c *RunConfig) GetEvalWindow() time.Duration { return c.duration(c.EvalWindow, 15*time.Minute) }
func (c *RunConfig) GetEvalStep() time.Duration   { return c.duration(c.EvalStep, time.Minute) }

func (c *RunConfig) GetBisectIterations() int {
	if c.BisectIterations == nil {
		return 12
	}
	return *c.BisectIterations
}

func (c *RunConfig) GetArtifactDir() string {
	if c.ArtifactDir == nil || *c.ArtifactDir == "" {
		return "artifacts"
	}
	return *c.ArtifactDir
}

// GetSnapshotStride returns the timestep downsample stride for the
// visualization snapshot.
func (c *RunConfig) GetSnapshotStride() int {
	if c.SnapshotStride == nil || *c.SnapshotStride < 1 {
		return 5
	}
	return *c.SnapshotStride
}

// GetSnapshotMaxObjects caps how many objects the snapshot carries.
func (c *RunConfig) GetSnapshotMaxObjects() int {
	if c.SnapshotMaxObjects == nil || *c.SnapshotMaxObjects < 2 {
		return 60
	}
	return *c.SnapshotMaxObjects
}
