// Command astraguard runs the batch conjunction screening pipeline: load the
// TLE catalog from SQLite, screen the horizon for close approaches, evaluate
// trend and maneuver decisions for the ranked events, and write the artifact
// set. With -ingest it instead loads a TLE file into the catalog and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AntAci/AstraGuard/internal/artifacts"
	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/config"
	"github.com/AntAci/AstraGuard/internal/db"
	"github.com/AntAci/AstraGuard/internal/frames"
	"github.com/AntAci/AstraGuard/internal/georisk"
	"github.com/AntAci/AstraGuard/internal/monitoring"
	"github.com/AntAci/AstraGuard/internal/screening"
)

var (
	configPath    = flag.String("config", "", "Path to run configuration JSON")
	dbPath        = flag.String("db", "", "Catalog database path (overrides config)")
	migrationsDir = flag.String("migrations", "migrations", "Schema migrations directory")
	ingestPath    = flag.String("ingest", "", "TLE file to ingest into the catalog, then exit")
	ingestGroup   = flag.String("group", "ACTIVE", "Source group label for -ingest")
	startUTC      = flag.String("start", "", "Screening start instant, RFC3339 (overrides config)")
	horizon       = flag.String("horizon", "", "Screening horizon, e.g. 72h (overrides config)")
	topK          = flag.Int("topk", 0, "Ranked event count (overrides config)")
	artifactDir   = flag.String("artifacts", "", "Artifact output directory (overrides config)")
)

func main() {
	flag.Parse()
	if err := run(context.Background()); err != nil {
		monitoring.Logf("[FATAL] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.New(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(*migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	store := catalog.NewStore(database)
	if *ingestPath != "" {
		return ingest(ctx, store, *ingestPath, *ingestGroup)
	}
	return screen(ctx, store, cfg)
}

// loadConfig reads the optional config file and layers the command-line
// overrides on top.
func loadConfig() (*config.RunConfig, error) {
	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if *startUTC != "" {
		cfg.StartUTC = startUTC
	}
	if *horizon != "" {
		cfg.Horizon = horizon
	}
	if *topK > 0 {
		cfg.TopK = topK
	}
	if *artifactDir != "" {
		cfg.ArtifactDir = artifactDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func ingest(ctx context.Context, store *catalog.Store, path, group string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read TLE file: %w", err)
	}
	objects, err := store.SaveRaw(ctx, string(raw), group, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	monitoring.Logf("[INFO] ingested %d objects from %s into group %s", len(objects), path, group)
	return nil
}

func axisSigmas(v [3]float64) screening.AxisSigmas {
	return screening.AxisSigmas{R: v[0], T: v[1], N: v[2]}
}

func screen(ctx context.Context, store *catalog.Store, cfg *config.RunConfig) error {
	objects, err := store.LoadLatest(ctx, cfg.GetSourceGroups(), cfg.GetMaxObjects())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	now := time.Now()
	runCfg := screening.Config{
		Start:      cfg.GetStart(now),
		Horizon:    cfg.GetHorizon(),
		CoarseStep: cfg.GetCoarseStep(),
		VoxelEdgeM: cfg.GetVoxelEdgeM(),
		TopK:       cfg.GetTopK(),
		Workers:    cfg.GetWorkers(),
		Refine: screening.RefineConfig{
			HalfWidthSteps: cfg.GetRefineHalfSteps(),
			FineStep:       cfg.GetFineStep(),
		},
		Risk: screening.RiskConfig{
			Model:              screening.SigmaModel(cfg.GetSigmaModel()),
			HardBodyRadiusM:    cfg.GetHardBodyRadiusM(),
			SigmaPayloadM:      cfg.GetSigmaPayloadM(),
			SigmaDebrisM:       cfg.GetSigmaDebrisM(),
			PayloadAxes:        axisSigmas(cfg.GetPayloadSigmaRTNM()),
			DebrisAxes:         axisSigmas(cfg.GetDebrisSigmaRTNM()),
			AlongTrackGrowthMS: cfg.GetAlongTrackGrowthMS(),
			SigmaFloorM:        cfg.GetSigmaFloorM(),
		},
		Trend: screening.TrendConfig{
			Window:           cfg.GetTrendWindow(),
			Cadence:          cfg.GetTrendCadence(),
			Threshold:        cfg.GetPcThreshold(),
			CriticalOverride: cfg.GetPcCritical(),
			StabilityMin:     cfg.GetStabilityMin(),
			DeferHorizon:     cfg.GetDeferHorizon(),
			DeferRevisit:     cfg.GetDeferRevisit(),
			DeferTCAGuard:    cfg.GetDeferTCAGuard(),
		},
		Maneuver: screening.ManeuverConfig{
			BurnOffsets:      cfg.GetBurnOffsets(),
			Directions:       screening.DefaultBurnDirections(),
			MaxDeltaVMPS:     cfg.GetMaxDeltaVMPS(),
			TargetMissM:      cfg.GetTargetMissM(),
			LateBurnLead:     cfg.GetLateBurnLead(),
			EvalWindow:       cfg.GetEvalWindow(),
			EvalStep:         cfg.GetEvalStep(),
			BisectIterations: cfg.GetBisectIterations(),
		},
	}

	res, err := screening.Run(runCfg, objects)
	if err != nil {
		return err
	}

	// Decisions are evaluated against the grid start so a re-run over the
	// same catalog and start reproduces the same artifact set.
	decisionTime := runCfg.Start
	trackIdx := make(map[int]int, len(res.Tracks))
	for i, tr := range res.Tracks {
		trackIdx[tr.CatalogID] = i
	}

	requiredIDs := make(map[int]bool)
	decisions := make([]screening.EventDecision, 0, len(res.TopEvents))
	for _, ev := range res.TopEvents {
		requiredIDs[ev.PrimaryID] = true
		requiredIDs[ev.SecondaryID] = true

		decision, err := screening.EvaluateEvent(res.Objects, ev, decisionTime, runCfg)
		if err != nil {
			monitoring.Logf("[WARN] decision for %s failed: %v", ev.EventID, err)
			continue
		}
		decisions = append(decisions, decision)

		if i, ok := trackIdx[ev.PrimaryID]; ok {
			tca := res.Grid.At(ev.TCAGridIndex)
			ecef := frames.EciToEcef(res.Tracks[i].Positions[ev.TCAGridIndex], tca)
			ground := georisk.ScoreECEF(ecef)
			monitoring.Logf("[INFO] event %s gate=%s ground impact %.2f (zone %q, %.0f km)",
				ev.EventID, decision.Trend.Decision, ground.Impact, ground.NearestZone, ground.ZoneDistanceKM)
		}
	}

	return writeArtifacts(res, decisions, requiredIDs, cfg)
}

func writeArtifacts(res *screening.Result, decisions []screening.EventDecision, requiredIDs map[int]bool, cfg *config.RunConfig) error {
	dir := cfg.GetArtifactDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	generatedAt := time.Now().UTC()

	snap := artifacts.BuildSnapshot(res, artifacts.SnapshotConfig{
		Stride:     cfg.GetSnapshotStride(),
		MaxObjects: cfg.GetSnapshotMaxObjects(),
	}, requiredIDs, generatedAt)
	snapPath, err := artifacts.WriteSnapshot(dir, snap)
	if err != nil {
		return err
	}

	kept, dropped := artifacts.ValidateEventLinks(res.TopEvents, snap)
	if dropped > 0 {
		monitoring.Logf("[WARN] %d of %d top events not linkable in snapshot", dropped, len(res.TopEvents))
	}
	jsonPath, csvPath, err := artifacts.WriteTopConjunctions(dir, kept, generatedAt)
	if err != nil {
		return err
	}

	plansPath, err := artifacts.WriteManeuverPlans(dir, decisions, generatedAt)
	if err != nil {
		return err
	}

	_, err = artifacts.WriteManifest(dir, res.Report.RunID, map[string]string{
		"top_conjunctions":     jsonPath,
		"top_conjunctions_csv": csvPath,
		"orbits_snapshot":      snapPath,
		"maneuver_plans":       plansPath,
	}, generatedAt)
	return err
}
