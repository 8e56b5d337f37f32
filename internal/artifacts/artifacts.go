// Package artifacts writes the durable outputs of a screening run: the top
// conjunctions (JSON and CSV), the Earth-fixed visualization snapshot, the
// maneuver plan set, and a sha256 manifest tying them together.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AntAci/AstraGuard/internal/monitoring"
	"github.com/AntAci/AstraGuard/internal/screening"
)

// SchemaVersion tags every artifact payload. Bump on any field change a
// consumer could notice.
const SchemaVersion = "1.0"

// Artifact file names within the output directory.
const (
	TopConjunctionsJSONName = "top_conjunctions.json"
	TopConjunctionsCSVName  = "top_conjunctions.csv"
	SnapshotName            = "orbits_snapshot.json"
	ManeuverPlansName       = "maneuver_plans.json"
	ManifestName            = "artifacts_latest.json"
)

func writeJSON(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	monitoring.Logf("[INFO] wrote %s", path)
	return nil
}

// TopConjunctions is the ranked event artifact.
type TopConjunctions struct {
	GeneratedAt   time.Time                    `json:"generated_at_utc"`
	SchemaVersion string                       `json:"schema_version"`
	ModelVersion  string                       `json:"model_version"`
	EventCount    int                          `json:"event_count"`
	Events        []screening.ConjunctionEvent `json:"events"`
}

// WriteTopConjunctions writes the ranked events as JSON and a flat CSV with
// identical content. Returns both paths.
func WriteTopConjunctions(dir string, events []screening.ConjunctionEvent, generatedAt time.Time) (jsonPath, csvPath string, err error) {
	jsonPath = filepath.Join(dir, TopConjunctionsJSONName)
	csvPath = filepath.Join(dir, TopConjunctionsCSVName)

	artifact := TopConjunctions{
		GeneratedAt:   generatedAt.UTC(),
		SchemaVersion: SchemaVersion,
		ModelVersion:  screening.ModelVersion,
		EventCount:    len(events),
		Events:        events,
	}
	if err := writeJSON(jsonPath, artifact); err != nil {
		return "", "", err
	}

	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"schema_version", "event_id", "primary_id", "secondary_id",
		"tca_utc", "tca_grid_index", "miss_distance_m", "relative_speed_mps",
		"pc_assumed", "risk_tier", "window_start_utc", "window_end_utc",
		"model_version",
	}
	if err := w.Write(header); err != nil {
		return "", "", err
	}
	for _, ev := range events {
		row := []string{
			SchemaVersion,
			ev.EventID,
			strconv.Itoa(ev.PrimaryID),
			strconv.Itoa(ev.SecondaryID),
			ev.TCA.UTC().Format(time.RFC3339),
			strconv.Itoa(ev.TCAGridIndex),
			strconv.FormatFloat(ev.MissDistanceM, 'f', 3, 64),
			strconv.FormatFloat(ev.RelativeSpeedMPS, 'f', 3, 64),
			strconv.FormatFloat(ev.PcAssumed, 'e', 6, 64),
			screening.RiskTier(ev.PcAssumed),
			ev.WindowStart.UTC().Format(time.RFC3339),
			ev.WindowEnd.UTC().Format(time.RFC3339),
			ev.ModelVersion,
		}
		if err := w.Write(row); err != nil {
			return "", "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("flush %s: %w", csvPath, err)
	}
	monitoring.Logf("[INFO] wrote %s", csvPath)
	return jsonPath, csvPath, nil
}

// ManeuverPlans is the per-event decision artifact: trend gate outcome plus
// the selected plan for maneuver-gated events.
type ManeuverPlans struct {
	GeneratedAt   time.Time                 `json:"generated_at_utc"`
	SchemaVersion string                    `json:"schema_version"`
	ModelVersion  string                    `json:"model_version"`
	Decisions     []screening.EventDecision `json:"decisions"`
}

// WriteManeuverPlans writes the decision artifact.
func WriteManeuverPlans(dir string, decisions []screening.EventDecision, generatedAt time.Time) (string, error) {
	path := filepath.Join(dir, ManeuverPlansName)
	artifact := ManeuverPlans{
		GeneratedAt:   generatedAt.UTC(),
		SchemaVersion: SchemaVersion,
		ModelVersion:  screening.ModelVersion,
		Decisions:     decisions,
	}
	if err := writeJSON(path, artifact); err != nil {
		return "", err
	}
	return path, nil
}
