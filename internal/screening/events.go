package screening

import (
	"fmt"
	"sort"
	"time"

	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/orbit"
)

// ModelVersion tags events with the screening model revision. Bump when the
// propagation or scoring semantics change in a consumer-visible way.
const ModelVersion = "astraguard-orbit-1"

// ConjunctionEvent is the durable output record for one close approach.
// Events are immutable after assembly: re-running the pipeline produces a
// new generation of events, never updates.
type ConjunctionEvent struct {
	EventID          string    `json:"event_id"`
	PrimaryID        int       `json:"primary_id"`
	SecondaryID      int       `json:"secondary_id"`
	TCA              time.Time `json:"tca_utc"`
	TCAGridIndex     int       `json:"tca_grid_index"`
	MissDistanceM    float64   `json:"miss_distance_m"`
	RelativeSpeedMPS float64   `json:"relative_speed_mps"`
	PcAssumed        float64   `json:"pc_assumed"`
	WindowStart      time.Time `json:"window_start_utc"`
	WindowEnd        time.Time `json:"window_end_utc"`
	ModelVersion     string    `json:"model_version"`
}

// EventIDFor formats the canonical event identifier. The format is a
// contract boundary with downstream consumers and must not change without a
// version bump.
func EventIDFor(primaryID, secondaryID int, tca time.Time) string {
	return fmt.Sprintf("EVT-%d-%d-%s", primaryID, secondaryID, tca.UTC().Format(time.RFC3339))
}

// RiskTier buckets a probability for display purposes. Tiers are a derived
// view computed by consumers from the stored probability, never persisted on
// the event itself.
func RiskTier(pc float64) string {
	switch {
	case pc >= 1e-3:
		return "CRITICAL"
	case pc >= 1e-5:
		return "HIGH"
	case pc >= 1e-7:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// AssembleEvents turns scored approaches into canonical events: the
// debris-debris exclusion filter, canonical id ordering, identifier
// formatting, deterministic ranking, and top-K truncation.
//
// Ranking is probability descending, then miss distance ascending, then
// (primary, secondary) ascending so output is bit-for-bit reproducible even
// in the face of exact ties.
func AssembleEvents(scored []ScoredApproach, objects []catalog.Object, grid orbit.TimeGrid, topK int) (events []ConjunctionEvent, filteredDebris int) {
	events = make([]ConjunctionEvent, 0, len(scored))
	for _, s := range scored {
		a := objects[s.Approach.AIdx]
		b := objects[s.Approach.BIdx]

		// Events exist only for pairs with at least one active object.
		if a.Class == catalog.ClassDebris && b.Class == catalog.ClassDebris {
			filteredDebris++
			continue
		}

		primary, secondary := a.NoradID, b.NoradID
		if secondary < primary {
			primary, secondary = secondary, primary
		}

		tca := s.Approach.TCA.UTC()
		events = append(events, ConjunctionEvent{
			EventID:          EventIDFor(primary, secondary, tca),
			PrimaryID:        primary,
			SecondaryID:      secondary,
			TCA:              tca,
			TCAGridIndex:     grid.NearestIndex(tca),
			MissDistanceM:    s.Approach.MissDistance,
			RelativeSpeedMPS: s.Approach.RelSpeed,
			PcAssumed:        s.Pc,
			WindowStart:      s.Approach.WindowStart.UTC(),
			WindowEnd:        s.Approach.WindowEnd.UTC(),
			ModelVersion:     ModelVersion,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].PcAssumed != events[j].PcAssumed {
			return events[i].PcAssumed > events[j].PcAssumed
		}
		if events[i].MissDistanceM != events[j].MissDistanceM {
			return events[i].MissDistanceM < events[j].MissDistanceM
		}
		if events[i].PrimaryID != events[j].PrimaryID {
			return events[i].PrimaryID < events[j].PrimaryID
		}
		return events[i].SecondaryID < events[j].SecondaryID
	})

	if topK > 0 && len(events) > topK {
		events = events[:topK]
	}
	return events, filteredDebris
}
