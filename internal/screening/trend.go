package screening

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/AntAci/AstraGuard/internal/catalog"
	"github.com/AntAci/AstraGuard/internal/orbit"
)

// GateDecision is the trend classifier's three-way output.
type GateDecision string

const (
	GateIgnore   GateDecision = "IGNORE"
	GateDefer    GateDecision = "DEFER"
	GateManeuver GateDecision = "MANEUVER"
)

// TrendConfig parametrizes the local risk-trend window and the gate
// thresholds.
type TrendConfig struct {
	Window           time.Duration // half-window either side of TCA
	Cadence          time.Duration // fine sampling cadence
	Threshold        float64       // base maneuver-consideration Pc
	CriticalOverride float64       // Pc forcing MANEUVER regardless of trend
	StabilityMin     float64       // minimum sustained fraction near peak
	DeferHorizon     time.Duration // time-to-TCA beyond which DEFER is allowed
	DeferRevisit     time.Duration // re-check delay for deferred events
	DeferTCAGuard    time.Duration // never defer past TCA minus this guard
}

// TrendSample is one point of the local Pc time series.
type TrendSample struct {
	At    time.Time `json:"t_utc"`
	MissM float64   `json:"miss_m"`
	Pc    float64   `json:"pc"`
}

// TrendMetrics summarizes how risk behaves across the local window. It is
// derived state: recomputed per decision request so it always reflects the
// thresholds in force, never persisted on the event.
type TrendMetrics struct {
	PcPeak           float64       `json:"pc_peak"`
	PcSlope          float64       `json:"pc_slope"` // d(log10 Pc)/dt, per second
	PcStability      float64       `json:"pc_stability"`
	SampleCount      int           `json:"sample_count"`
	TimeToTCA        time.Duration `json:"time_to_tca_ns"`
	Threshold        float64       `json:"threshold"`
	CriticalOverride float64       `json:"critical_override"`
}

// TrendEvaluation is the classifier's full output for one event.
type TrendEvaluation struct {
	Series     []TrendSample `json:"pc_series"`
	Metrics    TrendMetrics  `json:"trend_metrics"`
	Decision   GateDecision  `json:"decision"`
	ReasonCode string        `json:"reason_code"`
	DeferUntil *time.Time    `json:"defer_until_utc,omitempty"`
}

// stabilityCutoffFraction defines "near peak" for the stability measure.
const stabilityCutoffFraction = 0.5

// BuildTrendSeries re-propagates a pair across a short window centered on
// TCA at fine cadence and scores each sample. Along-track uncertainty growth
// (anisotropic model) is evaluated against the sample's offset from TCA.
func BuildTrendSeries(elA, elB orbit.Elements, classA, classB catalog.Class, tca time.Time, tc TrendConfig, rc RiskConfig) ([]TrendSample, error) {
	start := tca.Add(-tc.Window)
	end := tca.Add(tc.Window)
	times := fineTimes(start, end, tc.Cadence)

	samples := make([]TrendSample, 0, len(times))
	for _, at := range times {
		stA, err := orbit.StateAt(elA, at)
		if err != nil {
			return nil, err
		}
		stB, err := orbit.StateAt(elB, at)
		if err != nil {
			return nil, err
		}
		miss := stA.Position.Sub(stB.Position).Norm()
		sigma, _ := rc.CombinedSigma(classA, classB, at.Sub(tca))
		samples = append(samples, TrendSample{
			At:    at,
			MissM: miss,
			Pc:    CollisionProbability(miss, sigma, rc.HardBodyRadiusM),
		})
	}
	return samples, nil
}

// ComputeTrendMetrics reduces a Pc series to the gate inputs: peak, the
// log-probability slope from a least-squares fit, and the fraction of
// samples sustained near peak.
func ComputeTrendMetrics(series []TrendSample, tca, now time.Time, tc TrendConfig) TrendMetrics {
	m := TrendMetrics{
		SampleCount:      len(series),
		TimeToTCA:        tca.Sub(now),
		Threshold:        tc.Threshold,
		CriticalOverride: tc.CriticalOverride,
	}
	if len(series) == 0 {
		return m
	}

	const eps = 1e-16
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	t0 := series[0].At
	for i, s := range series {
		xs[i] = s.At.Sub(t0).Seconds()
		pc := math.Max(0, s.Pc)
		ys[i] = math.Log10(pc + eps)
		if pc > m.PcPeak {
			m.PcPeak = pc
		}
	}

	if m.PcPeak > 0 {
		cutoff := stabilityCutoffFraction * m.PcPeak
		near := 0
		for _, s := range series {
			if s.Pc >= cutoff {
				near++
			}
		}
		m.PcStability = float64(near) / float64(len(series))
	}

	if len(series) >= 2 && xs[len(xs)-1] > xs[0] {
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		if !math.IsNaN(slope) && !math.IsInf(slope, 0) {
			m.PcSlope = slope
		}
	}
	return m
}

// ClassifyGate applies the trend gate state machine:
//
//  1. peak at or above the critical override forces MANEUVER; the safety
//     override wins over any stability argument;
//  2. peak below the base threshold is IGNORE;
//  3. an unsustained peak with enough time left is DEFER with a re-check;
//  4. everything else is MANEUVER.
//
// Pure: identical metrics and clock always reproduce the same decision.
func ClassifyGate(m TrendMetrics, tca, now time.Time, tc TrendConfig) (GateDecision, string, *time.Time) {
	if m.PcPeak >= tc.CriticalOverride {
		return GateManeuver, "CRITICAL_OVERRIDE", nil
	}
	if m.PcPeak < tc.Threshold {
		return GateIgnore, "BELOW_THRESHOLD", nil
	}
	if m.PcStability < tc.StabilityMin && m.TimeToTCA > tc.DeferHorizon {
		until := deferUntil(tca, now, tc)
		return GateDefer, "UNSTABLE_FAR_FROM_TCA", &until
	}
	return GateManeuver, "SUSTAINED_RISK", nil
}

// deferUntil picks the re-check time for a deferred event: the earlier of
// "revisit after the configured delay" and "last safe look before TCA",
// floored at ten minutes from now so a defer can never resolve immediately.
func deferUntil(tca, now time.Time, tc TrendConfig) time.Time {
	guard := tca.Add(-tc.DeferTCAGuard)
	revisit := now.Add(tc.DeferRevisit)
	until := minTime(guard, revisit)
	if floor := now.Add(10 * time.Minute); until.Before(floor) {
		until = floor
	}
	return until.UTC()
}

// EvaluateTrend runs the full trend classification for one event pair.
func EvaluateTrend(elA, elB orbit.Elements, classA, classB catalog.Class, event ConjunctionEvent, now time.Time, tc TrendConfig, rc RiskConfig) (TrendEvaluation, error) {
	series, err := BuildTrendSeries(elA, elB, classA, classB, event.TCA, tc, rc)
	if err != nil {
		return TrendEvaluation{}, err
	}
	metrics := ComputeTrendMetrics(series, event.TCA, now, tc)
	decision, reason, until := ClassifyGate(metrics, event.TCA, now, tc)
	return TrendEvaluation{
		Series:     series,
		Metrics:    metrics,
		Decision:   decision,
		ReasonCode: reason,
		DeferUntil: until,
	}, nil
}
