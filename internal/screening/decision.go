package screening

// Action is what the decision collaborator ultimately recommends for one
// evaluated event.
type Action string

const (
	ActionNone     Action = "NONE"     // gate said ignore or defer
	ActionExecute  Action = "EXECUTE"  // burn the selected plan
	ActionEscalate Action = "ESCALATE" // maneuver warranted but no feasible plan
)

// EconomicParams carries the operator-side cost inputs a policy may weigh.
// The screening pipeline itself never consumes these; they exist so policies
// downstream of the gate share one vocabulary.
type EconomicParams struct {
	DeltaVCostPerMPS  float64 // operational cost per m/s expended
	CollisionLoss     float64 // expected loss of the primary asset
	FalseAlarmPenalty float64 // cost of an unnecessary maneuver
}

// Policy maps an evaluated event to an action. The pipeline stops at the
// EventDecision boundary; anything weighing economics against risk is a
// separate collaborator implementing this type.
type Policy func(d EventDecision, p EconomicParams) Action

// ConservativePolicy executes every feasible plan the gate asked for and
// escalates when planning came up empty. It ignores economics entirely, which
// is the right default when no cost model has been calibrated.
func ConservativePolicy(d EventDecision, _ EconomicParams) Action {
	if d.Trend.Decision != GateManeuver {
		return ActionNone
	}
	if d.Plan != nil && d.Plan.Feasibility == FeasibilityFeasible {
		return ActionExecute
	}
	return ActionEscalate
}
