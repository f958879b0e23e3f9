package supervisor

import (
	"context"

	"github.com/turtacn/Rover/pkg/consts"
)

// Unit is anything the supervisor can hand control to: a mission program
// or the diagnostic runner.
type Unit interface {
	Run(ctx context.Context) error
}

// DecisionKind tags which variant a Decision holds.
type DecisionKind int

const (
	DecisionIdle DecisionKind = iota
	DecisionDiagnostic
	DecisionMission
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionDiagnostic:
		return "diagnostic"
	case DecisionMission:
		return "mission"
	default:
		return "idle"
	}
}

// Decision is the single resolved choice for one cycle. At most one unit is
// ever named, so two programs cannot be selected together.
type Decision struct {
	Kind    DecisionKind
	Mode    consts.OperatingMode
	Mission consts.MissionKind
	Unit    Unit
	Reason  string

	// Err carries a non-fatal warning that led to an idle decision.
	Err error
}

// Key identifies the selection. Two decisions with the same key dispatch
// the same unit.
func (d Decision) Key() string {
	if d.Kind == DecisionMission {
		return "mission:" + string(d.Mission)
	}
	return d.Kind.String()
}

// UnitName is the label used in reports and metrics. Empty for idle.
func (d Decision) UnitName() string {
	switch d.Kind {
	case DecisionDiagnostic:
		return "diagnostic"
	case DecisionMission:
		return string(d.Mission)
	default:
		return ""
	}
}

func idle(mode consts.OperatingMode, mission consts.MissionKind, reason string, err error) Decision {
	return Decision{Kind: DecisionIdle, Mode: mode, Mission: mission, Reason: reason, Err: err}
}

// Personal.AI order the ending
