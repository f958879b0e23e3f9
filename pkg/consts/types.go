package consts

import (
	"strings"
	"time"
)

// OperatingMode is the coarse hardware state reported by the rover.
type OperatingMode string

const (
	ModeNormal     OperatingMode = "normal"     // Mission selection is honored
	ModeDiagnostic OperatingMode = "diagnostic" // Bring-up/self-test, overrides any mission
)

// ParseOperatingMode normalizes a configured mode string. An empty value
// means normal. Unrecognized values are returned as-is so callers can
// report them.
func ParseOperatingMode(raw string) OperatingMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "normal", "":
		return ModeNormal
	case "diagnostic", "test", "test_mode":
		return ModeDiagnostic
	default:
		return OperatingMode(strings.TrimSpace(raw))
	}
}

// ParseReportedMode parses the mode carried by a status frame. A frame
// without a mode is unrecognized rather than normal.
func ParseReportedMode(raw string) OperatingMode {
	if strings.TrimSpace(raw) == "" {
		return OperatingMode("")
	}
	return ParseOperatingMode(raw)
}

// Known reports whether m is one of the defined operating modes.
func (m OperatingMode) Known() bool {
	return m == ModeNormal || m == ModeDiagnostic
}

// MissionKind identifies the mission currently commanded by the operator.
type MissionKind string

const (
	MissionNone                     MissionKind = "none"
	MissionAutonomousNavigation     MissionKind = "autonomous_navigation"
	MissionEquipmentServicing       MissionKind = "equipment_servicing"
	MissionExtremeRetrievalDelivery MissionKind = "extreme_retrieval_delivery"
	MissionScience                  MissionKind = "science"
)

// Missions lists every dispatchable mission kind in registry order.
var Missions = []MissionKind{
	MissionAutonomousNavigation,
	MissionEquipmentServicing,
	MissionExtremeRetrievalDelivery,
	MissionScience,
}

// ParseMissionKind normalizes a raw mission identifier. The short aliases
// used by the base station are accepted. Anything else is preserved verbatim.
func ParseMissionKind(raw string) MissionKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return MissionNone
	case "autonomous_navigation", "autonomous", "navigation":
		return MissionAutonomousNavigation
	case "equipment_servicing", "servicing":
		return MissionEquipmentServicing
	case "extreme_retrieval_delivery", "retrieval", "delivery":
		return MissionExtremeRetrievalDelivery
	case "science":
		return MissionScience
	default:
		return MissionKind(strings.TrimSpace(raw))
	}
}

// SupervisorState is the lifecycle state of the mission supervisor.
type SupervisorState string

const (
	StateIdle              SupervisorState = "IDLE"
	StateRunningDiagnostic SupervisorState = "RUNNING_DIAGNOSTIC"
	StateRunningMission    SupervisorState = "RUNNING_MISSION"
)

// Supervisor events
const (
	EventDispatchDiagnostic = "dispatch_diagnostic"
	EventDispatchMission    = "dispatch_mission"
	EventComplete           = "complete"
)

// Run outcomes
const (
	OutcomeIdle      = "idle"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomePreempted = "preempted"
	OutcomeHeld      = "held" // Previous run failed, awaiting a fresh command
)

// Hardware status source kinds
const (
	SourceMemory = "memory"
	SourceFile   = "file"
	SourceMQTT   = "mqtt"
	SourceSocket = "socket"
)

const (
	EnvPrefix           = "ROVER_"
	EnvStatusSocketPath = "ROVER_STATUS_SOCK"
	DefaultTick         = 500 * time.Millisecond
	DefaultPreemptPoll  = 200 * time.Millisecond
	DefaultProbeTimeout = 5 * time.Second
	DefaultMaxStatusAge = 10 * time.Second
	DefaultRoverID      = "rover-01"
	WheelCount          = 6
)

// Personal.AI order the ending
