package mission

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/logger"
)

// AutonomousNavigation drives a fixed leg sequence toward a target post.
type AutonomousNavigation struct {
	phased
}

func NewAutonomousNavigation(rover *hardware.Rover) *AutonomousNavigation {
	return &AutonomousNavigation{phased: newPhased(consts.MissionAutonomousNavigation, rover, []phase{
		{name: "depart", left: 0.3, right: 0.3, hold: 2 * time.Second},
		{name: "traverse", left: 0.8, right: 0.8, hold: 10 * time.Second},
		{name: "correct-heading", left: 0.4, right: 0.2, hold: time.Second},
		{name: "approach", left: 0.2, right: 0.2, hold: 3 * time.Second},
	})}
}

func (m *AutonomousNavigation) Run(ctx context.Context) error { return m.run(ctx) }

// EquipmentServicing approaches a panel and holds still while the arm works.
type EquipmentServicing struct {
	phased
}

func NewEquipmentServicing(rover *hardware.Rover) *EquipmentServicing {
	return &EquipmentServicing{phased: newPhased(consts.MissionEquipmentServicing, rover, []phase{
		{name: "approach-panel", left: 0.3, right: 0.3, hold: 4 * time.Second},
		{name: "align", left: 0.1, right: -0.1, hold: time.Second},
		{name: "service", hold: 15 * time.Second},
		{name: "back-off", left: -0.2, right: -0.2, hold: 2 * time.Second},
	})}
}

func (m *EquipmentServicing) Run(ctx context.Context) error { return m.run(ctx) }

// ExtremeRetrievalDelivery fetches an object and carries it to a drop point.
type ExtremeRetrievalDelivery struct {
	phased
}

func NewExtremeRetrievalDelivery(rover *hardware.Rover) *ExtremeRetrievalDelivery {
	return &ExtremeRetrievalDelivery{phased: newPhased(consts.MissionExtremeRetrievalDelivery, rover, []phase{
		{name: "to-pickup", left: 0.7, right: 0.7, hold: 8 * time.Second},
		{name: "pickup", hold: 5 * time.Second},
		{name: "to-dropoff", left: 0.6, right: 0.6, hold: 8 * time.Second},
		{name: "dropoff", hold: 3 * time.Second},
	})}
}

func (m *ExtremeRetrievalDelivery) Run(ctx context.Context) error { return m.run(ctx) }

// Science drives to a site, collects a sample and returns.
type Science struct {
	phased
	samples atomic.Int64
}

func NewScience(rover *hardware.Rover) *Science {
	return &Science{phased: newPhased(consts.MissionScience, rover, []phase{
		{name: "to-site", left: 0.5, right: 0.5, hold: 6 * time.Second},
		{name: "collect", hold: 10 * time.Second},
		{name: "return", left: -0.5, right: -0.5, hold: 6 * time.Second},
	})}
}

func (m *Science) Run(ctx context.Context) error {
	if err := m.run(ctx); err != nil {
		return err
	}
	logger.Log.Info("Mission: Sample collected", "mission", m.kind, "total", m.samples.Add(1))
	return nil
}

// Personal.AI order the ending
