package mission

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/logger"
)

// Program is a top-level rover behavior. Run executes to natural completion
// or until ctx is cancelled, and leaves the drive base stopped either way.
type Program interface {
	Run(ctx context.Context) error
}

// Factory constructs a program around the shared hardware handle.
type Factory func(rover *hardware.Rover) Program

// DefaultFactories returns the constructors for every mission kind.
func DefaultFactories() map[consts.MissionKind]Factory {
	return map[consts.MissionKind]Factory{
		consts.MissionAutonomousNavigation:     func(r *hardware.Rover) Program { return NewAutonomousNavigation(r) },
		consts.MissionEquipmentServicing:       func(r *hardware.Rover) Program { return NewEquipmentServicing(r) },
		consts.MissionExtremeRetrievalDelivery: func(r *hardware.Rover) Program { return NewExtremeRetrievalDelivery(r) },
		consts.MissionScience:                  func(r *hardware.Rover) Program { return NewScience(r) },
	}
}

// phase is one drive profile held for a fixed time.
type phase struct {
	name        string
	left, right float64
	hold        time.Duration
}

// phased runs a fixed sequence of drive phases. Every variant embeds it.
type phased struct {
	kind   consts.MissionKind
	rover  *hardware.Rover
	phases []phase

	// pace scales every hold; 1 is real time.
	pace float64
}

func newPhased(kind consts.MissionKind, rover *hardware.Rover, phases []phase) phased {
	return phased{kind: kind, rover: rover, phases: phases, pace: 1}
}

func (p *phased) run(ctx context.Context) error {
	drive := p.rover.Drive()
	defer drive.Stop()

	log := logger.Log.With("mission", p.kind)
	log.Info("Mission: Started", "phases", len(p.phases), "nominal", p.duration())
	for i, ph := range p.phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("Mission: Phase", "index", i, "phase", ph.name)
		if err := drive.Drive(ph.left, ph.right); err != nil {
			return fmt.Errorf("%s phase %q: %w", p.kind, ph.name, err)
		}
		if err := hold(ctx, time.Duration(float64(ph.hold)*p.pace)); err != nil {
			log.Warn("Mission: Interrupted, stopping drive", "phase", ph.name)
			return err
		}
	}
	return nil
}

// duration is the nominal time the program takes at the current pace.
func (p *phased) duration() time.Duration {
	var total time.Duration
	for _, ph := range p.phases {
		total += time.Duration(float64(ph.hold) * p.pace)
	}
	return total
}

func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Personal.AI order the ending
