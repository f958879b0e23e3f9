package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/logger"
)

const (
	DefaultPulse    = 250 * time.Millisecond
	DefaultVelocity = 0.1
)

// Report is the outcome of the most recent self-test.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	StatusOK   bool
	Wheels     [consts.WheelCount]bool
}

// Passed reports whether every check succeeded.
func (r Report) Passed() bool {
	if !r.StatusOK {
		return false
	}
	for _, ok := range r.Wheels {
		if !ok {
			return false
		}
	}
	return true
}

// Runner is the bring-up self-test. It re-probes the status source and then
// pulses each wheel in turn at low velocity.
type Runner struct {
	rover    *hardware.Rover
	pulse    time.Duration
	velocity float64

	mu   sync.Mutex
	last Report
	runs int
}

func New(rover *hardware.Rover) *Runner {
	return &Runner{rover: rover, pulse: DefaultPulse, velocity: DefaultVelocity}
}

// Run executes the self-test. The drive base is stopped on return,
// including when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	drive := r.rover.Drive()
	defer drive.Stop()

	report := Report{StartedAt: time.Now()}
	defer func() {
		report.FinishedAt = time.Now()
		r.mu.Lock()
		r.last = report
		r.runs++
		runs := r.runs
		r.mu.Unlock()
		if !report.Passed() && ctx.Err() == nil {
			logger.Log.Warn("Diagnostic: Self-test incomplete", "run", runs, "status_ok", report.StatusOK, "wheels", report.Wheels)
		}
	}()

	logger.Log.Info("Diagnostic: Self-test started", "rover", r.rover.ID())

	if err := r.rover.Status().Probe(ctx); err != nil {
		return fmt.Errorf("status source self-test: %w", err)
	}
	report.StatusOK = true

	for wheel := 0; wheel < consts.WheelCount; wheel++ {
		drive.Stop()
		if err := drive.SetWheel(wheel, r.velocity); err != nil {
			return fmt.Errorf("wheel %d: %w", wheel, err)
		}
		if err := pause(ctx, r.pulse); err != nil {
			return err
		}
		if got := drive.TargetVelocity()[wheel]; got != r.velocity {
			return fmt.Errorf("wheel %d: target %v, read back %v", wheel, r.velocity, got)
		}
		report.Wheels[wheel] = true
		logger.Log.Debug("Diagnostic: Wheel ok", "wheel", wheel)
	}

	logger.Log.Info("Diagnostic: Self-test passed", "rover", r.rover.ID())
	return nil
}

// lastReport returns the report of the most recent run and the total number of runs.
func (r *Runner) lastReport() (Report, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.runs
}

func pause(ctx context.Context, d time.Duration) error {
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
