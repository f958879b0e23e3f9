package hardware

import (
	"context"
	"io"
	"time"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
)

// Rover is the shared hardware handle. The supervisor owns it for the
// process lifetime; mission programs and the diagnostic runner borrow it
// while they run.
type Rover struct {
	id     string
	status StatusSource
	drive  *DriveBase
}

// Open builds the hardware handle and probes the status source within
// timeout. Failure is a construction error: no hardware, no supervisor.
func Open(ctx context.Context, id string, status StatusSource, timeout time.Duration) (*Rover, error) {
	if status == nil {
		return nil, errors.New(errors.ErrCodeConstruction, "OpenHardware", "no status source configured", nil)
	}
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Log.Info("Hardware: Probing status source", "rover", id, "timeout", timeout)
	if err := status.Probe(probeCtx); err != nil {
		return nil, errors.New(errors.ErrCodeConstruction, "OpenHardware", "status source unreachable", err)
	}

	return &Rover{
		id:     id,
		status: status,
		drive:  NewDriveBase(),
	}, nil
}

func (r *Rover) ID() string { return r.id }

// Status returns the status source the handle reads from.
func (r *Rover) Status() StatusSource { return r.status }

func (r *Rover) Drive() *DriveBase { return r.drive }

func (r *Rover) OperatingMode(ctx context.Context) (consts.OperatingMode, error) {
	return r.status.OperatingMode(ctx)
}

func (r *Rover) CommandedMission(ctx context.Context) (consts.MissionKind, error) {
	return r.status.CommandedMission(ctx)
}

// Close stops the drive base and releases the status source if it holds resources.
func (r *Rover) Close() error {
	r.drive.Stop()
	if c, ok := r.status.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Personal.AI order the ending
