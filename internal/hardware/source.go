package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

// StatusSource exposes the rover's operating mode and the commanded mission.
// Both queries are read-only and are expected to be polled fresh every cycle.
type StatusSource interface {
	OperatingMode(ctx context.Context) (consts.OperatingMode, error)
	CommandedMission(ctx context.Context) (consts.MissionKind, error)
	// Probe verifies the source is reachable.
	Probe(ctx context.Context) error
}

func errNoStatus(op string) error {
	return errors.New(errors.ErrCodeStatusUnavailable, op, "no status received yet", nil)
}

// freshStatus returns the last pushed frame unless it is missing or older
// than maxAge. A non-positive maxAge accepts any age.
func freshStatus(op string, latest *protocol.StatusReport, maxAge time.Duration) (protocol.StatusReport, error) {
	if latest == nil {
		return protocol.StatusReport{}, errNoStatus(op)
	}
	if maxAge > 0 {
		if age := time.Since(latest.Timestamp); age > maxAge {
			return protocol.StatusReport{}, errors.New(errors.ErrCodeStatusUnavailable, op,
				fmt.Sprintf("status frame is %s old, limit %s", age.Round(time.Millisecond), maxAge), nil)
		}
	}
	return *latest, nil
}

// MemorySource is an in-process status source. It backs tests and the
// one-shot CLI decision, and stands in for hardware during bench runs.
type MemorySource struct {
	mu       sync.RWMutex
	mode     consts.OperatingMode
	mission  consts.MissionKind
	probeErr error

	// Reads counts status queries, letting tests assert fresh polling.
	reads int
}

// NewMemorySource returns a source initialized to the given values.
func NewMemorySource(mode consts.OperatingMode, mission consts.MissionKind) *MemorySource {
	return &MemorySource{mode: mode, mission: mission}
}

func (m *MemorySource) OperatingMode(ctx context.Context) (consts.OperatingMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.mode, nil
}

func (m *MemorySource) CommandedMission(ctx context.Context) (consts.MissionKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.mission, nil
}

func (m *MemorySource) Probe(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.probeErr
}

// Set replaces both values atomically.
func (m *MemorySource) Set(mode consts.OperatingMode, mission consts.MissionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.mission = mission
}

func (m *MemorySource) SetMode(mode consts.OperatingMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

func (m *MemorySource) SetMission(mission consts.MissionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mission = mission
}

// FailProbe makes Probe return err, simulating unreachable hardware.
func (m *MemorySource) FailProbe(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
}

// Reads returns how many status queries have been served.
func (m *MemorySource) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

// Personal.AI order the ending
