package diagnostic

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/pkg/consts"
)

func newRunner(t *testing.T) (*Runner, *hardware.MemorySource, *hardware.Rover) {
	t.Helper()
	src := hardware.NewMemorySource(consts.ModeDiagnostic, consts.MissionNone)
	rover, err := hardware.Open(context.Background(), "rover-test", src, time.Second)
	require.NoError(t, err)
	r := New(rover)
	r.pulse = time.Millisecond
	return r, src, rover
}

func TestRunner_Passes(t *testing.T) {
	r, _, rover := newRunner(t)

	require.NoError(t, r.Run(context.Background()))
	assert.False(t, rover.Drive().Moving())

	report, runs := r.lastReport()
	assert.Equal(t, 1, runs)
	assert.True(t, report.Passed())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunner_StatusProbeFails(t *testing.T) {
	r, src, rover := newRunner(t)
	src.FailProbe(stderrors.New("bus fault"))

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus fault")
	assert.False(t, rover.Drive().Moving())

	report, _ := r.lastReport()
	assert.False(t, report.StatusOK)
	assert.False(t, report.Passed())
}

func TestRunner_Cancelled(t *testing.T) {
	r, _, rover := newRunner(t)
	r.pulse = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, rover.Drive().Moving, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner ignored cancellation")
	}
	assert.False(t, rover.Drive().Moving())
	report, _ := r.lastReport()
	assert.False(t, report.Wheels[0])
}
