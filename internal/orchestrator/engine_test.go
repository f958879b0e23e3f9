package orchestrator

import (
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/internal/telemetry"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

func testConfig(t *testing.T) *protocol.Config {
	cfg := protocol.Default()
	cfg.Supervisor.Tick = "5ms"
	cfg.Supervisor.PreemptPoll = "0"
	cfg.Observability.MetricsPort = ""
	cfg.Telemetry.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	return &cfg
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	rover, err := hardware.Open(context.Background(), cfg.Rover.ID, hardware.NewMemorySource(consts.ModeNormal, consts.MissionNone), time.Second)
	require.NoError(t, err)

	engine, err := New(cfg, rover)
	require.NoError(t, err)
	assert.Equal(t, consts.StateIdle, engine.Supervisor().State())
	assert.Equal(t, 4, engine.Supervisor().Registry().Len())
}

func TestNew_NilRover(t *testing.T) {
	_, err := New(testConfig(t), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConstruction))
}

func TestOpen_ConstructionFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hardware.Source = consts.SourceSocket
	cfg.Hardware.SocketPath = filepath.Join(t.TempDir(), "missing", "dir", "status.sock")

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.CodeOf(err).Fatal())
}

func TestEngine_StartRunsCyclesAndJournals(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hardware.Mode = "diagnostic"

	engine, err := Open(context.Background(), cfg)
	require.NoError(t, err)

	var cycles int
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Start(ctx) }()

	require.Eventually(t, func() bool {
		return engine.Supervisor().State() == consts.StateRunningDiagnostic
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, engine.rover.Drive().Moving())

	j, err := telemetry.OpenJournal(cfg.Telemetry.JournalPath)
	require.NoError(t, err)
	defer j.Close()
	cycles, err = j.Count(context.Background(), "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cycles, 1)
}

func TestEngine_SignalHandling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hardware.Mission = "science"

	engine, err := Open(context.Background(), cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- engine.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return engine.Supervisor().State() == consts.StateRunningMission
	}, 2*time.Second, time.Millisecond)

	engine.signals <- syscall.SIGHUP
	require.Eventually(t, func() bool {
		n, err := engine.journal.Count(context.Background(), consts.OutcomePreempted)
		return err == nil && n >= 1
	}, 2*time.Second, 5*time.Millisecond)

	engine.signals <- syscall.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine ignored SIGTERM")
	}
}

func TestLogReporter(t *testing.T) {
	r := logReporter{}
	assert.NotPanics(t, func() {
		r.Report(context.Background(), supervisor.CycleReport{Decision: supervisor.Decision{Kind: supervisor.DecisionIdle}, Outcome: consts.OutcomeIdle})
		r.Report(context.Background(), supervisor.CycleReport{
			Decision: supervisor.Decision{Kind: supervisor.DecisionMission, Mission: consts.MissionScience},
			Outcome:  consts.OutcomeFailed,
			Err:      errors.New(errors.ErrCodeMissionRuntime, "RunUnit", "boom", nil),
		})
	})
}
