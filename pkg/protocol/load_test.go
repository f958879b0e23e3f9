package protocol

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, consts.SourceMemory, cfg.Hardware.Source)
	assert.Equal(t, consts.DefaultTick, cfg.Supervisor.TickInterval())
	assert.Equal(t, consts.DefaultRoverID, cfg.Rover.ID)
	assert.Equal(t, consts.DefaultMaxStatusAge, cfg.Hardware.MaxStatusAgeDuration())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "rover.yaml", `
rover:
  id: rover-07
supervisor:
  tick: 250ms
  preempt_poll: 0s
hardware:
  source: file
  status_file: /var/run/rover/status.yaml
observability:
  log_level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "rover-07", cfg.Rover.ID)
	assert.Equal(t, 250*time.Millisecond, cfg.Supervisor.TickInterval())
	assert.Equal(t, time.Duration(0), cfg.Supervisor.PreemptPollInterval())
	assert.Equal(t, consts.SourceFile, cfg.Hardware.Source)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	// untouched sections keep defaults
	assert.Equal(t, "rover/v1", cfg.MQTT.TopicRoot)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "rover.toml", `
[rover]
id = "rover-toml"

[hardware]
source = "mqtt"

[mqtt]
broker = "tcp://base-station:1883"
topic_root = "urc/v2"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "rover-toml", cfg.Rover.ID)
	assert.Equal(t, consts.SourceMQTT, cfg.Hardware.Source)
	assert.Equal(t, "tcp://base-station:1883", cfg.MQTT.Broker)
	assert.Equal(t, "urc/v2", cfg.MQTT.TopicRoot)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ROVER_ID", "rover-env")
	t.Setenv("ROVER_MISSION", "science")
	t.Setenv("ROVER_TELEMETRY_PUBLISH", "true")
	t.Setenv("ROVER_MAX_STATUS_AGE", "0")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "rover-env", cfg.Rover.ID)
	assert.Equal(t, "science", cfg.Hardware.Mission)
	assert.True(t, cfg.Telemetry.Publish)
	assert.Equal(t, time.Duration(0), cfg.Hardware.MaxStatusAgeDuration())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown source", "hardware:\n  source: carrier-pigeon\n"},
		{"file source without path", "hardware:\n  source: file\n"},
		{"socket source without path", "hardware:\n  source: socket\n"},
		{"bad tick", "supervisor:\n  tick: soon\n"},
		{"empty id", "rover:\n  id: \"\"\n"},
		{"malformed yaml", "rover: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "rover.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestValidate_DurationProblemsInFieldOrder(t *testing.T) {
	cfg := Default()
	cfg.Supervisor.Tick = "soon"
	cfg.Supervisor.PreemptPoll = "often"
	cfg.Hardware.ProbeTimeout = "later"
	cfg.Hardware.MaxStatusAge = "stale"

	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		require.Error(t, err)
		msg := err.Error()
		tick := strings.Index(msg, "supervisor.tick:")
		poll := strings.Index(msg, "supervisor.preempt_poll:")
		probe := strings.Index(msg, "hardware.probe_timeout:")
		age := strings.Index(msg, "hardware.max_status_age:")
		require.True(t, tick >= 0 && poll >= 0 && probe >= 0 && age >= 0, msg)
		assert.True(t, tick < poll && poll < probe && probe < age, msg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestCycleRecord_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := CycleRecord{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
