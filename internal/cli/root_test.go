package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "rover", root.Name())

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"start", "decide", "telemetry", "version"})
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rover dev")
}

func decideJSON(t *testing.T, args ...string) decision {
	t.Helper()
	out, err := run(t, append([]string{"decide", "--log.level", "error"}, args...)...)
	require.NoError(t, err)
	var d decision
	require.NoError(t, json.Unmarshal([]byte(out), &d), out)
	return d
}

func TestDecide(t *testing.T) {
	d := decideJSON(t, "--mode", "diagnostic", "--mission", "autonomous")
	assert.Equal(t, "diagnostic", d.Decision)
	assert.Equal(t, "diagnostic", d.Unit)

	d = decideJSON(t, "--mission", "science")
	assert.Equal(t, "mission", d.Decision)
	assert.Equal(t, "science", d.Unit)

	d = decideJSON(t, "--mission", "none")
	assert.Equal(t, "idle", d.Decision)
	assert.Empty(t, d.Warning)

	d = decideJSON(t, "--mission", "teleport")
	assert.Equal(t, "idle", d.Decision)
	assert.Contains(t, d.Warning, "teleport")
}

func TestDecide_FromStatusFile(t *testing.T) {
	dir := t.TempDir()
	status := filepath.Join(dir, "status.yaml")
	require.NoError(t, os.WriteFile(status, []byte("mode: normal\nmission: servicing\n"), 0o644))

	cfgPath := filepath.Join(dir, "rover.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[rover]
id = "rover-07"

[hardware]
source = "file"
status_file = "`+status+`"
`), 0o644))

	d := decideJSON(t, "--config", cfgPath)
	assert.Equal(t, "mission", d.Decision)
	assert.Equal(t, "equipment_servicing", d.Unit)
}

func TestDecide_UnreachableHardware(t *testing.T) {
	_, err := run(t, "decide", "--log.level", "error",
		"--hardware.source", "file",
		"--hardware.status-file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConstruction))
}

func TestEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "rover.env")
	require.NoError(t, os.WriteFile(envPath, []byte("ROVER_MISSION=science\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ROVER_MISSION") })

	out, err := run(t, "--env-file", envPath, "decide", "--log.level", "error")
	require.NoError(t, err)
	var d decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "science", d.Unit)

	_, err = run(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "version")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "decide", "--hardware.source", "carrier-pigeon")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestOptions_ApplyOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var o Options
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--rover.id", "rover-42", "--log.format", "console"}))

	cfg := protocol.Default()
	cfg.Telemetry.JournalPath = "keep.db"
	o.Apply(&cfg)

	assert.Equal(t, "rover-42", cfg.Rover.ID)
	assert.Equal(t, "console", cfg.Observability.LogFormat)
	assert.Equal(t, "keep.db", cfg.Telemetry.JournalPath)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}
