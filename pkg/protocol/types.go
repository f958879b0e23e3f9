package protocol

import (
	"time"

	"github.com/turtacn/Rover/pkg/consts"
)

// Config represents the root configuration of the rover supervisor.
type Config struct {
	Version       string              `yaml:"version" toml:"version"`
	Rover         RoverConfig         `yaml:"rover" toml:"rover"`
	Supervisor    SupervisorConfig    `yaml:"supervisor" toml:"supervisor"`
	Hardware      HardwareConfig      `yaml:"hardware" toml:"hardware"`
	MQTT          MQTTConfig          `yaml:"mqtt" toml:"mqtt"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" toml:"telemetry"`
	Observability ObservabilityConfig `yaml:"observability" toml:"observability"`
}

type RoverConfig struct {
	ID string `yaml:"id" toml:"id"`
}

type SupervisorConfig struct {
	Tick        string `yaml:"tick" toml:"tick"`                 // Control tick between cycles
	PreemptPoll string `yaml:"preempt_poll" toml:"preempt_poll"` // Status re-poll while a unit runs; "0" disables
}

type HardwareConfig struct {
	Source       string `yaml:"source" toml:"source"` // memory | file | mqtt | socket
	StatusFile   string `yaml:"status_file" toml:"status_file"`
	SocketPath   string `yaml:"socket_path" toml:"socket_path"`
	ProbeTimeout string `yaml:"probe_timeout" toml:"probe_timeout"`
	MaxStatusAge string `yaml:"max_status_age" toml:"max_status_age"` // Pushed frames older than this are unavailable; "0" disables

	// Initial values for the memory source
	Mode    string `yaml:"mode" toml:"mode"`
	Mission string `yaml:"mission" toml:"mission"`
}

type MQTTConfig struct {
	Broker             string `yaml:"broker" toml:"broker"`
	Username           string `yaml:"username" toml:"username"`
	Password           string `yaml:"password" toml:"password"`
	ClientID           string `yaml:"client_id" toml:"client_id"`
	KeepAlive          string `yaml:"keep_alive" toml:"keep_alive"`
	ConnectTimeout     string `yaml:"connect_timeout" toml:"connect_timeout"`
	CleanStart         bool   `yaml:"clean_start" toml:"clean_start"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	TopicRoot          string `yaml:"topic_root" toml:"topic_root"`
}

type TelemetryConfig struct {
	Addr        string `yaml:"addr" toml:"addr"`
	JournalPath string `yaml:"journal_path" toml:"journal_path"`
	Publish     bool   `yaml:"publish" toml:"publish"` // Publish cycle reports over MQTT
}

type ObservabilityConfig struct {
	MetricsPort string `yaml:"metrics_port" toml:"metrics_port"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFormat   string `yaml:"log_format" toml:"log_format"`
}

// TickInterval returns the parsed control tick.
func (c SupervisorConfig) TickInterval() time.Duration {
	return parseDuration(c.Tick, consts.DefaultTick)
}

// PreemptPollInterval returns the parsed preemption poll interval. Zero disables the watcher.
func (c SupervisorConfig) PreemptPollInterval() time.Duration {
	return parseDuration(c.PreemptPoll, consts.DefaultPreemptPoll)
}

// ProbeTimeoutDuration returns how long hardware construction may wait for the status source.
func (c HardwareConfig) ProbeTimeoutDuration() time.Duration {
	return parseDuration(c.ProbeTimeout, consts.DefaultProbeTimeout)
}

// MaxStatusAgeDuration returns how old a pushed status frame may be before
// the socket and mqtt sources stop serving it.
func (c HardwareConfig) MaxStatusAgeDuration() time.Duration {
	return parseDuration(c.MaxStatusAge, consts.DefaultMaxStatusAge)
}

func (c MQTTConfig) KeepAliveDuration() time.Duration {
	return parseDuration(c.KeepAlive, 60*time.Second)
}

func (c MQTTConfig) ConnectTimeoutDuration() time.Duration {
	return parseDuration(c.ConnectTimeout, 5*time.Second)
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// Personal.AI order the ending
