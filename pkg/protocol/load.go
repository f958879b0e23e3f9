package protocol

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
)

// Default returns a configuration that runs against an in-memory status
// source with no external services.
func Default() Config {
	return Config{
		Version: "v1",
		Rover:   RoverConfig{ID: consts.DefaultRoverID},
		Supervisor: SupervisorConfig{
			Tick:        consts.DefaultTick.String(),
			PreemptPoll: consts.DefaultPreemptPoll.String(),
		},
		Hardware: HardwareConfig{
			Source:       consts.SourceMemory,
			ProbeTimeout: consts.DefaultProbeTimeout.String(),
			MaxStatusAge: consts.DefaultMaxStatusAge.String(),
			Mode:         string(consts.ModeNormal),
			Mission:      string(consts.MissionNone),
		},
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			KeepAlive:      "60s",
			ConnectTimeout: "5s",
			CleanStart:     true,
			TopicRoot:      "rover/v1",
		},
		Telemetry: TelemetryConfig{
			Addr:        ":8000",
			JournalPath: "rover-journal.db",
		},
		Observability: ObservabilityConfig{
			MetricsPort: ":9090",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// LoadConfig reads the file at path on top of Default and applies ROVER_*
// environment overrides. YAML and TOML are selected by extension. An empty
// path yields defaults plus environment.
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.New(errors.ErrCodeConfigInvalid, "LoadConfig", "reading config", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return Config{}, errors.New(errors.ErrCodeConfigInvalid, "LoadConfig", "parsing toml", err)
			}
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.New(errors.ErrCodeConfigInvalid, "LoadConfig", "parsing yaml", err)
			}
		}
	}

	ApplyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envBindings = map[string]func(*Config, string){
	"ID":               func(c *Config, v string) { c.Rover.ID = v },
	"TICK":             func(c *Config, v string) { c.Supervisor.Tick = v },
	"PREEMPT_POLL":     func(c *Config, v string) { c.Supervisor.PreemptPoll = v },
	"HARDWARE_SOURCE":  func(c *Config, v string) { c.Hardware.Source = v },
	"STATUS_FILE":      func(c *Config, v string) { c.Hardware.StatusFile = v },
	"STATUS_SOCK":      func(c *Config, v string) { c.Hardware.SocketPath = v },
	"MAX_STATUS_AGE":   func(c *Config, v string) { c.Hardware.MaxStatusAge = v },
	"MODE":             func(c *Config, v string) { c.Hardware.Mode = v },
	"MISSION":          func(c *Config, v string) { c.Hardware.Mission = v },
	"MQTT_BROKER":      func(c *Config, v string) { c.MQTT.Broker = v },
	"MQTT_USERNAME":    func(c *Config, v string) { c.MQTT.Username = v },
	"MQTT_PASSWORD":    func(c *Config, v string) { c.MQTT.Password = v },
	"MQTT_TOPIC_ROOT":  func(c *Config, v string) { c.MQTT.TopicRoot = v },
	"TELEMETRY_ADDR":   func(c *Config, v string) { c.Telemetry.Addr = v },
	"JOURNAL_PATH":     func(c *Config, v string) { c.Telemetry.JournalPath = v },
	"METRICS_PORT":     func(c *Config, v string) { c.Observability.MetricsPort = v },
	"LOG_LEVEL":        func(c *Config, v string) { c.Observability.LogLevel = v },
	"LOG_FORMAT":       func(c *Config, v string) { c.Observability.LogFormat = v },
	"TELEMETRY_PUBLISH": func(c *Config, v string) {
		c.Telemetry.Publish = v == "1" || strings.EqualFold(v, "true")
	},
}

// ApplyEnv overrides cfg with any set ROVER_* variables.
func ApplyEnv(cfg *Config) {
	for key, set := range envBindings {
		if v, ok := os.LookupEnv(consts.EnvPrefix + key); ok {
			set(cfg, strings.TrimSpace(v))
		}
	}
}

// Validate checks the fields the supervisor cannot start without.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Rover.ID) == "" {
		problems = append(problems, "rover.id is required")
	}

	switch c.Hardware.Source {
	case consts.SourceMemory:
	case consts.SourceFile:
		if c.Hardware.StatusFile == "" {
			problems = append(problems, "hardware.status_file is required for the file source")
		}
	case consts.SourceSocket:
		if c.Hardware.SocketPath == "" {
			problems = append(problems, "hardware.socket_path is required for the socket source")
		}
	case consts.SourceMQTT:
		if c.MQTT.Broker == "" {
			problems = append(problems, "mqtt.broker is required for the mqtt source")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown hardware.source %q", c.Hardware.Source))
	}

	durations := []struct{ name, raw string }{
		{"supervisor.tick", c.Supervisor.Tick},
		{"supervisor.preempt_poll", c.Supervisor.PreemptPoll},
		{"hardware.probe_timeout", c.Hardware.ProbeTimeout},
		{"hardware.max_status_age", c.Hardware.MaxStatusAge},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		if _, err := time.ParseDuration(d.raw); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", d.name, err))
		}
	}

	if d := c.Supervisor.TickInterval(); d <= 0 {
		problems = append(problems, "supervisor.tick must be positive")
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "ValidateConfig", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Personal.AI order the ending
