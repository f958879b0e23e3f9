package cli

import (
	"github.com/spf13/pflag"

	"github.com/turtacn/Rover/pkg/protocol"
)

// Options are command-line overrides layered on top of the config file and
// environment. Only flags the user actually set are applied.
type Options struct {
	RoverID     string
	Source      string
	StatusFile  string
	Broker      string
	Tick        string
	PreemptPoll string
	JournalPath string
	MetricsPort string
	LogLevel    string
	LogFormat   string

	fs *pflag.FlagSet
}

// AddFlags registers the override flags on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.fs = fs
	fs.StringVar(&o.RoverID, "rover.id", o.RoverID, "Rover identity used in MQTT topics.")
	fs.StringVar(&o.Source, "hardware.source", o.Source, "Status source: memory, file, mqtt or socket.")
	fs.StringVar(&o.StatusFile, "hardware.status-file", o.StatusFile, "Status file read by the file source.")
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "MQTT broker URL.")
	fs.StringVar(&o.Tick, "supervisor.tick", o.Tick, "Control tick between supervisor cycles.")
	fs.StringVar(&o.PreemptPoll, "supervisor.preempt-poll", o.PreemptPoll, "Status re-poll interval while a unit runs, 0 disables.")
	fs.StringVar(&o.JournalPath, "telemetry.journal", o.JournalPath, "Cycle journal path, empty disables.")
	fs.StringVar(&o.MetricsPort, "metrics.addr", o.MetricsPort, "Prometheus listen address, empty disables.")
	fs.StringVar(&o.LogLevel, "log.level", o.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&o.LogFormat, "log.format", o.LogFormat, "Log format: json, console or auto.")
}

// Apply copies every changed flag into cfg.
func (o *Options) Apply(cfg *protocol.Config) {
	if o.fs == nil {
		return
	}
	set := func(name string, dst *string, v string) {
		if o.fs.Changed(name) {
			*dst = v
		}
	}
	set("rover.id", &cfg.Rover.ID, o.RoverID)
	set("hardware.source", &cfg.Hardware.Source, o.Source)
	set("hardware.status-file", &cfg.Hardware.StatusFile, o.StatusFile)
	set("mqtt.broker", &cfg.MQTT.Broker, o.Broker)
	set("supervisor.tick", &cfg.Supervisor.Tick, o.Tick)
	set("supervisor.preempt-poll", &cfg.Supervisor.PreemptPoll, o.PreemptPoll)
	set("telemetry.journal", &cfg.Telemetry.JournalPath, o.JournalPath)
	set("metrics.addr", &cfg.Observability.MetricsPort, o.MetricsPort)
	set("log.level", &cfg.Observability.LogLevel, o.LogLevel)
	set("log.format", &cfg.Observability.LogFormat, o.LogFormat)
}

// Personal.AI order the ending
