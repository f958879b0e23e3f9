package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/internal/monitor"
	"github.com/turtacn/Rover/internal/mqtt"
	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/internal/telemetry"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/logger"
	"github.com/turtacn/Rover/pkg/protocol"
)

// Engine hosts the supervisor: it owns the hardware handle, wires the
// reporters, drives the control loop and maps OS signals.
type Engine struct {
	cfg        *protocol.Config
	rover      *hardware.Rover
	supervisor *supervisor.Supervisor
	journal    *telemetry.Journal
	publisher  *telemetry.Publisher
	signals    chan os.Signal
}

// Open builds the status source and hardware handle from cfg, then the
// engine around them. Hardware failure is a construction error.
func Open(ctx context.Context, cfg *protocol.Config) (*Engine, error) {
	source, err := hardware.NewSource(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	rover, err := hardware.Open(ctx, cfg.Rover.ID, source, cfg.Hardware.ProbeTimeoutDuration())
	if err != nil {
		if c, ok := source.(interface{ Close() error }); ok {
			c.Close()
		}
		return nil, err
	}

	var reporters []supervisor.Reporter
	var journal *telemetry.Journal
	if cfg.Telemetry.JournalPath != "" {
		journal, err = telemetry.OpenJournal(cfg.Telemetry.JournalPath)
		if err != nil {
			logger.Log.Warn("Telemetry: Journal unavailable, continuing without it", "path", cfg.Telemetry.JournalPath, "err", err)
			journal = nil
		} else {
			reporters = append(reporters, journal)
		}
	}

	var publisher *telemetry.Publisher
	if cfg.Telemetry.Publish {
		client, err := hardware.NewMQTTClient(*cfg, fmt.Sprintf("rover-%s-cycles", cfg.Rover.ID))
		if err != nil {
			logger.Log.Warn("Telemetry: Publisher unavailable", "err", err)
		} else {
			publisher = telemetry.NewPublisher(client, mqtt.NewTopics(cfg.MQTT.TopicRoot), cfg.Rover.ID)
			if err := publisher.Start(ctx); err != nil {
				logger.Log.Warn("Telemetry: Publisher failed to start", "err", err)
				publisher = nil
			} else {
				reporters = append(reporters, publisher)
			}
		}
	}

	e, err := New(cfg, rover, reporters...)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		if publisher != nil {
			publisher.Close(ctx)
		}
		rover.Close()
		return nil, err
	}
	e.journal = journal
	e.publisher = publisher
	return e, nil
}

// New builds the engine around an already opened hardware handle.
func New(cfg *protocol.Config, rover *hardware.Rover, reporters ...supervisor.Reporter) (*Engine, error) {
	all := supervisor.MultiReporter{logReporter{}, monitor.NewReporter()}
	all = append(all, reporters...)

	sup, err := supervisor.New(rover,
		supervisor.WithReporter(all),
		supervisor.WithPreemptPoll(cfg.Supervisor.PreemptPollInterval()),
	)
	if err != nil {
		return nil, err
	}
	sup.OnTransition(func(_, to consts.SupervisorState) { monitor.SetState(to) })

	return &Engine{
		cfg:        cfg,
		rover:      rover,
		supervisor: sup,
		signals:    make(chan os.Signal, 1),
	}, nil
}

func (e *Engine) Supervisor() *supervisor.Supervisor { return e.supervisor }

// Start runs the control loop and the metrics server until ctx ends or a
// stop signal arrives. SIGHUP preempts the running unit.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signal.Notify(e.signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(e.signals)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-e.signals:
				switch sig {
				case syscall.SIGHUP:
					logger.Log.Info("Signal: SIGHUP received. Preempting active unit.")
					if !e.supervisor.Preempt() {
						logger.Log.Info("Signal: Nothing to preempt")
					}
				case syscall.SIGINT, syscall.SIGTERM:
					logger.Log.Info("Signal: Stop received. Shutting down.", "signal", sig)
					cancel()
					return
				}
			}
		}
	}()

	logger.Log.Info("Booting rover supervisor", "rover", e.rover.ID(), "missions", e.supervisor.Registry().Kinds())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.supervisor.Run(gctx, e.cfg.Supervisor.TickInterval())
	})
	if e.cfg.Observability.MetricsPort != "" {
		g.Go(func() error {
			return monitor.InitMetrics(gctx, e.cfg.Observability.MetricsPort)
		})
	}

	err := g.Wait()
	e.Close()
	return err
}

// Close stops the drive base and releases every sink and the status source.
func (e *Engine) Close() {
	if e.publisher != nil {
		e.publisher.Close(context.Background())
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			logger.Log.Warn("Telemetry: Journal close failed", "err", err)
		}
	}
	if err := e.rover.Close(); err != nil {
		logger.Log.Warn("Hardware: Close failed", "err", err)
	}
}

// logReporter writes a line per cycle that is not quiet.
type logReporter struct{}

func (logReporter) Report(_ context.Context, r supervisor.CycleReport) {
	if r.Quiet() {
		return
	}
	args := []any{"cycle", r.ID, "decision", r.Decision.Kind.String(), "unit", r.Decision.UnitName(), "outcome", r.Outcome, "elapsed", r.Duration()}
	switch r.Outcome {
	case consts.OutcomeFailed:
		logger.Log.Error("Cycle: Unit failed", append(args, "err", r.Err)...)
	case consts.OutcomeIdle:
		logger.Log.Warn("Cycle: Idle", append(args, "err", r.Err)...)
	default:
		logger.Log.Info("Cycle: Finished", args...)
	}
}

// Personal.AI order the ending
