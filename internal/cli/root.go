package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/turtacn/Rover/internal/hardware"
	"github.com/turtacn/Rover/internal/orchestrator"
	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/internal/telemetry"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
	"github.com/turtacn/Rover/pkg/protocol"
)

// Version is stamped at build time.
var Version = "dev"

// NewRootCommand assembles the rover command tree.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		envFile string
		opts    Options
	)

	rootCmd := &cobra.Command{
		Use:           "rover",
		Short:         "Rover mission supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return errors.New(errors.ErrCodeConfigInvalid, "LoadEnvFile", envFile, err)
				}
				return nil
			}
			// Optional; a missing .env is fine
			_ = godotenv.Load()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before ROVER_* overrides")
	opts.AddFlags(rootCmd.PersistentFlags())

	load := func() (protocol.Config, error) {
		cfg, err := protocol.LoadConfig(cfgFile)
		if err != nil {
			return protocol.Config{}, err
		}
		opts.Apply(&cfg)
		if err := cfg.Validate(); err != nil {
			return protocol.Config{}, err
		}
		if err := logger.InitLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat); err != nil {
			return protocol.Config{}, errors.New(errors.ErrCodeConfigInvalid, "InitLogger", "building logger", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		newStartCommand(load),
		newDecideCommand(load),
		newTelemetryCommand(load),
		newVersionCommand(),
	)
	return rootCmd
}

type loader func() (protocol.Config, error)

func newStartCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the supervisor control loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Log.Sync()

			logger.Log.Info("Booting rover supervisor...", "rover", cfg.Rover.ID, "source", cfg.Hardware.Source)
			engine, err := orchestrator.Open(cmd.Context(), &cfg)
			if err != nil {
				logger.Log.Error("Engine construction failed", "err", err)
				return err
			}
			return engine.Start(cmd.Context())
		},
	}
}

// decision is the printed form of a one-shot decision.
type decision struct {
	Mode     string `json:"mode"`
	Mission  string `json:"mission"`
	Decision string `json:"decision"`
	Unit     string `json:"unit,omitempty"`
	Reason   string `json:"reason"`
	Warning  string `json:"warning,omitempty"`
}

func newDecideCommand(load loader) *cobra.Command {
	var mode, mission string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Resolve the current status to a dispatch decision without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var source hardware.StatusSource
			if cmd.Flags().Changed("mode") || cmd.Flags().Changed("mission") {
				source = hardware.NewMemorySource(consts.ParseOperatingMode(mode), consts.ParseMissionKind(mission))
			} else {
				source, err = hardware.NewSource(cmd.Context(), cfg)
				if err != nil {
					return err
				}
			}

			rover, err := hardware.Open(cmd.Context(), cfg.Rover.ID, source, cfg.Hardware.ProbeTimeoutDuration())
			if err != nil {
				return err
			}
			defer rover.Close()

			sup, err := supervisor.New(rover)
			if err != nil {
				return err
			}
			return printDecision(cmd.OutOrStdout(), sup.Decide(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(consts.ModeNormal), "operating mode to decide for")
	cmd.Flags().StringVar(&mission, "mission", string(consts.MissionNone), "commanded mission to decide for")
	return cmd
}

func printDecision(w io.Writer, d supervisor.Decision) error {
	out := decision{
		Mode:     string(d.Mode),
		Mission:  string(d.Mission),
		Decision: d.Kind.String(),
		Unit:     d.UnitName(),
		Reason:   d.Reason,
	}
	if d.Err != nil {
		out.Warning = d.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newTelemetryCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "telemetry",
		Short: "Serve the read-only telemetry data service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Hardware.Source == consts.SourceSocket {
				return errors.New(errors.ErrCodeConfigInvalid, "Telemetry", "the socket source is owned by the supervisor; use file or mqtt", nil)
			}
			source, err := hardware.NewSource(ctx, cfg)
			if err != nil {
				return err
			}
			if c, ok := source.(io.Closer); ok {
				defer c.Close()
			}

			journal, err := telemetry.OpenJournal(cfg.Telemetry.JournalPath)
			if err != nil {
				return errors.New(errors.ErrCodeJournalFailure, "Telemetry", "opening journal", err)
			}
			defer journal.Close()

			return telemetry.NewServer(cfg.Telemetry.Addr, source, journal).Start(ctx)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "rover", Version)
		},
	}
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Personal.AI order the ending
