package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging in the rover supervisor.
// It provides standard logging levels and a mechanism to add structured context.
type Logger interface {
	// Debug logs a message at the debug level.
	Debug(msg string, args ...any)
	// Info logs a message at the info level.
	Info(msg string, args ...any)
	// Warn logs a message at the warning level.
	Warn(msg string, args ...any)
	// Error logs a message at the error level.
	Error(msg string, args ...any)
	// With returns a new Logger with the given structured context added.
	With(args ...any) Logger
	// Sync flushes any buffered entries.
	Sync() error
}

// Log is the global logger instance used throughout the application.
// It is initialized with a JSON encoder at info level pointing to stdout.
var Log Logger = mustBuild("info", "json")

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatAuto    = "auto"
)

// InitLogger initializes the global Log instance with the specified level and format.
// Supported levels are "debug", "info", "warn", and "error"; anything else means info.
// Format "auto" selects console output when stdout is a terminal and JSON otherwise.
func InitLogger(level, format string) error {
	l, err := build(level, format)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &wrapper{l: zap.NewNop().Sugar()}
}

func mustBuild(level, format string) Logger {
	l, err := build(level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: falling back to no-op: %v\n", err)
		return NewNop()
	}
	return l
}

func build(level, format string) (Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoding := resolveFormat(format)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if encoding == FormatConsole {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	// Add source file info for better debugging; skip the wrapper frame.
	l, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return &wrapper{l: l.Sugar()}, nil
}

func resolveFormat(format string) string {
	switch strings.ToLower(format) {
	case FormatConsole:
		return FormatConsole
	case FormatAuto:
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return FormatConsole
		}
		return FormatJSON
	default:
		return FormatJSON
	}
}

type wrapper struct {
	l *zap.SugaredLogger
}

func (w *wrapper) Debug(msg string, args ...any) { w.l.Debugw(msg, args...) }
func (w *wrapper) Info(msg string, args ...any)  { w.l.Infow(msg, args...) }
func (w *wrapper) Warn(msg string, args ...any)  { w.l.Warnw(msg, args...) }
func (w *wrapper) Error(msg string, args ...any) { w.l.Errorw(msg, args...) }
func (w *wrapper) With(args ...any) Logger       { return &wrapper{l: w.l.With(args...)} }
func (w *wrapper) Sync() error                   { return w.l.Sync() }

// Personal.AI order the ending
