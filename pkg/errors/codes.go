package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique identifier for specific error conditions in the rover supervisor.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001

	// Startup
	ErrCodeConstruction ErrorCode = 1100

	// Dispatch
	ErrCodeDispatchAmbiguity ErrorCode = 1200
	ErrCodeMissionRuntime    ErrorCode = 1300
	ErrCodeUnknownMission    ErrorCode = 1400
	ErrCodeStatusUnavailable ErrorCode = 1500
	ErrCodePreempted         ErrorCode = 1600

	// Observability sinks
	ErrCodeJournalFailure ErrorCode = 1700
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:           "Unknown",
	ErrCodeConfigInvalid:     "ConfigInvalid",
	ErrCodeConstruction:      "ConstructionError",
	ErrCodeDispatchAmbiguity: "DispatchAmbiguity",
	ErrCodeMissionRuntime:    "MissionRuntimeError",
	ErrCodeUnknownMission:    "UnknownMissionKind",
	ErrCodeStatusUnavailable: "StatusUnavailable",
	ErrCodePreempted:         "Preempted",
	ErrCodeJournalFailure:    "JournalFailure",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Fatal reports whether an error with this code must stop the process.
func (c ErrorCode) Fatal() bool {
	return c == ErrCodeConstruction || c == ErrCodeConfigInvalid
}

// RoverError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type RoverError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *RoverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *RoverError) Unwrap() error {
	return e.Err
}

// New creates a new RoverError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &RoverError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf returns the code of the first RoverError in err's chain, or
// ErrCodeUnknown when there is none.
func CodeOf(err error) ErrorCode {
	var re *RoverError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Personal.AI order the ending
