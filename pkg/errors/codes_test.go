package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestRoverError_Error(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "Startup", "invalid config file", nil)
	expected := "[1001] Startup: invalid config file"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	cause := errors.New("file not found")
	errWithCause := New(ErrCodeConstruction, "OpenHardware", "status source unreachable", cause)
	expectedWithCause := "[1100] OpenHardware: status source unreachable (cause: file not found)"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected %q, got %q", expectedWithCause, errWithCause.Error())
	}
}

func TestRoverError_Unwrap(t *testing.T) {
	cause := errors.New("wheel stalled")
	err := New(ErrCodeMissionRuntime, "RunCycle", "mission failed", cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Expected cause %v, got %v", cause, errors.Unwrap(err))
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	errNoCause := New(ErrCodeMissionRuntime, "RunCycle", "mission failed", nil)
	if errors.Unwrap(errNoCause) != nil {
		t.Errorf("Expected nil cause, got %v", errors.Unwrap(errNoCause))
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("opening rover: %w", New(ErrCodeConstruction, "Open", "no hardware", nil))
	if got := CodeOf(wrapped); got != ErrCodeConstruction {
		t.Errorf("Expected %v, got %v", ErrCodeConstruction, got)
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeUnknown {
		t.Errorf("Expected ErrCodeUnknown for plain error, got %v", got)
	}
	if IsCode(nil, ErrCodeUnknown) {
		t.Error("nil error should not match any code")
	}
	if !IsCode(wrapped, ErrCodeConstruction) {
		t.Error("IsCode should match wrapped code")
	}
}

func TestErrorCode_Fatal(t *testing.T) {
	fatal := []ErrorCode{ErrCodeConstruction, ErrCodeConfigInvalid}
	for _, c := range fatal {
		if !c.Fatal() {
			t.Errorf("%v should be fatal", c)
		}
	}
	absorbed := []ErrorCode{ErrCodeMissionRuntime, ErrCodeUnknownMission, ErrCodeStatusUnavailable, ErrCodePreempted, ErrCodeJournalFailure}
	for _, c := range absorbed {
		if c.Fatal() {
			t.Errorf("%v should not be fatal", c)
		}
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrCodeUnknownMission.String() != "UnknownMissionKind" {
		t.Errorf("unexpected name %q", ErrCodeUnknownMission.String())
	}
	if ErrorCode(42).String() != "ErrorCode(42)" {
		t.Errorf("unexpected name %q", ErrorCode(42).String())
	}
}
