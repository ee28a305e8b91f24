package hotspot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPlatform is returned by system-facing operations on
// platforms other than Linux.
var ErrUnsupportedPlatform = errors.New("hotspot requires Linux")

// ErrServiceUnavailable means NetworkManager is unreachable. It is fatal to
// any subsequent decision; nothing has been mutated when it is returned.
var ErrServiceUnavailable = errors.New("NetworkManager is unreachable; start it with: systemctl start NetworkManager")

// ErrDeviceUnreachable means an interface vanished mid-probe. Callers treat
// it as "assume not capable", not as a crash.
var ErrDeviceUnreachable = errors.New("device unreachable")

// ErrNoInternetSource means no egress interface could be resolved for the
// routing plan.
var ErrNoInternetSource = errors.New("no internet source interface available")

// ErrSessionActive rejects a start request while a session already exists.
// The existing session is left untouched.
var ErrSessionActive = errors.New("a hotspot session is already active")

// ConfigError reports an invalid session field, rejected before any system
// mutation or probing takes place.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BlockError wraps a blocking SafetyVerdict for propagation to the caller.
type BlockError struct {
	Reasons  []BlockReason
	Warnings []string
}

func (e *BlockError) Error() string {
	if len(e.Reasons) == 0 {
		return "hotspot start blocked"
	}
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, fmt.Sprintf("%s (%s)", r, r.Remedy()))
	}
	return "hotspot start blocked: " + strings.Join(parts, "; ")
}

// ApplyError reports a failed routing or AP bring-up step during Starting.
// The lifecycle controller always rolls back to a clean state before
// surfacing it.
type ApplyError struct {
	Step string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Step, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Process exit codes. The mapping is stable: the presentation layer
// distinguishes causes by code alone.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitInvalidConfig      = 2
	ExitServiceUnavailable = 3
	ExitApplyFailure       = 4
	ExitNoInternetSource   = 5

	// Block reasons map to 10 + BlockReason ordinal; the first reason of a
	// multi-reason verdict wins.
	exitBlockBase = 10
)

// ExitCode maps an error to the process exit code contract above.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitInvalidConfig
	}

	var be *BlockError
	if errors.As(err, &be) {
		if len(be.Reasons) == 0 {
			return ExitFailure
		}
		return exitBlockBase + int(be.Reasons[0])
	}

	var ae *ApplyError
	if errors.As(err, &ae) {
		return ExitApplyFailure
	}

	if errors.Is(err, ErrServiceUnavailable) {
		return ExitServiceUnavailable
	}
	if errors.Is(err, ErrNoInternetSource) {
		return ExitNoInternetSource
	}

	return ExitFailure
}
