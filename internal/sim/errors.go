package sim

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCancelled is the stop signal raised into a script. It is control
	// flow only and is never reported as a failure.
	ErrCancelled = errors.New("sim: session stopped")

	// ErrSessionActive rejects a start while another session is live.
	ErrSessionActive = errors.New("sim: a session is already running")

	// ErrNotStepMode is returned by pause/resume outside replay.
	ErrNotStepMode = errors.New("sim: not replaying a trace")
)

// ScriptSyntaxError blocks a script from starting.
type ScriptSyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ScriptSyntaxError) Error() string {
	if e.Line <= 0 {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
}

// ScriptRuntimeError aborts a running script.
type ScriptRuntimeError struct {
	Line    int
	Msg     string
	Wrapped error
}

func (e *ScriptRuntimeError) Error() string {
	if e.Line <= 0 {
		return "error: " + e.Msg
	}
	return fmt.Sprintf("error on line %d: %s", e.Line, e.Msg)
}

func (e *ScriptRuntimeError) Unwrap() error { return e.Wrapped }

// TraceLimitExceeded reports a truncated trace. It is a warning; the partial
// trace is still replayed.
type TraceLimitExceeded struct {
	Steps   int
	Elapsed time.Duration
	Reason  string
}

func (e *TraceLimitExceeded) Error() string {
	return fmt.Sprintf("trace truncated after %d steps (%s): %s", e.Steps, e.Elapsed.Round(time.Millisecond), e.Reason)
}

// CollisionDetected describes a step that was undone because the vehicle
// footprint hit a wall or obstacle.
type CollisionDetected struct {
	At Pose
}

func (e *CollisionDetected) Error() string {
	return fmt.Sprintf("collision at (%.0f, %.0f); motors stopped", e.At.X, e.At.Y)
}
