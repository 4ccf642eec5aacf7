package script

import "github.com/san-kum/drivesim/internal/sim"

// Host is the simulation side of the driver API. Every method that returns
// an error is a suspension point and returns sim.ErrCancelled once the
// session is stopped.
type Host interface {
	// Command enqueues a motor command and updates the intents at once.
	Command(c sim.Command) error
	// ReadDistance samples the rangefinder against the current state.
	ReadDistance() (int, error)
	// Hold suspends the script for seconds of simulated time.
	Hold(seconds float64) error
	// Yield is a suspension point for calls that emit no command.
	Yield() error
	Vehicle() sim.VehicleState
	Print(msg string)
}

// Tracer is told about every statement of an instrumented program before
// it runs. Returning an error aborts the program with that error.
type Tracer interface {
	Statement(line int, source string) error
}
