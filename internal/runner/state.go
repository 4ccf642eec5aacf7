package runner

import (
	"time"

	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/sim"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateTracing
	StatePlaying
	StateCompleted
	StateStopped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTracing:
		return "tracing"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Active reports whether a session in state s still owns the controller.
func (s State) Active() bool {
	return s == StateRunning || s == StateTracing || s == StatePlaying
}

type Mode string

const (
	ModeRun  Mode = "run"
	ModeStep Mode = "step"
)

// Sample is one physics tick of the real world.
type Sample struct {
	Time     float64 `json:"time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Heading  float64 `json:"heading"`
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
	Distance int     `json:"distance"`
}

// Result describes a finished session.
type Result struct {
	Mode    Mode
	State   State
	Final   sim.VehicleState
	Err     error // runtime error, nil when completed or stopped
	Warning error // trace truncation
	Trace   *sim.Trace
	Steps   int
	Elapsed time.Duration
	SimTime float64
	Goal    string
	Verdict goal.Verdict
	Metrics map[string]float64
	Samples []Sample
	Log     []sim.LogLine
}
