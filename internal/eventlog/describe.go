package eventlog

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/drivesim/internal/sim"
)

// StoppedMax is the highest speed a real robot usually cannot move at.
const StoppedMax = 80

// SpeedBand labels a motor speed with the agreed classroom bands.
func SpeedBand(speed float64) string {
	switch {
	case speed <= StoppedMax:
		return "stopped"
	case speed <= 120:
		return "very slow"
	case speed <= 180:
		return "slow"
	case speed <= 220:
		return "normal"
	default:
		return "very fast"
	}
}

func describeDrive(direction string, right, left float64) string {
	top := math.Max(right, left)
	if top <= StoppedMax {
		return fmt.Sprintf("%s requested with R=%g, L=%g - speeds are in the stopped range so the robot may not move", direction, right, left)
	}

	msg := fmt.Sprintf("%s at %s speed (R=%g, L=%g)", direction, SpeedBand(top), right, left)
	if diff := right - left; math.Abs(diff) > 20 {
		// the faster wheel is on the outside of the curve
		side := "left"
		if diff < 0 {
			side = "right"
		}
		msg += "; expect an arc toward the " + side
	}
	return msg
}

func describeRotation(direction string, turn float64) string {
	if turn <= StoppedMax {
		return fmt.Sprintf("Rotate %s requested with speed %g - speed is in the stopped range so the robot may not turn", direction, turn)
	}
	return fmt.Sprintf("Rotate %s on the spot at %s speed (%g)", direction, SpeedBand(turn), turn)
}

// MaxRangeWarnings is how many out-of-range readings in a row get logged.
const MaxRangeWarnings = 3

// RangeWarnings throttles out-of-range sensor messages. A valid reading
// starts a new run.
type RangeWarnings struct {
	misses atomic.Int32
}

// Log reports whether a reading of mm should be described.
func (r *RangeWarnings) Log(mm int) bool {
	if mm >= 0 {
		r.misses.Store(0)
		return true
	}
	return r.misses.Add(1) <= MaxRangeWarnings
}

// Describe turns a command into a log sentence.
func Describe(c sim.Command) string {
	switch c.Kind {
	case sim.CmdInit:
		return "AIDriver initialised"
	case sim.CmdDriveForward:
		return describeDrive("Drive forward", c.RightSpeed, c.LeftSpeed)
	case sim.CmdDriveBackward:
		return describeDrive("Drive backward", c.RightSpeed, c.LeftSpeed)
	case sim.CmdRotateLeft:
		return describeRotation("left", c.TurnSpeed)
	case sim.CmdRotateRight:
		return describeRotation("right", c.TurnSpeed)
	case sim.CmdBrake:
		return "Brake applied; motors stopping"
	case sim.CmdReadDistance:
		if c.Result < 0 {
			return "ultrasonic: out of range"
		}
		return fmt.Sprintf("distance reading: %d mm", c.Result)
	case sim.CmdSetMotorSpeeds:
		return fmt.Sprintf("Motor speeds set to R=%g, L=%g", c.RightSpeed, c.LeftSpeed)
	case sim.CmdHoldState:
		if c.Seconds == 1 {
			return "Robot holding state for 1 second"
		}
		return fmt.Sprintf("Robot holding state for %.2f second(s)", c.Seconds)
	default:
		return c.String()
	}
}
