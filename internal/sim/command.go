package sim

import "fmt"

// CommandKind names an entry of the driver command vocabulary.
type CommandKind string

const (
	CmdInit           CommandKind = "init"
	CmdDriveForward   CommandKind = "drive_forward"
	CmdDriveBackward  CommandKind = "drive_backward"
	CmdRotateLeft     CommandKind = "rotate_left"
	CmdRotateRight    CommandKind = "rotate_right"
	CmdBrake          CommandKind = "brake"
	CmdReadDistance   CommandKind = "read_distance"
	CmdSetMotorSpeeds CommandKind = "set_motor_speeds"
	CmdHoldState      CommandKind = "hold_state"
)

// Command is an intent captured from the script and applied on the next
// drain. Only the fields of its Kind are meaningful.
type Command struct {
	Kind       CommandKind `json:"kind"`
	LeftSpeed  float64     `json:"left_speed,omitempty"`
	RightSpeed float64     `json:"right_speed,omitempty"`
	TurnSpeed  float64     `json:"turn_speed,omitempty"`
	Result     int         `json:"result,omitempty"`
	Seconds    float64     `json:"seconds,omitempty"`
}

func Init() Command  { return Command{Kind: CmdInit} }
func Brake() Command { return Command{Kind: CmdBrake} }

func DriveForward(left, right float64) Command {
	return Command{Kind: CmdDriveForward, LeftSpeed: left, RightSpeed: right}
}

func DriveBackward(left, right float64) Command {
	return Command{Kind: CmdDriveBackward, LeftSpeed: left, RightSpeed: right}
}

func RotateLeft(turn float64) Command {
	return Command{Kind: CmdRotateLeft, TurnSpeed: turn}
}

func RotateRight(turn float64) Command {
	return Command{Kind: CmdRotateRight, TurnSpeed: turn}
}

func ReadDistance(result int) Command {
	return Command{Kind: CmdReadDistance, Result: result}
}

func SetMotorSpeeds(left, right float64) Command {
	return Command{Kind: CmdSetMotorSpeeds, LeftSpeed: left, RightSpeed: right}
}

func HoldState(seconds float64) Command {
	return Command{Kind: CmdHoldState, Seconds: seconds}
}

func (c Command) String() string {
	switch c.Kind {
	case CmdDriveForward, CmdDriveBackward, CmdSetMotorSpeeds:
		return fmt.Sprintf("%s(left=%g, right=%g)", c.Kind, c.LeftSpeed, c.RightSpeed)
	case CmdRotateLeft, CmdRotateRight:
		return fmt.Sprintf("%s(%g)", c.Kind, c.TurnSpeed)
	case CmdReadDistance:
		return fmt.Sprintf("%s -> %d", c.Kind, c.Result)
	case CmdHoldState:
		return fmt.Sprintf("%s(%gs)", c.Kind, c.Seconds)
	default:
		return string(c.Kind)
	}
}

// Apply returns v with the motor intent of c applied. Commands without a
// motor effect (init, read_distance, hold_state) leave v unchanged.
func Apply(v VehicleState, c Command) VehicleState {
	switch c.Kind {
	case CmdDriveForward:
		v.LeftSpeed, v.RightSpeed = c.LeftSpeed, c.RightSpeed
		v.LeftDir, v.RightDir = DirForward, DirForward
		v.IsMoving = true
	case CmdDriveBackward:
		v.LeftSpeed, v.RightSpeed = -c.LeftSpeed, -c.RightSpeed
		v.LeftDir, v.RightDir = DirBackward, DirBackward
		v.IsMoving = true
	case CmdRotateLeft:
		v.LeftSpeed, v.RightSpeed = -c.TurnSpeed, c.TurnSpeed
		v.LeftDir, v.RightDir = DirBackward, DirForward
		v.IsMoving = true
	case CmdRotateRight:
		v.LeftSpeed, v.RightSpeed = c.TurnSpeed, -c.TurnSpeed
		v.LeftDir, v.RightDir = DirForward, DirBackward
		v.IsMoving = true
	case CmdBrake:
		v.Stop()
	case CmdSetMotorSpeeds:
		// speeds change, directions stay; a stopped wheel stays stopped
		v.LeftSpeed = float64(v.LeftDir) * c.LeftSpeed
		v.RightSpeed = float64(v.RightDir) * c.RightSpeed
	}
	return v
}

// ApplyAll applies cmds in order.
func ApplyAll(v VehicleState, cmds []Command) VehicleState {
	for _, c := range cmds {
		v = Apply(v, c)
	}
	return v
}
