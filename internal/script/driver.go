package script

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/san-kum/drivesim/internal/sim"
)

// env is the per-run binding between the interpreter and a Host.
type env struct {
	prog   *Program
	host   Host
	tracer Tracer
	debug  bool
}

func (e *env) predeclared() starlark.StringDict {
	globals := starlark.StringDict{
		"AIDriver":   starlark.NewBuiltin("AIDriver", e.newDriver),
		"hold_state": starlark.NewBuiltin("hold_state", e.holdState),
		moduleName:   &module{env: e},
	}
	if e.tracer != nil {
		globals[traceHook] = starlark.NewBuiltin(traceHook, e.trace)
	}
	return globals
}

// d prints a debug line when the script sets aidriver.DEBUG_AIDRIVER.
func (e *env) d(args ...any) {
	if !e.debug {
		return
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "[AIDriver]")
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	e.host.Print(strings.Join(parts, " "))
}

func (e *env) trace(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var line int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &line); err != nil {
		return nil, err
	}
	if err := e.tracer.Statement(line, e.prog.Line(line)); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (e *env) newDriver(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 || len(kwargs) > 0 {
		// pin numbers of the real board are accepted and ignored
		e.d("Initialising AIDriver (pin arguments ignored in simulation)")
	}
	if err := e.host.Command(sim.Init()); err != nil {
		return nil, err
	}
	e.d("AIDriver initialized - debug logging active")
	return &driver{env: e}, nil
}

func (e *env) holdState(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	seconds, ok := starlark.AsFloat(v)
	if !ok || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	e.d("hold_state:", seconds, "second(s)")
	if err := e.host.Hold(seconds); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (e *env) speed(fn, param string, v starlark.Value) (float64, error) {
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: %s must be a number, got %s", fn, param, v.Type())
	}
	limit := e.prog.opts.MaxMotor
	if f < 0 || f > limit || math.IsNaN(f) {
		return 0, fmt.Errorf("%s: %s %s is out of range; check speed values are between 0 and %g", fn, param, v, limit)
	}
	return f, nil
}

// module is the value bound to the name aidriver.
type module struct {
	env *env
}

var (
	_ starlark.HasAttrs    = (*module)(nil)
	_ starlark.HasSetField = (*module)(nil)
)

func (m *module) String() string        { return "<module 'aidriver'>" }
func (m *module) Type() string          { return "module" }
func (m *module) Freeze()               {}
func (m *module) Truth() starlark.Bool  { return starlark.True }
func (m *module) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: module") }

func (m *module) Attr(name string) (starlark.Value, error) {
	switch name {
	case "AIDriver":
		return starlark.NewBuiltin("AIDriver", m.env.newDriver), nil
	case "hold_state":
		return starlark.NewBuiltin("hold_state", m.env.holdState), nil
	case "DEBUG_AIDRIVER":
		return starlark.Bool(m.env.debug), nil
	}
	return nil, nil
}

func (m *module) AttrNames() []string {
	return []string{"AIDriver", "DEBUG_AIDRIVER", "hold_state"}
}

func (m *module) SetField(name string, v starlark.Value) error {
	if name != "DEBUG_AIDRIVER" {
		return starlark.NoSuchAttrError(fmt.Sprintf("aidriver has no settable field %s", name))
	}
	m.env.debug = bool(v.Truth())
	return nil
}

// driver is the AIDriver object a script creates.
type driver struct {
	env *env
}

var _ starlark.HasAttrs = (*driver)(nil)

type method func(d *driver, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var driverMethods = map[string]method{
	"drive_forward":    (*driver).driveForward,
	"drive_backward":   (*driver).driveBackward,
	"rotate_left":      (*driver).rotateLeft,
	"rotate_right":     (*driver).rotateRight,
	"brake":            (*driver).brake,
	"read_distance":    (*driver).readDistance,
	"set_motor_speeds": (*driver).setMotorSpeeds,
	"get_motor_speeds": (*driver).getMotorSpeeds,
	"is_moving":        (*driver).isMoving,
	"service":          (*driver).service,
}

func (d *driver) String() string        { return "<AIDriver>" }
func (d *driver) Type() string          { return "AIDriver" }
func (d *driver) Freeze()               {}
func (d *driver) Truth() starlark.Bool  { return starlark.True }
func (d *driver) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: AIDriver") }

func (d *driver) Attr(name string) (starlark.Value, error) {
	m, ok := driverMethods[name]
	if !ok {
		return nil, starlark.NoSuchAttrError(fmt.Sprintf(
			"AIDriver has no method %s; valid methods are %s", name, strings.Join(d.AttrNames(), ", ")))
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return m(b.Receiver().(*driver), b, args, kwargs)
	}).BindReceiver(d), nil
}

func (d *driver) AttrNames() []string {
	names := make([]string, 0, len(driverMethods))
	for name := range driverMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *driver) wheels(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (right, left float64, err error) {
	var r, l starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "right_wheel_speed", &r, "left_wheel_speed", &l); err != nil {
		return 0, 0, err
	}
	if right, err = d.env.speed(b.Name(), "right_wheel_speed", r); err != nil {
		return 0, 0, err
	}
	if left, err = d.env.speed(b.Name(), "left_wheel_speed", l); err != nil {
		return 0, 0, err
	}
	return right, left, nil
}

func (d *driver) turn(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (float64, error) {
	var v starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "turn_speed", &v); err != nil {
		return 0, err
	}
	return d.env.speed(b.Name(), "turn_speed", v)
}

func (d *driver) send(c sim.Command) (starlark.Value, error) {
	if err := d.env.host.Command(c); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (d *driver) driveForward(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	right, left, err := d.wheels(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	d.env.d("AIDriver.drive_forward: R=", right, "L=", left)
	return d.send(sim.DriveForward(left, right))
}

func (d *driver) driveBackward(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	right, left, err := d.wheels(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	d.env.d("AIDriver.drive_backward: R=", right, "L=", left)
	return d.send(sim.DriveBackward(left, right))
}

func (d *driver) rotateLeft(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	speed, err := d.turn(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	d.env.d("AIDriver.rotate_left: speed=", speed)
	return d.send(sim.RotateLeft(speed))
}

func (d *driver) rotateRight(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	speed, err := d.turn(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	d.env.d("AIDriver.rotate_right: speed=", speed)
	return d.send(sim.RotateRight(speed))
}

func (d *driver) brake(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	d.env.d("AIDriver.brake()")
	return d.send(sim.Brake())
}

func (d *driver) setMotorSpeeds(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var r, l starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "right_speed", &r, "left_speed", &l); err != nil {
		return nil, err
	}
	right, err := d.env.speed(b.Name(), "right_speed", r)
	if err != nil {
		return nil, err
	}
	left, err := d.env.speed(b.Name(), "left_speed", l)
	if err != nil {
		return nil, err
	}
	d.env.d("AIDriver.set_motor_speeds: R=", right, "L=", left)
	return d.send(sim.SetMotorSpeeds(left, right))
}

func (d *driver) readDistance(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	mm, err := d.env.host.ReadDistance()
	if err != nil {
		return nil, err
	}
	if mm < 0 {
		d.env.d("read_distance: out of range or error")
	} else {
		d.env.d("read_distance:", mm, "mm")
	}
	return starlark.MakeInt(mm), nil
}

func (d *driver) getMotorSpeeds(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := d.env.host.Yield(); err != nil {
		return nil, err
	}
	v := d.env.host.Vehicle()
	right := int(math.Round(math.Abs(v.RightSpeed)))
	left := int(math.Round(math.Abs(v.LeftSpeed)))
	d.env.d("AIDriver.get_motor_speeds:", fmt.Sprintf("(%d, %d)", right, left))
	return starlark.Tuple{starlark.MakeInt(right), starlark.MakeInt(left)}, nil
}

func (d *driver) isMoving(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := d.env.host.Yield(); err != nil {
		return nil, err
	}
	moving := d.env.host.Vehicle().IsMoving
	d.env.d("AIDriver.is_moving:", moving)
	return starlark.Bool(moving), nil
}

func (d *driver) service(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := d.env.host.Yield(); err != nil {
		return nil, err
	}
	return starlark.None, nil
}
