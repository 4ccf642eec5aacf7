// Package script runs learner programs against a drive host.
//
// Programs are written in Starlark, the Python dialect, with while loops,
// top-level control flow and global reassignment enabled so classroom code
// reads like the robot library examples:
//
//	from aidriver import AIDriver, hold_state
//
//	my_robot = AIDriver()
//	while my_robot.read_distance() > 300:
//	    my_robot.drive_forward(200, 200)
//	    hold_state(0.1)
//	my_robot.brake()
//
// [Compile] rejects programs before any side effect happens: syntax errors,
// imports other than aidriver, and calls outside the allow-list all come
// back as *sim.ScriptSyntaxError. [Program.Run] executes a compiled program
// and reports *sim.ScriptRuntimeError, sim.ErrCancelled or
// *sim.TraceLimitExceeded.
//
// With [Options.Instrument] set, a hidden hook runs before every source
// statement so a [Tracer] can attribute commands to lines.
package script
