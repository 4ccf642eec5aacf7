// Package physics simulates a two-wheel differential-drive robot.
//
// The package is split into three concerns:
//
//   - [Step]: closed-form pose integration from the two motor intents
//   - [ApplyBoundaryConstraints] and [CheckCollision]: keeping the
//     footprint inside the arena and out of walls
//   - [SimulateDistance]: a forward-facing ultrasonic rangefinder
//
// # Coordinates
//
// Positions are arena millimetres with y growing downwards. A heading of 0°
// faces decreasing y and positive angular velocity turns the robot
// counter-clockwise on screen, so the forward unit vector is (-sin h, -cos h).
//
// Every function takes the vehicle by value and returns a new one; the
// caller owns synchronisation.
package physics
