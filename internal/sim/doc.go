// Package sim holds the data model shared by the drive simulator.
//
// The package defines the types every other layer passes around:
//
//   - [VehicleState]: pose, motor intents and trail of the simulated robot
//   - [Rect]: axis-aligned wall or obstacle
//   - [Command]: tagged intent emitted by the learner's script
//   - [Queue]: the command bridge between the script and the controller
//   - [TraceEntry]: one instrumented statement captured in step mode
//   - [Observer]: sinks for render, distance, line and log notifications
//
// # Thread Safety
//
// [Queue] is safe for one producer and one consumer. [VehicleState] values
// are plain data; the runner serialises mutation behind its world lock.
package sim
