// Package runner is the execution controller. It owns one simulated world
// per session and drives it either directly, with the script and a fixed
// rate physics loop running side by side, or in step mode, where the script
// is first traced against a scratch world and the trace is then replayed
// one statement at a time.
package runner
