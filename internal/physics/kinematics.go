package physics

import (
	"math"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/sim"
)

// Below this angular velocity (rad/s) motion is integrated as a straight line.
const omegaEpsilon = 1e-9

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// Forward returns the unit vector a vehicle with the given heading faces.
func Forward(headingDeg float64) (float64, float64) {
	s, c := math.Sincos(headingDeg * deg2rad)
	return -s, -c
}

// Right returns the unit vector pointing to the vehicle's right side.
func Right(headingDeg float64) (float64, float64) {
	s, c := math.Sincos(headingDeg * deg2rad)
	return c, -s
}

// WheelVelocity converts a motor intent to a wheel rim speed in mm/s.
func WheelVelocity(intent float64, cfg config.SimulationConfig) float64 {
	return clamp(intent, -cfg.MaxMotor, cfg.MaxMotor) * cfg.MMPerUnit
}

// WheelRPM is the wheel rotation rate a motor intent produces.
func WheelRPM(intent float64, cfg config.SimulationConfig) float64 {
	if cfg.WheelDiameter <= 0 {
		return 0
	}
	return WheelVelocity(intent, cfg) / (math.Pi * cfg.WheelDiameter) * 60
}

// Velocities returns the body linear (mm/s) and angular (rad/s) velocity.
func Velocities(v sim.VehicleState, cfg config.SimulationConfig) (linear, angular float64) {
	vl := WheelVelocity(v.LeftSpeed, cfg)
	vr := WheelVelocity(v.RightSpeed, cfg)
	return (vl + vr) / 2, (vr - vl) / cfg.WheelBase
}

// Step advances v by dt seconds. A stopped vehicle with zero intents is
// returned unchanged and leaves no trail point.
func Step(v sim.VehicleState, dt float64, cfg config.SimulationConfig) sim.VehicleState {
	if dt <= 0 {
		return v
	}
	if v.LeftSpeed == 0 && v.RightSpeed == 0 && !v.IsMoving {
		return v
	}

	linear, angular := Velocities(v, cfg)
	h0 := v.Heading * deg2rad

	if math.Abs(angular) < omegaEpsilon {
		fx, fy := Forward(v.Heading)
		v.X += fx * linear * dt
		v.Y += fy * linear * dt
	} else {
		r := linear / angular
		h1 := h0 + angular*dt
		v.X += r * (math.Cos(h1) - math.Cos(h0))
		v.Y -= r * (math.Sin(h1) - math.Sin(h0))
	}
	v.Heading = sim.NormalizeHeading(v.Heading + angular*dt*rad2deg)

	v.Trail = v.Trail.Clone()
	v.Trail.Push(sim.Point{X: v.X, Y: v.Y})
	return v
}

// ApplyBoundaryConstraints keeps the vehicle centre at least half a
// footprint away from every arena edge. Rotation is ignored: width bounds x
// and length bounds y.
func ApplyBoundaryConstraints(v sim.VehicleState, cfg config.SimulationConfig) sim.VehicleState {
	hw, hl := cfg.VehicleWidth/2, cfg.VehicleLength/2
	v.X = clamp(v.X, hw, cfg.ArenaWidth-hw)
	v.Y = clamp(v.Y, hl, cfg.ArenaHeight-hl)
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
