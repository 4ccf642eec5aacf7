package physics

import (
	"math"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/sim"
)

// Corners returns the four rotated footprint corners: front-left,
// front-right, rear-right, rear-left.
func Corners(v sim.VehicleState, cfg config.SimulationConfig) [4]sim.Point {
	fx, fy := Forward(v.Heading)
	rx, ry := Right(v.Heading)
	hl, hw := cfg.VehicleLength/2, cfg.VehicleWidth/2

	corner := func(along, across float64) sim.Point {
		return sim.Point{
			X: v.X + fx*along + rx*across,
			Y: v.Y + fy*along + ry*across,
		}
	}
	return [4]sim.Point{
		corner(hl, -hw),
		corner(hl, hw),
		corner(-hl, hw),
		corner(-hl, -hw),
	}
}

// Footprint is the axis-aligned bounding box of the rotated corners.
func Footprint(v sim.VehicleState, cfg config.SimulationConfig) sim.Rect {
	pts := Corners(v, cfg)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return sim.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// CheckCollision reports whether the vehicle's footprint box overlaps any
// obstacle. This is a bounding-box approximation, not an exact rotated
// rectangle test; a diagonal vehicle collides slightly early.
func CheckCollision(v sim.VehicleState, cfg config.SimulationConfig, obstacles []sim.Rect) bool {
	box := Footprint(v, cfg)
	for _, o := range obstacles {
		if box.Overlaps(o) {
			return true
		}
	}
	return false
}
