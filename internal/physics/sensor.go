package physics

import (
	"math"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/sim"
)

// OutOfRange is the sentinel reading for no echo within the sensor window.
const OutOfRange = -1

const rayEpsilon = 1e-12

// Rand is the noise source of the sensor. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// SensorOrigin is where the ray starts: SensorOffset ahead of the centre.
func SensorOrigin(v sim.VehicleState, cfg config.SimulationConfig) (float64, float64) {
	fx, fy := Forward(v.Heading)
	return v.X + fx*cfg.SensorOffset, v.Y + fy*cfg.SensorOffset
}

// RayDistance is the exact distance from the sensor to the nearest surface
// straight ahead. ok is false when nothing is hit.
func RayDistance(v sim.VehicleState, obstacles, walls []sim.Rect, cfg config.SimulationConfig) (float64, bool) {
	ox, oy := SensorOrigin(v, cfg)
	dx, dy := Forward(v.Heading)

	if ox < 0 || oy < 0 || ox > cfg.ArenaWidth || oy > cfg.ArenaHeight {
		// sensor pushed through the boundary
		return 0, true
	}

	best := math.Inf(1)
	consider := func(t float64) {
		if t >= 0 && t < best {
			best = t
		}
	}

	if dx > rayEpsilon {
		consider((cfg.ArenaWidth - ox) / dx)
	} else if dx < -rayEpsilon {
		consider(-ox / dx)
	}
	if dy > rayEpsilon {
		consider((cfg.ArenaHeight - oy) / dy)
	} else if dy < -rayEpsilon {
		consider(-oy / dy)
	}

	for _, set := range [][]sim.Rect{obstacles, walls} {
		for _, r := range set {
			if t, hit := rayBox(ox, oy, dx, dy, r); hit {
				consider(t)
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// SimulateDistance returns a noisy reading in whole millimetres, or
// OutOfRange when the true distance falls outside the sensor window. A nil
// rng gives noiseless readings.
func SimulateDistance(v sim.VehicleState, obstacles, walls []sim.Rect, cfg config.SimulationConfig, rng Rand) int {
	d, ok := RayDistance(v, obstacles, walls, cfg)
	if !ok || d < cfg.SensorMinRange || d > cfg.SensorMaxRange {
		return OutOfRange
	}
	if rng != nil && cfg.SensorNoise > 0 {
		d += (rng.Float64()*2 - 1) * cfg.SensorNoise
	}
	return int(math.Max(0, math.Round(d)))
}

// rayBox is the slab test. A ray starting inside r reports distance 0.
func rayBox(ox, oy, dx, dy float64, r sim.Rect) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)

	slab := func(o, d, lo, hi float64) bool {
		if math.Abs(d) < rayEpsilon {
			return o >= lo && o <= hi
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		return tmin <= tmax
	}

	if !slab(ox, dx, r.X, r.MaxX()) || !slab(oy, dy, r.Y, r.MaxY()) {
		return 0, false
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}
