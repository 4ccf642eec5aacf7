// Package goal defines how challenge checks observe a session.
//
// The runner publishes a [Snapshot] every tick; an [Evaluator] decides
// whether the learner has met a goal. The runner itself knows nothing about
// challenges.
package goal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/drivesim/internal/sim"
)

// Snapshot is a read-only view of a session at one tick.
type Snapshot struct {
	Vehicle       sim.VehicleState
	Elapsed       float64 // simulated seconds
	HeadingChange float64 // signed degrees, counter-clockwise positive
	MinX, MaxX    float64
	MinY, MaxY    float64
	Distance      float64 // mm driven
	Collisions    int
	LastReading   int
}

type Verdict int

const (
	Pending Verdict = iota
	Passed
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

type Evaluator interface {
	Name() string
	Evaluate(s Snapshot) Verdict
}

// Rotation passes once the vehicle has turned Degrees in either direction.
type Rotation struct {
	Degrees float64
}

func (r Rotation) Name() string { return fmt.Sprintf("rotate %g°", r.Degrees) }

func (r Rotation) Evaluate(s Snapshot) Verdict {
	turned := s.HeadingChange
	if turned < 0 {
		turned = -turned
	}
	if turned >= r.Degrees {
		return Passed
	}
	return Pending
}

// Reach passes when the vehicle centre is inside Region.
type Reach struct {
	Region sim.Rect
}

func (r Reach) Name() string {
	return fmt.Sprintf("reach (%g,%g %gx%g)", r.Region.X, r.Region.Y, r.Region.Width, r.Region.Height)
}

func (r Reach) Evaluate(s Snapshot) Verdict {
	v := s.Vehicle
	if v.X >= r.Region.X && v.X <= r.Region.MaxX() && v.Y >= r.Region.Y && v.Y <= r.Region.MaxY() {
		return Passed
	}
	return Pending
}

// Travel passes after Millimetres of driving.
type Travel struct {
	Millimetres float64
}

func (t Travel) Name() string { return fmt.Sprintf("travel %gmm", t.Millimetres) }

func (t Travel) Evaluate(s Snapshot) Verdict {
	if s.Distance >= t.Millimetres {
		return Passed
	}
	return Pending
}

// NoCollision fails on the first collision.
type NoCollision struct{}

func (NoCollision) Name() string { return "no collisions" }

func (NoCollision) Evaluate(s Snapshot) Verdict {
	if s.Collisions > 0 {
		return Failed
	}
	return Passed
}

type all []Evaluator

// All passes when every evaluator passes and fails as soon as one fails.
func All(evals ...Evaluator) Evaluator { return all(evals) }

func (a all) Name() string {
	names := make([]string, len(a))
	for i, e := range a {
		names[i] = e.Name()
	}
	return strings.Join(names, " and ")
}

func (a all) Evaluate(s Snapshot) Verdict {
	result := Passed
	for _, e := range a {
		switch e.Evaluate(s) {
		case Failed:
			return Failed
		case Pending:
			result = Pending
		}
	}
	return result
}

// Parse builds an evaluator from a CLI spec such as "rotate:360",
// "travel:1500", "reach:900,100,200,200" or "nocollision".
func Parse(spec string) (Evaluator, error) {
	kind, arg, _ := strings.Cut(spec, ":")
	nums, err := parseFloats(arg)
	if err != nil {
		return nil, fmt.Errorf("goal %q: %w", spec, err)
	}

	switch kind {
	case "rotate":
		if len(nums) != 1 {
			return nil, fmt.Errorf("goal %q: want rotate:<degrees>", spec)
		}
		return Rotation{Degrees: nums[0]}, nil
	case "travel":
		if len(nums) != 1 {
			return nil, fmt.Errorf("goal %q: want travel:<mm>", spec)
		}
		return Travel{Millimetres: nums[0]}, nil
	case "reach":
		if len(nums) != 4 {
			return nil, fmt.Errorf("goal %q: want reach:<x>,<y>,<w>,<h>", spec)
		}
		return Reach{Region: sim.Rect{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}}, nil
	case "nocollision":
		return NoCollision{}, nil
	default:
		return nil, fmt.Errorf("unknown goal %q", kind)
	}
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
