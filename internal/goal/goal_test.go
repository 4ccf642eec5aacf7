package goal

import (
	"testing"

	"github.com/san-kum/drivesim/internal/sim"
)

func TestRotation(t *testing.T) {
	r := Rotation{Degrees: 360}
	if r.Evaluate(Snapshot{HeadingChange: 200}) != Pending {
		t.Error("half a turn should be pending")
	}
	if r.Evaluate(Snapshot{HeadingChange: -361}) != Passed {
		t.Error("a full clockwise turn should pass")
	}
}

func TestReach(t *testing.T) {
	r := Reach{Region: sim.Rect{X: 900, Y: 100, Width: 200, Height: 200}}
	if r.Evaluate(Snapshot{Vehicle: sim.VehicleState{X: 1000, Y: 200}}) != Passed {
		t.Error("centre inside region should pass")
	}
	if r.Evaluate(Snapshot{Vehicle: sim.VehicleState{X: 1000, Y: 500}}) != Pending {
		t.Error("centre outside region should be pending")
	}
}

func TestAll(t *testing.T) {
	e := All(Travel{Millimetres: 100}, NoCollision{})

	if got := e.Evaluate(Snapshot{Distance: 50}); got != Pending {
		t.Errorf("expected pending, got %v", got)
	}
	if got := e.Evaluate(Snapshot{Distance: 150}); got != Passed {
		t.Errorf("expected passed, got %v", got)
	}
	if got := e.Evaluate(Snapshot{Distance: 150, Collisions: 1}); got != Failed {
		t.Errorf("expected failed, got %v", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		wantErr bool
	}{
		{"rotate:360", "rotate 360°", false},
		{"travel:1500", "travel 1500mm", false},
		{"reach:900,100,200,200", "reach (900,100 200x200)", false},
		{"nocollision", "no collisions", false},
		{"rotate", "", true},
		{"reach:1,2", "", true},
		{"travel:far", "", true},
		{"dance:1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			e, err := Parse(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", e.Name(), tt.name)
			}
		})
	}
}
