package config

import (
	"sort"

	"github.com/san-kum/drivesim/internal/sim"
)

// Presets are built-in arenas sized for the default 2000x2000 mm floor.
var Presets = map[string]*Arena{
	"empty": {
		Name:  "empty",
		Start: sim.Pose{X: 1000, Y: 1000, Heading: 0},
	},
	"wall_ahead": {
		Name:  "wall_ahead",
		Start: sim.Pose{X: 1000, Y: 1700, Heading: 0},
		Walls: []sim.Rect{
			{X: 600, Y: 900, Width: 800, Height: 40},
		},
	},
	"corridor": {
		Name:  "corridor",
		Start: sim.Pose{X: 1000, Y: 1850, Heading: 0},
		Walls: []sim.Rect{
			{X: 800, Y: 200, Width: 30, Height: 1800},
			{X: 1170, Y: 200, Width: 30, Height: 1800},
		},
	},
	"slalom": {
		Name:  "slalom",
		Start: sim.Pose{X: 1000, Y: 1850, Heading: 0},
		Obstacles: []sim.Rect{
			{X: 850, Y: 1400, Width: 120, Height: 120},
			{X: 1050, Y: 1000, Width: 120, Height: 120},
			{X: 850, Y: 600, Width: 120, Height: 120},
		},
	},
}

// GetPreset returns a copy of the named arena, or nil.
func GetPreset(name string) *Arena {
	a, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *a
	c.Walls = append([]sim.Rect(nil), a.Walls...)
	c.Obstacles = append([]sim.Rect(nil), a.Obstacles...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
