package tui

import (
	"math"
	"strings"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/physics"
	"github.com/san-kum/drivesim/internal/sim"
)

const (
	gridWidth  = 60
	gridHeight = 24
)

const (
	wallRune     = '#'
	obstacleRune = '%'
	trailRune    = '.'
	beamRune     = '\''
)

// Heading 0 faces up the screen and headings grow counter-clockwise.
var arrows = [8]rune{'↑', '↖', '←', '↙', '↓', '↘', '→', '↗'}

// grid is the arena scaled down to a character canvas. Row 0 is y=0.
type grid struct {
	cfg    config.SimulationConfig
	w, h   int
	canvas [][]rune
}

func newGrid(cfg config.SimulationConfig, w, h int) *grid {
	g := &grid{cfg: cfg, w: w, h: h, canvas: make([][]rune, h)}
	for i := range g.canvas {
		g.canvas[i] = make([]rune, w)
		for j := range g.canvas[i] {
			g.canvas[i][j] = ' '
		}
	}
	return g
}

func (g *grid) cell(x, y float64) (int, int) {
	cx := int(x / g.cfg.ArenaWidth * float64(g.w-1))
	cy := int(y / g.cfg.ArenaHeight * float64(g.h-1))
	return cx, cy
}

func (g *grid) set(x, y int, c rune) {
	if x >= 0 && x < g.w && y >= 0 && y < g.h {
		g.canvas[y][x] = c
	}
}

func (g *grid) line(x0, y0, x1, y1 int, c rune) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		g.set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (g *grid) fill(r sim.Rect, c rune) {
	x0, y0 := g.cell(r.X, r.Y)
	x1, y1 := g.cell(r.MaxX(), r.MaxY())
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.set(x, y, c)
		}
	}
}

func (g *grid) drawArena(a config.Arena) {
	for _, w := range a.Walls {
		g.fill(w, wallRune)
	}
	for _, o := range a.Obstacles {
		g.fill(o, obstacleRune)
	}
}

func (g *grid) drawTrail(points []sim.Point) {
	for _, p := range points {
		x, y := g.cell(p.X, p.Y)
		g.set(x, y, trailRune)
	}
}

// drawBeam marks the sensor ray up to the last reading. Readings of -1 draw
// nothing.
func (g *grid) drawBeam(v sim.VehicleState, mm int) {
	if mm <= 0 {
		return
	}
	ox, oy := physics.SensorOrigin(v, g.cfg)
	fx, fy := physics.Forward(v.Heading)
	x0, y0 := g.cell(ox, oy)
	x1, y1 := g.cell(ox+fx*float64(mm), oy+fy*float64(mm))
	g.line(x0, y0, x1, y1, beamRune)
}

func (g *grid) drawVehicle(v sim.VehicleState) {
	x, y := g.cell(v.X, v.Y)
	g.set(x, y, arrow(v.Heading))
}

func (g *grid) String() string {
	var b strings.Builder
	for i, row := range g.canvas {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

// renderArena draws one frame: walls, obstacles, trail, sensor beam and the
// vehicle on top.
func renderArena(cfg config.SimulationConfig, a config.Arena, v sim.VehicleState, mm int) string {
	g := newGrid(cfg, gridWidth, gridHeight)
	g.drawArena(a)
	g.drawTrail(v.Trail.Points())
	g.drawBeam(v, mm)
	g.drawVehicle(v)
	return g.String()
}

func arrow(heading float64) rune {
	i := int(math.Round(sim.NormalizeHeading(heading)/45)) % len(arrows)
	return arrows[i]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
