// Package metrics accumulates per-tick statistics of a drive session.
//
// Goal evaluation reads these rather than raw state, so challenge checks such
// as "turn a full circle" stay independent of how often they sample.
package metrics

import (
	"math"

	"github.com/san-kum/drivesim/internal/sim"
)

type Metric interface {
	Name() string
	Observe(v sim.VehicleState, t float64)
	Value() float64
	Reset()
}

// HeadingChange sums the signed, wraparound-corrected heading delta between
// consecutive observations. Counter-clockwise turns are positive.
type HeadingChange struct {
	last    float64
	total   float64
	samples int
}

func NewHeadingChange() *HeadingChange { return &HeadingChange{} }

func (h *HeadingChange) Name() string { return "heading_change" }

func (h *HeadingChange) Observe(v sim.VehicleState, t float64) {
	if h.samples > 0 {
		h.total += sim.HeadingDelta(h.last, v.Heading)
	}
	h.last = v.Heading
	h.samples++
}

func (h *HeadingChange) Value() float64 { return h.total }

func (h *HeadingChange) Reset() {
	h.last, h.total, h.samples = 0, 0, 0
}

// Extents tracks the bounding box of every observed position.
type Extents struct {
	MinX, MaxX float64
	MinY, MaxY float64
	samples    int
}

func NewExtents() *Extents { return &Extents{} }

func (e *Extents) Name() string { return "extent_area" }

func (e *Extents) Observe(v sim.VehicleState, t float64) {
	if e.samples == 0 {
		e.MinX, e.MaxX, e.MinY, e.MaxY = v.X, v.X, v.Y, v.Y
	} else {
		e.MinX = math.Min(e.MinX, v.X)
		e.MaxX = math.Max(e.MaxX, v.X)
		e.MinY = math.Min(e.MinY, v.Y)
		e.MaxY = math.Max(e.MaxY, v.Y)
	}
	e.samples++
}

// Value is the area of the explored box in mm².
func (e *Extents) Value() float64 {
	return (e.MaxX - e.MinX) * (e.MaxY - e.MinY)
}

func (e *Extents) Reset() { *e = Extents{} }

// PathLength is the distance driven by the vehicle centre.
type PathLength struct {
	lastX, lastY float64
	total        float64
	samples      int
}

func NewPathLength() *PathLength { return &PathLength{} }

func (p *PathLength) Name() string { return "path_length" }

func (p *PathLength) Observe(v sim.VehicleState, t float64) {
	if p.samples > 0 {
		p.total += math.Hypot(v.X-p.lastX, v.Y-p.lastY)
	}
	p.lastX, p.lastY = v.X, v.Y
	p.samples++
}

func (p *PathLength) Value() float64 { return p.total }

func (p *PathLength) Reset() { *p = PathLength{} }
