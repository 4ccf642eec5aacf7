package sim

import "math"

// Point is a position in arena millimetres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is an axis-aligned rectangle with its top-left corner at X, Y.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Overlaps reports whether r and o share interior area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.MaxX() && r.MaxX() > o.X && r.Y < o.MaxY() && r.MaxY() > o.Y
}

// Pose is a position plus heading in degrees.
type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

// Wheel direction as last commanded.
const (
	DirStopped  = 0
	DirForward  = 1
	DirBackward = -1
)

type VehicleState struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Heading    float64 `json:"heading"`
	LeftSpeed  float64 `json:"left_speed"`
	RightSpeed float64 `json:"right_speed"`
	LeftDir    int     `json:"left_dir"`
	RightDir   int     `json:"right_dir"`
	IsMoving   bool    `json:"is_moving"`
	Trail      Trail   `json:"-"`
}

// NewVehicle places a stopped vehicle at p with an empty trail holding up to
// trailLen points.
func NewVehicle(p Pose, trailLen int) VehicleState {
	return VehicleState{
		X:       p.X,
		Y:       p.Y,
		Heading: NormalizeHeading(p.Heading),
		Trail:   NewTrail(trailLen),
	}
}

// Clone returns a copy that does not share trail storage.
func (v VehicleState) Clone() VehicleState {
	c := v
	c.Trail = v.Trail.Clone()
	return c
}

func (v VehicleState) Pose() Pose {
	return Pose{X: v.X, Y: v.Y, Heading: v.Heading}
}

// Stop zeroes both motor intents.
func (v *VehicleState) Stop() {
	v.LeftSpeed = 0
	v.RightSpeed = 0
	v.LeftDir = DirStopped
	v.RightDir = DirStopped
	v.IsMoving = false
}

// NormalizeHeading maps any angle in degrees into [0,360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// math.Mod(-1e-17, 360) + 360 rounds to 360
	if h >= 360 {
		h = 0
	}
	return h
}

// HeadingDelta returns the signed shortest rotation from a to b in (-180,180].
func HeadingDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// Trail is a bounded FIFO of recent positions.
type Trail struct {
	points []Point
	limit  int
}

func NewTrail(limit int) Trail {
	if limit < 0 {
		limit = 0
	}
	return Trail{points: make([]Point, 0, limit), limit: limit}
}

// Push appends p, dropping the oldest point once the limit is reached.
func (t *Trail) Push(p Point) {
	if t.limit == 0 {
		return
	}
	if len(t.points) >= t.limit {
		copy(t.points, t.points[1:])
		t.points = t.points[:len(t.points)-1]
	}
	t.points = append(t.points, p)
}

func (t Trail) Len() int   { return len(t.points) }
func (t Trail) Limit() int { return t.limit }

// Points returns a copy of the trail, oldest first.
func (t Trail) Points() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

func (t Trail) Clone() Trail {
	c := Trail{points: make([]Point, len(t.points), t.limit), limit: t.limit}
	copy(c.points, t.points)
	return c
}
