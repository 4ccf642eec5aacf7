package metrics

import "github.com/san-kum/drivesim/internal/sim"

// Tracker bundles the session metrics the goal snapshot is built from.
type Tracker struct {
	Heading *HeadingChange
	Extents *Extents
	Path    *PathLength

	extra []Metric
	time  float64
}

func NewTracker(extra ...Metric) *Tracker {
	return &Tracker{
		Heading: NewHeadingChange(),
		Extents: NewExtents(),
		Path:    NewPathLength(),
		extra:   extra,
	}
}

func (t *Tracker) metrics() []Metric {
	return append([]Metric{t.Heading, t.Extents, t.Path}, t.extra...)
}

func (t *Tracker) Observe(v sim.VehicleState, simTime float64) {
	t.time = simTime
	for _, m := range t.metrics() {
		m.Observe(v, simTime)
	}
}

// Elapsed is the simulated time of the latest observation.
func (t *Tracker) Elapsed() float64 { return t.time }

func (t *Tracker) Reset() {
	t.time = 0
	for _, m := range t.metrics() {
		m.Reset()
	}
}

// Values reports every metric by name.
func (t *Tracker) Values() map[string]float64 {
	out := make(map[string]float64)
	for _, m := range t.metrics() {
		out[m.Name()] = m.Value()
	}
	return out
}
