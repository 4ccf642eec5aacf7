package script_test

import (
	"sync"

	"github.com/san-kum/drivesim/internal/sim"
)

// recordingHost applies commands to a vehicle without any physics.
type recordingHost struct {
	mu       sync.Mutex
	vehicle  sim.VehicleState
	commands []sim.Command
	holds    []float64
	printed  []string
	distance int
	yields   int
	err      error
}

func newRecordingHost() *recordingHost {
	return &recordingHost{vehicle: sim.NewVehicle(sim.Pose{}, 10), distance: 420}
}

func (h *recordingHost) Command(c sim.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.commands = append(h.commands, c)
	h.vehicle = sim.Apply(h.vehicle, c)
	return nil
}

func (h *recordingHost) ReadDistance() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	h.commands = append(h.commands, sim.ReadDistance(h.distance))
	return h.distance, nil
}

func (h *recordingHost) Hold(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.holds = append(h.holds, seconds)
	return h.err
}

func (h *recordingHost) Yield() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.yields++
	return h.err
}

func (h *recordingHost) Vehicle() sim.VehicleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vehicle
}

func (h *recordingHost) Print(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.printed = append(h.printed, msg)
}

func (h *recordingHost) kinds() []sim.CommandKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]sim.CommandKind, len(h.commands))
	for i, c := range h.commands {
		out[i] = c.Kind
	}
	return out
}

type lineTracer struct {
	lines   []int
	sources []string
}

func (t *lineTracer) Statement(line int, source string) error {
	t.lines = append(t.lines, line)
	t.sources = append(t.sources, source)
	return nil
}
