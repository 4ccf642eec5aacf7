package runner_test

import (
	"strings"
	"sync"

	"github.com/san-kum/drivesim/internal/sim"
)

// recorder is an observer that keeps everything it is told.
type recorder struct {
	mu      sync.Mutex
	renders int
	last    sim.VehicleState
	dists   []int
	logs    []sim.LogLine
	lines   chan int
}

func newRecorder() *recorder {
	return &recorder{lines: make(chan int, 256)}
}

func (r *recorder) OnRender(v sim.VehicleState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	r.last = v
}

func (r *recorder) OnDistance(mm int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dists = append(r.dists, mm)
}

func (r *recorder) OnLine(line int, _ string) {
	select {
	case r.lines <- line:
	default:
	}
}

func (r *recorder) OnLog(l sim.LogLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}

func (r *recorder) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

func (r *recorder) lastY() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Y
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.logs))
	for i, l := range r.logs {
		out[i] = l.Message
	}
	return out
}

func (r *recorder) logged(substr string) bool {
	for _, m := range r.messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
