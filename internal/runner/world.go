package runner

import (
	"sync"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/metrics"
	"github.com/san-kum/drivesim/internal/physics"
	"github.com/san-kum/drivesim/internal/sim"
)

// world is the mutable simulation of one session. Every method locks.
type world struct {
	mu sync.Mutex

	cfg       config.SimulationConfig
	walls     []sim.Rect
	obstacles []sim.Rect
	solids    []sim.Rect
	rng       physics.Rand

	vehicle     sim.VehicleState
	queue       *sim.Queue
	tracker     *metrics.Tracker
	simTime     float64
	collisions  int
	lastReading int
	samples     []Sample
	record      bool
}

func newWorld(cfg config.SimulationConfig, arena config.Arena, rng physics.Rand, record bool) *world {
	w := &world{
		cfg:         cfg,
		walls:       arena.Walls,
		obstacles:   arena.Obstacles,
		rng:         rng,
		vehicle:     sim.NewVehicle(arena.Start, cfg.TrailLength),
		queue:       sim.NewQueue(),
		tracker:     metrics.NewTracker(),
		lastReading: physics.OutOfRange,
		record:      record,
	}
	w.solids = append(append([]sim.Rect(nil), arena.Walls...), arena.Obstacles...)
	w.tracker.Observe(w.vehicle, 0)
	return w
}

// scratch copies the world for tracing. The copy shares nothing mutable.
func (w *world) scratch() *world {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := &world{
		cfg:         w.cfg,
		walls:       w.walls,
		obstacles:   w.obstacles,
		solids:      w.solids,
		rng:         w.rng,
		vehicle:     w.vehicle.Clone(),
		queue:       sim.NewQueue(),
		tracker:     metrics.NewTracker(),
		simTime:     w.simTime,
		lastReading: w.lastReading,
	}
	s.tracker.Observe(s.vehicle, s.simTime)
	return s
}

// drain applies every queued command to the intents and returns them.
func (w *world) drain() []sim.Command {
	cmds := w.queue.DrainAll()
	if len(cmds) == 0 {
		return nil
	}
	w.mu.Lock()
	w.vehicle = sim.ApplyAll(w.vehicle, cmds)
	w.mu.Unlock()
	return cmds
}

// tick drains the queue and integrates one step of dt simulated seconds. A
// step that would overlap a wall or obstacle is undone and the motors are
// stopped.
func (w *world) tick(dt float64) (sim.VehicleState, []sim.Command, *sim.CollisionDetected) {
	cmds := w.drain()

	w.mu.Lock()
	defer w.mu.Unlock()

	var hit *sim.CollisionDetected
	next := physics.Step(w.vehicle, dt, w.cfg)
	next = physics.ApplyBoundaryConstraints(next, w.cfg)
	moved := next.X != w.vehicle.X || next.Y != w.vehicle.Y || next.Heading != w.vehicle.Heading
	if moved && len(w.solids) > 0 && physics.CheckCollision(next, w.cfg, w.solids) {
		hit = &sim.CollisionDetected{At: next.Pose()}
		next = w.vehicle
		next.Stop()
		w.collisions++
	}
	w.vehicle = next
	w.simTime += dt
	w.tracker.Observe(w.vehicle, w.simTime)

	if w.record {
		w.samples = append(w.samples, Sample{
			Time:     w.simTime,
			X:        w.vehicle.X,
			Y:        w.vehicle.Y,
			Heading:  w.vehicle.Heading,
			Left:     w.vehicle.LeftSpeed,
			Right:    w.vehicle.RightSpeed,
			Distance: w.lastReading,
		})
	}
	return w.vehicle.Clone(), cmds, hit
}

// read samples the rangefinder against the current state.
func (w *world) read() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	mm := physics.SimulateDistance(w.vehicle, w.obstacles, w.walls, w.cfg, w.rng)
	w.lastReading = mm
	return mm
}

func (w *world) setReading(mm int) {
	w.mu.Lock()
	w.lastReading = mm
	w.mu.Unlock()
}

func (w *world) state() sim.VehicleState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vehicle.Clone()
}

// halt drops queued commands and zeroes the motors.
func (w *world) halt() sim.VehicleState {
	w.queue.Discard()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vehicle.Stop()
	return w.vehicle.Clone()
}

func (w *world) snapshot() goal.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return goal.Snapshot{
		Vehicle:       w.vehicle.Clone(),
		Elapsed:       w.simTime,
		HeadingChange: w.tracker.Heading.Value(),
		MinX:          w.tracker.Extents.MinX,
		MaxX:          w.tracker.Extents.MaxX,
		MinY:          w.tracker.Extents.MinY,
		MaxY:          w.tracker.Extents.MaxY,
		Distance:      w.tracker.Path.Value(),
		Collisions:    w.collisions,
		LastReading:   w.lastReading,
	}
}

func (w *world) summary() (map[string]float64, float64, []Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	values := w.tracker.Values()
	values["collisions"] = float64(w.collisions)
	return values, w.simTime, append([]Sample(nil), w.samples...)
}
