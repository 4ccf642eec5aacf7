package runner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/drivesim/internal/sim"
)

// liveHost binds a direct run to the real world. Every call first checks
// the stop flag, then drains the queue so intents apply at once.
type liveHost struct {
	c *Controller
	s *session
}

func (h *liveHost) cancelled() bool {
	return h.s.stopped.Load() || h.s.ctx.Err() != nil
}

func (h *liveHost) Yield() error {
	if h.cancelled() {
		return sim.ErrCancelled
	}
	h.c.applied(h.s, h.s.world.drain())
	return nil
}

func (h *liveHost) Command(cmd sim.Command) error {
	if h.cancelled() {
		return sim.ErrCancelled
	}
	h.s.world.queue.Enqueue(cmd)
	return h.Yield()
}

func (h *liveHost) ReadDistance() (int, error) {
	if h.cancelled() {
		return 0, sim.ErrCancelled
	}
	mm := h.s.world.read()
	h.s.world.queue.Enqueue(sim.ReadDistance(mm))
	return mm, h.Yield()
}

// Hold waits seconds of simulated time on the wall clock while the tick
// loop keeps integrating the current intents.
func (h *liveHost) Hold(seconds float64) error {
	if err := h.Command(sim.HoldState(seconds)); err != nil {
		return err
	}
	wait := seconds / h.c.cfg.SpeedMultiplier * float64(time.Second)
	if wait >= math.MaxInt64 {
		// longer than a Duration can hold; only Stop ends it
		<-h.s.ctx.Done()
		return sim.ErrCancelled
	}
	if wait > 0 {
		t := time.NewTimer(time.Duration(wait))
		defer t.Stop()
		select {
		case <-t.C:
		case <-h.s.ctx.Done():
			return sim.ErrCancelled
		}
	}
	return h.Yield()
}

func (h *liveHost) Vehicle() sim.VehicleState { return h.s.world.state() }

func (h *liveHost) Print(msg string) { h.c.emit(h.s, sim.LevelInfo, msg) }

// traceHost records an instrumented run against a scratch world on a
// virtual clock. hold_state integrates the scratch vehicle without waiting.
type traceHost struct {
	ctx      context.Context
	world    *world
	trace    *sim.Trace
	maxSteps int
	dt       float64
}

func (h *traceHost) check() error {
	if h.ctx.Err() != nil {
		return context.Cause(h.ctx)
	}
	return nil
}

func (h *traceHost) Statement(line int, source string) error {
	if err := h.check(); err != nil {
		return err
	}
	if h.trace.Len() >= h.maxSteps {
		return &sim.TraceLimitExceeded{Reason: fmt.Sprintf("more than %d steps", h.maxSteps)}
	}
	h.trace.Begin(line, source)
	return nil
}

func (h *traceHost) Command(cmd sim.Command) error {
	if err := h.check(); err != nil {
		return err
	}
	h.world.queue.Enqueue(cmd)
	h.world.drain()
	h.trace.Record(cmd)
	return nil
}

func (h *traceHost) ReadDistance() (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	mm := h.world.read()
	h.trace.Record(sim.ReadDistance(mm))
	return mm, nil
}

func (h *traceHost) Hold(seconds float64) error {
	if err := h.check(); err != nil {
		return err
	}
	h.trace.Record(sim.HoldState(seconds))
	for i, n := 0, ticksFor(seconds, h.dt); i < n; i++ {
		if i%1024 == 0 {
			if err := h.check(); err != nil {
				return err
			}
		}
		h.world.tick(h.dt)
	}
	return nil
}

func (h *traceHost) Yield() error { return h.check() }

func (h *traceHost) Vehicle() sim.VehicleState { return h.world.state() }

func (h *traceHost) Print(msg string) { h.trace.Print(msg) }

// ticksFor is the number of physics ticks covering seconds of simulated time,
// saturating at math.MaxInt.
func ticksFor(seconds, dt float64) int {
	if dt <= 0 || seconds <= 0 {
		return 0
	}
	n := math.Round(seconds / dt)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}
