package runner

import (
	"context"
	"errors"
	"time"

	"github.com/san-kum/drivesim/internal/sim"
)

// traceProgram runs the instrumented program against a scratch copy of the
// session world, bounded by MaxTraceSteps and MaxTraceTime.
func (c *Controller) traceProgram(s *session) (*sim.Trace, error) {
	start := time.Now()
	timeLimit := &sim.TraceLimitExceeded{Reason: "tracing took longer than " + c.cfg.MaxTraceTime.String()}
	ctx, cancel := context.WithTimeoutCause(s.ctx, c.cfg.MaxTraceTime, timeLimit)
	defer cancel()

	h := &traceHost{
		ctx:      ctx,
		world:    s.world.scratch(),
		trace:    &sim.Trace{},
		maxSteps: c.cfg.MaxTraceSteps,
		dt:       c.cfg.TickSeconds(),
	}
	err := s.prog.Run(ctx, h, h)

	var limit *sim.TraceLimitExceeded
	if errors.As(err, &limit) {
		limit.Steps = h.trace.Len()
		limit.Elapsed = time.Since(start)
	}
	c.log.Debug("trace recorded", "steps", h.trace.Len(), "elapsed", time.Since(start), "err", err)
	return h.trace, err
}

// replay applies the trace to the real world one entry at a time. Each
// entry gets one physics tick and a render, then StepDelay of wall time.
func (c *Controller) replay(s *session, trace *sim.Trace) error {
	dt := c.cfg.TickSeconds()
	for i := range trace.Entries {
		if err := s.waitIfPaused(); err != nil {
			return err
		}
		if s.stopped.Load() || s.ctx.Err() != nil {
			return sim.ErrCancelled
		}

		e := &trace.Entries[i]
		s.line.Store(int64(e.Line))
		s.steps.Add(1)
		c.obs.OnLine(e.Line, e.Source)
		for _, out := range e.Output {
			c.emit(s, sim.LevelInfo, out)
		}

		for _, cmd := range e.Commands {
			if cmd.Kind == sim.CmdHoldState {
				if err := c.hold(s, cmd, dt); err != nil {
					return err
				}
				continue
			}
			s.world.queue.Enqueue(cmd)
		}
		c.step(s, dt)

		if err := s.sleep(c.cfg.StepDelay); err != nil {
			return err
		}
	}
	return nil
}

// hold advances the real world through a held interval tick by tick, one
// tick per TickInterval/SpeedMultiplier of wall time.
func (c *Controller) hold(s *session, cmd sim.Command, dt float64) error {
	s.world.queue.Enqueue(cmd)
	n := ticksFor(cmd.Seconds, dt)
	if n == 0 {
		return nil
	}
	pace := time.Duration(float64(c.cfg.TickInterval) / c.cfg.SpeedMultiplier)
	if pace <= 0 {
		pace = time.Millisecond
	}
	t := time.NewTicker(pace)
	defer t.Stop()
	c.step(s, dt)
	for i := 1; i < n; i++ {
		select {
		case <-s.ctx.Done():
			return sim.ErrCancelled
		case <-t.C:
		}
		c.step(s, dt)
	}
	return nil
}

func (s *session) waitIfPaused() error {
	s.pauseMu.Lock()
	paused, resume := s.paused, s.resume
	s.pauseMu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-resume:
		return nil
	case <-s.ctx.Done():
		return sim.ErrCancelled
	}
}

func (s *session) sleep(d time.Duration) error {
	if d <= 0 {
		if s.ctx.Err() != nil {
			return sim.ErrCancelled
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.ctx.Done():
		return sim.ErrCancelled
	}
}
