package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/eventlog"
	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/physics"
	"github.com/san-kum/drivesim/internal/script"
	"github.com/san-kum/drivesim/internal/sim"
)

// Controller runs learner scripts against a simulated robot, one session at
// a time. Controllers share no state with each other.
type Controller struct {
	cfg    config.SimulationConfig
	arena  config.Arena
	log    *slog.Logger
	obs    sim.Observers
	eval   goal.Evaluator
	rng    physics.Rand
	rngSet bool

	mu    sync.Mutex
	state State
	sess  *session
}

type session struct {
	mode   Mode
	ctx    context.Context
	cancel context.CancelCauseFunc
	world  *world
	prog   *script.Program
	start  time.Time

	stopped atomic.Bool
	steps   atomic.Int64
	line    atomic.Int64
	misses  eventlog.RangeWarnings

	pauseMu sync.Mutex
	paused  bool
	resume  chan struct{}

	logMu sync.Mutex
	lines []sim.LogLine

	verdict goal.Verdict
	ticks   sync.WaitGroup
	done    chan struct{}
	result  Result
}

func New(cfg *config.Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:   cfg.Simulation,
		arena: cfg.Arena,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.rngSet {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		c.rng = rand.New(rand.NewSource(seed))
	}
	return c, nil
}

func (c *Controller) Config() config.SimulationConfig { return c.cfg }
func (c *Controller) Arena() config.Arena              { return c.arena }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Paused reports whether a step-mode replay is held by Pause.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return false
	}
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	return s.paused
}

// Line is the source line last executed in step mode, or 0.
func (c *Controller) Line() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0
	}
	return int(c.sess.line.Load())
}

// Vehicle returns the state of the current or last session's robot.
func (c *Controller) Vehicle() sim.VehicleState {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return sim.NewVehicle(c.arena.Start, c.cfg.TrailLength)
	}
	return s.world.state()
}

// Run checks src and, if it compiles, starts executing it against a fresh
// world while the physics loop runs at TickInterval. It returns as soon as
// the session has started; use Wait for the outcome.
func (c *Controller) Run(ctx context.Context, name, src string) error {
	prog, err := c.compile(name, src, false)
	if err != nil {
		return err
	}
	s, err := c.begin(ctx, ModeRun, StateRunning, prog)
	if err != nil {
		return err
	}

	stopTicks := make(chan struct{})
	s.ticks.Add(1)
	go c.tickLoop(s, stopTicks)

	go func() {
		err := prog.Run(s.ctx, &liveHost{c: c, s: s}, nil)
		close(stopTicks)
		s.ticks.Wait()
		c.finish(s, err, nil, nil)
	}()
	return nil
}

// RunStepMode traces src against a scratch world and then replays the trace
// one statement per StepDelay. Pause, Resume and Stop act on the replay; a
// pause requested while tracing holds the replay before its first statement.
// A script that fails while tracing ends Errored without moving the robot.
func (c *Controller) RunStepMode(ctx context.Context, name, src string) error {
	prog, err := c.compile(name, src, true)
	if err != nil {
		return err
	}
	s, err := c.begin(ctx, ModeStep, StateTracing, prog)
	if err != nil {
		return err
	}

	go func() {
		trace, runErr := c.traceProgram(s)

		var warning error
		var limit *sim.TraceLimitExceeded
		if errors.As(runErr, &limit) {
			trace.Truncated = true
			warning, runErr = limit, nil
			c.emit(s, sim.LevelWarn, limit.Error())
			c.log.Warn("trace truncated", "steps", limit.Steps, "reason", limit.Reason)
		}
		if errors.Is(runErr, sim.ErrCancelled) || s.stopped.Load() {
			c.finish(s, sim.ErrCancelled, trace, warning)
			return
		}
		if runErr != nil {
			// nothing is replayed for a script that fails while tracing
			c.finish(s, runErr, trace, warning)
			return
		}

		c.setState(s, StatePlaying)
		c.finish(s, c.replay(s, trace), trace, warning)
	}()
	return nil
}

// Stop cancels the active session: the queue is discarded, the motors are
// zeroed and the script unwinds at its next suspension point. Stopping an
// idle controller does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	s, active := c.sess, c.state.Active()
	c.mu.Unlock()
	if s == nil || !active || s.stopped.Swap(true) {
		return
	}
	v := s.world.halt()
	s.cancel(sim.ErrCancelled)
	c.obs.OnRender(v)
	c.log.Info("session stop requested", "mode", s.mode)
}

// Pause holds a step-mode replay before its next statement.
func (c *Controller) Pause() error {
	s, err := c.stepSession()
	if err != nil {
		return err
	}
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if !s.paused {
		s.paused = true
		s.resume = make(chan struct{})
	}
	return nil
}

func (c *Controller) Resume() error {
	s, err := c.stepSession()
	if err != nil {
		return err
	}
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if s.paused {
		s.paused = false
		close(s.resume)
	}
	return nil
}

// Wait blocks until the current session ends and returns its result. With
// no session it returns an idle result at once.
func (c *Controller) Wait() Result {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return Result{State: StateIdle}
	}
	<-s.done
	return s.result
}

func (c *Controller) compile(name, src string, instrument bool) (*script.Program, error) {
	prog, err := script.Compile(name, src, script.Options{Instrument: instrument, MaxMotor: c.cfg.MaxMotor})
	if err != nil {
		c.log.Info("script rejected", "script", name, "err", err)
		c.obs.OnLog(sim.LogLine{Level: sim.LevelError, Message: err.Error()})
		var serr *sim.ScriptSyntaxError
		if errors.As(err, &serr) && serr.Line > 0 {
			c.obs.OnLine(serr.Line, lineOf(src, serr.Line))
		}
		return nil, err
	}
	return prog, nil
}

func (c *Controller) begin(parent context.Context, mode Mode, st State, prog *script.Program) (*session, error) {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return nil, sim.ErrSessionActive
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &session{
		mode:   mode,
		ctx:    ctx,
		cancel: cancel,
		world:  newWorld(c.cfg, c.arena, c.rng, true),
		prog:   prog,
		start:  time.Now(),
		done:   make(chan struct{}),
	}
	c.sess, c.state = s, st
	c.mu.Unlock()

	c.log.Info("session started", "mode", mode, "script", prog.Name, "arena", c.arena.Name)
	c.obs.OnRender(s.world.state())
	return s, nil
}

func (c *Controller) setState(s *session, st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == s {
		c.state = st
	}
}

func (c *Controller) stepSession() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || !c.state.Active() || c.sess.mode != ModeStep {
		return nil, sim.ErrNotStepMode
	}
	return c.sess, nil
}

func (c *Controller) tickLoop(s *session, stop <-chan struct{}) {
	defer s.ticks.Done()
	t := time.NewTicker(c.cfg.TickInterval)
	defer t.Stop()
	dt := c.cfg.TickSeconds()
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-t.C:
			c.step(s, dt)
		}
	}
}

// step runs one physics tick of the real world and notifies observers.
func (c *Controller) step(s *session, dt float64) {
	v, cmds, hit := s.world.tick(dt)
	c.applied(s, cmds)
	if hit != nil {
		c.emit(s, sim.LevelWarn, hit.Error())
		c.log.Warn("collision", "x", hit.At.X, "y", hit.At.Y, "heading", hit.At.Heading)
	}
	c.obs.OnRender(v)
	c.evaluate(s)
}

// applied reports commands that have just reached the vehicle.
func (c *Controller) applied(s *session, cmds []sim.Command) {
	for _, cmd := range cmds {
		if s.mode == ModeRun {
			s.steps.Add(1)
		}
		c.log.Debug("command applied", "cmd", cmd.String())
		if cmd.Kind != sim.CmdReadDistance || s.misses.Log(cmd.Result) {
			c.emit(s, sim.LevelInfo, eventlog.Describe(cmd))
		}
		if cmd.Kind == sim.CmdReadDistance {
			s.world.setReading(cmd.Result)
			c.obs.OnDistance(cmd.Result)
		}
	}
}

func (c *Controller) evaluate(s *session) {
	if c.eval == nil {
		return
	}
	v := c.eval.Evaluate(s.world.snapshot())
	if v == s.verdict {
		return
	}
	s.verdict = v
	switch v {
	case goal.Passed:
		c.emit(s, sim.LevelInfo, fmt.Sprintf("goal passed: %s", c.eval.Name()))
	case goal.Failed:
		c.emit(s, sim.LevelWarn, fmt.Sprintf("goal failed: %s", c.eval.Name()))
	}
}

func (c *Controller) emit(s *session, level sim.Level, msg string) {
	line := sim.LogLine{Level: level, Elapsed: time.Since(s.start), Message: msg}
	s.logMu.Lock()
	s.lines = append(s.lines, line)
	s.logMu.Unlock()
	c.obs.OnLog(line)
}

// finish brakes the vehicle, classifies how the session ended and publishes
// the result.
func (c *Controller) finish(s *session, runErr error, trace *sim.Trace, warning error) {
	cancelled := s.stopped.Load() || s.ctx.Err() != nil || errors.Is(runErr, sim.ErrCancelled)

	final := s.world.halt()
	c.obs.OnRender(final)
	c.evaluate(s)

	state := StateCompleted
	var failure error
	switch {
	case cancelled:
		state = StateStopped
		c.emit(s, sim.LevelInfo, "Program stopped")
		c.log.Info("session stopped", "mode", s.mode)
	case runErr != nil:
		state = StateErrored
		failure = runErr
		var rerr *sim.ScriptRuntimeError
		if errors.As(runErr, &rerr) && rerr.Line > 0 {
			c.obs.OnLine(rerr.Line, s.prog.Line(rerr.Line))
		}
		c.emit(s, sim.LevelError, runErr.Error())
		c.log.Error("script failed", "mode", s.mode, "err", runErr)
	default:
		c.emit(s, sim.LevelInfo, "Program finished; motors stopped")
		c.log.Info("session completed", "mode", s.mode)
	}

	values, simTime, samples := s.world.summary()
	s.logMu.Lock()
	lines := append([]sim.LogLine(nil), s.lines...)
	s.logMu.Unlock()

	res := Result{
		Mode:    s.mode,
		State:   state,
		Final:   final,
		Err:     failure,
		Warning: warning,
		Trace:   trace,
		Steps:   int(s.steps.Load()),
		Elapsed: time.Since(s.start),
		SimTime: simTime,
		Verdict: s.verdict,
		Metrics: values,
		Samples: samples,
		Log:     lines,
	}
	if c.eval != nil {
		res.Goal = c.eval.Name()
	}

	c.mu.Lock()
	s.result = res
	if c.sess == s {
		c.state = state
	}
	c.mu.Unlock()

	s.cancel(context.Canceled)
	close(s.done)
}

func lineOf(src string, n int) string {
	lines := strings.Split(src, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[n-1])
}
