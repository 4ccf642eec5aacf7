package runner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/sim"
)

func src(lines ...string) string { return strings.Join(lines, "\n") + "\n" }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Simulation.TickInterval = 2 * time.Millisecond
	cfg.Simulation.StepDelay = 5 * time.Millisecond
	cfg.Simulation.MaxTraceSteps = 200
	cfg.Seed = 1
	return cfg
}

func newController(cfg *config.Config, opts ...runner.Option) *runner.Controller {
	GinkgoHelper()
	opts = append([]runner.Option{
		runner.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		runner.WithRand(nil),
	}, opts...)
	c, err := runner.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

func waitResult(c *runner.Controller) runner.Result {
	GinkgoHelper()
	done := make(chan runner.Result, 1)
	go func() { done <- c.Wait() }()
	var res runner.Result
	Eventually(done, "5s").Should(Receive(&res))
	return res
}

// watchStates records each state c passes through until a session ends.
func watchStates(c *runner.Controller) <-chan []runner.State {
	out := make(chan []runner.State, 1)
	go func() {
		var seen []runner.State
		for {
			st := c.State()
			if len(seen) == 0 || seen[len(seen)-1] != st {
				seen = append(seen, st)
			}
			if st != runner.StateIdle && !st.Active() {
				out <- seen
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()
	return out
}

var _ = Describe("Controller", func() {
	var (
		cfg *config.Config
		rec *recorder
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = testConfig()
		rec = newRecorder()
		ctx = context.Background()
	})

	It("rejects an invalid config", func() {
		cfg.Simulation.WheelBase = 0
		_, err := runner.New(cfg)
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	Describe("direct run", func() {
		It("drives, holds and completes with the motors braked", func() {
			c := newController(cfg, runner.WithObserver(rec), runner.WithEvaluator(goal.Travel{Millimetres: 10}))
			Expect(c.Run(ctx, "main.py", src(
				"from aidriver import AIDriver, hold_state",
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"hold_state(0.2)",
				"r.brake()",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Final.IsMoving).To(BeFalse())
			Expect(res.Final.Y).To(BeNumerically("<", 990))
			Expect(res.Final.X).To(BeNumerically("~", 1000, 0.001))
			Expect(res.Verdict).To(Equal(goal.Passed))
			Expect(res.Metrics["path_length"]).To(BeNumerically(">", 10))
			Expect(res.Samples).NotTo(BeEmpty())
			Expect(c.State()).To(Equal(runner.StateCompleted))
			Expect(rec.logged("Drive forward at normal speed (R=200, L=200)")).To(BeTrue())
			Expect(rec.logged("Robot holding state for 0.20 second(s)")).To(BeTrue())
			Expect(rec.logged("Brake applied; motors stopping")).To(BeTrue())
		})

		It("blocks start on a syntax error without touching the world", func() {
			c := newController(cfg, runner.WithObserver(rec))
			err := c.Run(ctx, "main.py", src("r = AIDriver(", "r.brake()"))

			var serr *sim.ScriptSyntaxError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(c.State()).To(Equal(runner.StateIdle))
			Expect(rec.renderCount()).To(BeZero())
		})

		It("reports runtime errors with their line and zeroes the motors", func() {
			c := newController(cfg)
			Expect(c.Run(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"r.rotate_left(-5)",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateErrored))
			var rerr *sim.ScriptRuntimeError
			Expect(errors.As(res.Err, &rerr)).To(BeTrue())
			Expect(rerr.Line).To(Equal(3))
			Expect(res.Final.LeftSpeed).To(BeZero())
			Expect(res.Final.RightSpeed).To(BeZero())
		})

		It("keeps integrating while the script holds and stops cleanly", func() {
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.Run(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"hold_state(30)",
				"r.brake()",
			))).To(Succeed())

			Eventually(rec.lastY).Should(BeNumerically("<", 990))
			y := rec.lastY()
			Eventually(rec.lastY).Should(BeNumerically("<", y-5))

			c.Stop()
			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateStopped))
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Final.LeftSpeed).To(BeZero())
			Expect(res.Final.RightSpeed).To(BeZero())
			Expect(res.Final.IsMoving).To(BeFalse())
			Expect(rec.logged("Brake applied")).To(BeFalse())
		})

		It("interrupts loops that never call the driver", func() {
			c := newController(cfg)
			Expect(c.Run(ctx, "main.py", src("n = 0", "while True:", "    n += 1"))).To(Succeed())
			Eventually(c.State).Should(Equal(runner.StateRunning))

			c.Stop()
			Expect(waitResult(c).State).To(Equal(runner.StateStopped))
		})

		It("waits out holds too long for a timer until stopped", func() {
			c := newController(cfg)
			Expect(c.Run(ctx, "main.py", src("hold_state(1e300)"))).To(Succeed())
			Consistently(c.State, "200ms").Should(Equal(runner.StateRunning))

			c.Stop()
			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateStopped))
			Expect(res.Err).NotTo(HaveOccurred())
		})

		It("logs at most three out of range readings in a row", func() {
			cfg.Arena = *config.GetPreset("empty")
			cfg.Simulation.SensorMaxRange = 200
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.Run(ctx, "main.py", src(
				"r = AIDriver()",
				"for i in range(6):",
				"    r.read_distance()",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			n := 0
			for _, m := range rec.messages() {
				if m == "ultrasonic: out of range" {
					n++
				}
			}
			Expect(n).To(Equal(3))
		})

		It("allows one active session per controller", func() {
			c := newController(cfg)
			Expect(c.Run(ctx, "main.py", src("hold_state(30)"))).To(Succeed())
			Expect(c.Run(ctx, "main.py", src("hold_state(1)"))).To(MatchError(sim.ErrSessionActive))
			Expect(c.RunStepMode(ctx, "main.py", src("hold_state(1)"))).To(MatchError(sim.ErrSessionActive))
			Expect(c.Pause()).To(MatchError(sim.ErrNotStepMode))

			c.Stop()
			waitResult(c)
			Expect(c.Run(ctx, "main.py", src("x = 1"))).To(Succeed())
			Expect(waitResult(c).State).To(Equal(runner.StateCompleted))
		})

		It("senses walls and halts on contact", func() {
			cfg.Arena = *config.GetPreset("wall_ahead")
			cfg.Simulation.SpeedMultiplier = 10
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.Run(ctx, "main.py", src(
				"r = AIDriver()",
				"d = r.read_distance()",
				"r.drive_forward(255, 255)",
				"hold_state(10)",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(rec.logged("distance reading: 685 mm")).To(BeTrue())
			Expect(rec.logged("collision at")).To(BeTrue())
			Expect(res.Metrics["collisions"]).To(BeNumerically(">=", 1))
			Expect(res.Final.Y - cfg.Simulation.VehicleLength/2).To(BeNumerically(">=", 940))
		})
	})

	Describe("step mode", func() {
		It("replays a trace statement by statement", func() {
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"from aidriver import AIDriver, hold_state",
				"r = AIDriver()",
				"for i in range(2):",
				"    r.rotate_left(150)",
				"r.brake()",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(res.Trace.Len()).To(Equal(6))
			Expect(res.Steps).To(Equal(6))

			var seen []int
			for len(rec.lines) > 0 {
				seen = append(seen, <-rec.lines)
			}
			Expect(seen).To(Equal([]int{1, 2, 3, 4, 4, 5}))
		})

		It("truncates runaway scripts and replays the partial trace", func() {
			cfg.Simulation.MaxTraceSteps = 20
			cfg.Simulation.StepDelay = 0
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"while True:",
				"    r.rotate_left(150)",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			var limit *sim.TraceLimitExceeded
			Expect(errors.As(res.Warning, &limit)).To(BeTrue())
			Expect(limit.Steps).To(Equal(20))
			Expect(res.Trace.Truncated).To(BeTrue())
			Expect(res.Trace.Len()).To(Equal(20))
			Expect(res.Steps).To(Equal(20))
		})

		It("truncates traces that run out of time", func() {
			cfg.Simulation.MaxTraceTime = 50 * time.Millisecond
			cfg.Simulation.StepDelay = 0
			cfg.Simulation.MaxTraceSteps = 1 << 20
			c := newController(cfg)
			Expect(c.RunStepMode(ctx, "main.py", src("n = len([i for i in range(1000000000) if i < 0])"))).To(Succeed())

			res := waitResult(c)
			var limit *sim.TraceLimitExceeded
			Expect(errors.As(res.Warning, &limit)).To(BeTrue())
			Expect(limit.Reason).To(ContainSubstring("longer than"))
			Expect(res.State).To(Equal(runner.StateCompleted))
		})

		It("pauses at the current index and resumes with the next statement", func() {
			cfg.Simulation.StepDelay = 200 * time.Millisecond
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(150, 150)",
				"r.brake()",
				"r.rotate_left(150)",
				"r.brake()",
			))).To(Succeed())

			Eventually(rec.lines, "2s").Should(Receive(Equal(1)))
			Eventually(rec.lines, "2s").Should(Receive(Equal(2)))
			Expect(c.Pause()).To(Succeed())
			Expect(c.Paused()).To(BeTrue())

			Consistently(rec.lines, "400ms").ShouldNot(Receive())
			Expect(c.State()).To(Equal(runner.StatePlaying))

			Expect(c.Resume()).To(Succeed())
			Eventually(rec.lines, "2s").Should(Receive(Equal(3)))
			Eventually(rec.lines, "2s").Should(Receive(Equal(4)))
			Eventually(rec.lines, "2s").Should(Receive(Equal(5)))

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(res.Steps).To(Equal(5))
		})

		It("stops mid replay, zeroes the motors and drops the rest", func() {
			cfg.Simulation.StepDelay = 100 * time.Millisecond
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"hold_state(1)",
				"r.brake()",
				"r.rotate_left(150)",
			))).To(Succeed())

			Eventually(rec.lines, "2s").Should(Receive(Equal(1)))
			Eventually(rec.lines, "2s").Should(Receive(Equal(2)))
			c.Stop()

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateStopped))
			Expect(res.Steps).To(BeNumerically("<", 5))
			Expect(res.Final.LeftSpeed).To(BeZero())
			Expect(res.Final.RightSpeed).To(BeZero())
			Expect(rec.logged("Rotate left")).To(BeFalse())
		})

		It("advances physics through a held interval", func() {
			c := newController(cfg)
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"hold_state(0.25)",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(res.SimTime).To(BeNumerically(">=", 0.25))
			Expect(res.Final.Y).To(BeNumerically("<", 1000-30))
		})

		It("reports a runtime error found while tracing without moving the robot", func() {
			c := newController(cfg, runner.WithObserver(rec))
			states := watchStates(c)
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"r.drive_forward(200, 200)",
				"hold_state(0.5)",
				"r.drive_forward(300, 0)",
			))).To(Succeed())

			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateErrored))
			var rerr *sim.ScriptRuntimeError
			Expect(errors.As(res.Err, &rerr)).To(BeTrue())
			Expect(rerr.Line).To(Equal(4))

			var seen []runner.State
			Eventually(states, "5s").Should(Receive(&seen))
			Expect(seen).NotTo(ContainElement(runner.StatePlaying))
			Expect(res.Steps).To(BeZero())
			Expect(res.Final.X).To(Equal(cfg.Arena.Start.X))
			Expect(res.Final.Y).To(Equal(cfg.Arena.Start.Y))
			Expect(rec.logged("Drive forward")).To(BeFalse())
		})

		It("stops while tracing without replaying anything", func() {
			cfg.Simulation.MaxTraceTime = 10 * time.Second
			cfg.Simulation.MaxTraceSteps = 1 << 20
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"while True:",
				"    n = len([i for i in range(100000) if i < 0])",
			))).To(Succeed())
			Expect(c.State()).To(Equal(runner.StateTracing))

			c.Stop()
			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateStopped))
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Steps).To(BeZero())
			Expect(rec.lines).NotTo(Receive())
		})

		It("holds the replay at the first statement when paused while tracing", func() {
			cfg.Simulation.MaxTraceTime = 300 * time.Millisecond
			c := newController(cfg, runner.WithObserver(rec))
			Expect(c.RunStepMode(ctx, "main.py", src(
				"n = len([i for i in range(1000000000) if i < 0])",
				"r = AIDriver()",
			))).To(Succeed())
			Expect(c.State()).To(Equal(runner.StateTracing))
			Expect(c.Pause()).To(Succeed())

			Eventually(c.State, "2s").Should(Equal(runner.StatePlaying))
			Consistently(rec.lines, "200ms").ShouldNot(Receive())
			Expect(c.Line()).To(BeZero())

			Expect(c.Resume()).To(Succeed())
			Eventually(rec.lines, "2s").Should(Receive(Equal(1)))
			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateCompleted))
			Expect(res.Steps).To(Equal(1))
		})

		It("replays a hold too long to count in ticks until stopped", func() {
			cfg.Simulation.MaxTraceTime = 100 * time.Millisecond
			c := newController(cfg)
			Expect(c.RunStepMode(ctx, "main.py", src(
				"r = AIDriver()",
				"hold_state(1e300)",
			))).To(Succeed())

			Eventually(c.State, "2s").Should(Equal(runner.StatePlaying))
			Consistently(c.State, "200ms").Should(Equal(runner.StatePlaying))

			c.Stop()
			res := waitResult(c)
			Expect(res.State).To(Equal(runner.StateStopped))
			var limit *sim.TraceLimitExceeded
			Expect(errors.As(res.Warning, &limit)).To(BeTrue())
		})

		It("only pauses step sessions", func() {
			c := newController(cfg)
			Expect(c.Pause()).To(MatchError(sim.ErrNotStepMode))
			Expect(c.Resume()).To(MatchError(sim.ErrNotStepMode))
		})
	})

	It("runs isolated controllers side by side", func() {
		a, b := newController(cfg), newController(cfg)
		script := src("r = AIDriver()", "r.drive_forward(200, 200)", "hold_state(0.1)", "r.brake()")
		Expect(a.Run(ctx, "a.py", script)).To(Succeed())
		Expect(b.Run(ctx, "b.py", script)).To(Succeed())
		Expect(waitResult(a).State).To(Equal(runner.StateCompleted))
		Expect(waitResult(b).State).To(Equal(runner.StateCompleted))
	})
})
