package script_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/drivesim/internal/script"
	"github.com/san-kum/drivesim/internal/sim"
)

func lines(src ...string) string { return strings.Join(src, "\n") + "\n" }

func compile(src string, instrument bool) *script.Program {
	GinkgoHelper()
	prog, err := script.Compile("main.py", src, script.Options{Instrument: instrument, MaxMotor: 255})
	Expect(err).NotTo(HaveOccurred())
	return prog
}

func syntaxErr(src string) *sim.ScriptSyntaxError {
	GinkgoHelper()
	_, err := script.Compile("main.py", src, script.Options{MaxMotor: 255})
	var serr *sim.ScriptSyntaxError
	Expect(errors.As(err, &serr)).To(BeTrue(), "expected a syntax error, got %v", err)
	return serr
}

var _ = Describe("Compile", func() {
	It("accepts the learner import idiom", func() {
		compile(lines(
			"from aidriver import AIDriver, hold_state",
			"import aidriver",
			"aidriver.DEBUG_AIDRIVER = True",
			"my_robot = AIDriver()",
			"my_robot.drive_forward(200, 200)",
			"hold_state(1)",
			"my_robot.brake()",
		), false)
	})

	It("rejects other modules and points time users at hold_state", func() {
		serr := syntaxErr(lines("from aidriver import AIDriver", "import time"))
		Expect(serr.Line).To(Equal(2))
		Expect(serr.Msg).To(ContainSubstring("hold_state"))
	})

	It("rejects unknown names imported from aidriver", func() {
		serr := syntaxErr(lines("from aidriver import Motor"))
		Expect(serr.Line).To(Equal(1))
	})

	It("rejects calls outside the allow-list", func() {
		serr := syntaxErr(lines("x = 1", "sleep(1)"))
		Expect(serr.Line).To(Equal(2))
		Expect(serr.Msg).To(ContainSubstring("hold_state"))
	})

	It("allows calls to functions the script defines", func() {
		compile(lines(
			"def spin(robot, speed=150):",
			"    robot.rotate_left(speed)",
			"r = AIDriver()",
			"spin(r)",
		), false)
	})

	It("rejects load statements", func() {
		serr := syntaxErr(lines(`load("lib.star", "helper")`))
		Expect(serr.Line).To(Equal(1))
	})

	It("reports a missing colon on the line that opened the block", func() {
		serr := syntaxErr(lines("r = AIDriver()", "if True", "    r.brake()"))
		Expect(serr.Line).To(Equal(2))
		Expect(serr.Msg).To(ContainSubstring("newline"))
	})

	It("reports a missing colon past blank lines", func() {
		serr := syntaxErr(lines("r = AIDriver()", "while True   ", "", "    r.brake()"))
		Expect(serr.Line).To(Equal(2))
	})

	It("accepts while loops at any depth", func() {
		compile(lines(
			"r = AIDriver()",
			"n = 0",
			"while n < 2:",
			"    r.rotate_left(150)",
			"    n += 1",
			"def wander(robot):",
			"    if True:",
			"        while robot.read_distance() < 100:",
			"            robot.rotate_right(150)",
			"wander(r)",
		), true)
	})

	It("still checks calls inside while loops", func() {
		serr := syntaxErr(lines("while True:", "    sleep(1)"))
		Expect(serr.Line).To(Equal(2))
		Expect(serr.Msg).To(ContainSubstring("hold_state"))
	})

	It("accepts a parenthesised import over several lines", func() {
		prog := compile(lines(
			"from aidriver import (",
			"    AIDriver,  # the robot",
			"    hold_state,",
			")",
			"r = AIDriver()",
			"r.drive_forward(\"fast\", 100)",
		), false)
		err := prog.Run(context.Background(), newRecordingHost(), nil)
		var rerr *sim.ScriptRuntimeError
		Expect(errors.As(err, &rerr)).To(BeTrue())
		Expect(rerr.Line).To(Equal(6))
	})

	It("rejects unknown names in a parenthesised import", func() {
		serr := syntaxErr(lines("from aidriver import (", "    AIDriver,", "    Motor)"))
		Expect(serr.Line).To(Equal(1))
		Expect(serr.Msg).To(ContainSubstring("Motor"))
	})

	It("rejects an unclosed import", func() {
		serr := syntaxErr(lines("from aidriver import (", "    AIDriver,"))
		Expect(serr.Line).To(Equal(1))
		Expect(serr.Msg).To(ContainSubstring("unclosed"))
	})

	It("reports undefined names before running", func() {
		serr := syntaxErr(lines("my_robot.brake()"))
		Expect(serr.Line).To(Equal(1))
		Expect(serr.Msg).To(ContainSubstring("my_robot"))
	})
})

var _ = Describe("Run", func() {
	var (
		host *recordingHost
		ctx  context.Context
	)

	BeforeEach(func() {
		host = newRecordingHost()
		ctx = context.Background()
	})

	It("sends commands in program order with (right, left) argument order", func() {
		prog := compile(lines(
			"from aidriver import AIDriver, hold_state",
			"r = AIDriver()",
			"r.drive_forward(200, 120)",
			"hold_state(1.5)",
			"r.brake()",
		), false)

		Expect(prog.Run(ctx, host, nil)).To(Succeed())
		Expect(host.kinds()).To(Equal([]sim.CommandKind{sim.CmdInit, sim.CmdDriveForward, sim.CmdBrake}))
		Expect(host.commands[1].RightSpeed).To(Equal(200.0))
		Expect(host.commands[1].LeftSpeed).To(Equal(120.0))
		Expect(host.holds).To(Equal([]float64{1.5}))
		Expect(host.Vehicle().IsMoving).To(BeFalse())
	})

	It("returns sensor readings to the script", func() {
		prog := compile(lines(
			"r = AIDriver()",
			"d = r.read_distance()",
			"if d < 500:",
			"    r.rotate_right(150)",
			"print('distance', d)",
		), false)

		Expect(prog.Run(ctx, host, nil)).To(Succeed())
		Expect(host.kinds()).To(Equal([]sim.CommandKind{sim.CmdInit, sim.CmdReadDistance, sim.CmdRotateRight}))
		Expect(host.printed).To(ContainElement("distance 420"))
	})

	It("reports motor state through the query methods", func() {
		prog := compile(lines(
			"r = AIDriver()",
			"r.rotate_left(150)",
			"right, left = r.get_motor_speeds()",
			"print(right, left, r.is_moving())",
			"r.service()",
		), false)

		Expect(prog.Run(ctx, host, nil)).To(Succeed())
		Expect(host.printed).To(ContainElement("150 150 True"))
		Expect(host.yields).To(Equal(3))
	})

	It("falls back to zero seconds for a bad hold_state value", func() {
		prog := compile(lines("hold_state('soon')", "hold_state(-2)"), false)
		Expect(prog.Run(ctx, host, nil)).To(Succeed())
		Expect(host.holds).To(Equal([]float64{0, 0}))
	})

	It("prints debug lines once DEBUG_AIDRIVER is set", func() {
		prog := compile(lines(
			"import aidriver as ai",
			"ai.DEBUG_AIDRIVER = True",
			"r = ai.AIDriver()",
			"r.brake()",
		), false)

		Expect(prog.Run(ctx, host, nil)).To(Succeed())
		Expect(host.printed).To(ContainElement("[AIDriver] AIDriver initialized - debug logging active"))
		Expect(host.printed).To(ContainElement("[AIDriver] AIDriver.brake()"))
	})

	It("raises a runtime error on the offending line for out of range speeds", func() {
		prog := compile(lines(
			"r = AIDriver()",
			"r.drive_forward(200, 200)",
			"r.drive_forward(300, 200)",
		), false)

		err := prog.Run(ctx, host, nil)
		var rerr *sim.ScriptRuntimeError
		Expect(errors.As(err, &rerr)).To(BeTrue())
		Expect(rerr.Line).To(Equal(3))
		Expect(rerr.Msg).To(ContainSubstring("between 0 and 255"))
		Expect(host.kinds()).To(HaveLen(2))
	})

	It("surfaces the stop signal instead of a runtime error", func() {
		prog := compile(lines("r = AIDriver()", "r.brake()"), false)
		host.err = sim.ErrCancelled

		Expect(prog.Run(ctx, host, nil)).To(MatchError(sim.ErrCancelled))
	})

	It("interrupts a loop that never calls the driver", func() {
		prog := compile(lines("n = 0", "while True:", "    n += 1"), false)
		cctx, cancel := context.WithCancelCause(ctx)

		done := make(chan error, 1)
		go func() { done <- prog.Run(cctx, host, nil) }()

		Consistently(done, "50ms").ShouldNot(Receive())
		cancel(sim.ErrCancelled)

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(err).To(MatchError(sim.ErrCancelled))
	})
})

var _ = Describe("instrumented programs", func() {
	It("calls the tracer before every statement with the source line", func() {
		prog := compile(lines(
			"from aidriver import AIDriver",
			"r = AIDriver()",
			"for i in range(2):",
			"    r.rotate_left(150)",
			"",
			"# done",
			"r.brake()",
		), true)
		tracer := &lineTracer{}

		Expect(prog.Run(context.Background(), newRecordingHost(), tracer)).To(Succeed())
		Expect(tracer.lines).To(Equal([]int{1, 2, 3, 4, 4, 7}))
		Expect(tracer.sources[1]).To(Equal("r = AIDriver()"))
	})

	It("does not trace elif branches as statements of their own", func() {
		prog := compile(lines(
			"d = 5",
			"if d > 10:",
			"    d = 0",
			"elif d > 1:",
			"    d = 1",
		), true)
		tracer := &lineTracer{}

		Expect(prog.Run(context.Background(), newRecordingHost(), tracer)).To(Succeed())
		Expect(tracer.lines).To(Equal([]int{1, 2, 5}))
	})

	It("maps runtime errors back to source lines", func() {
		prog := compile(lines(
			"r = AIDriver()",
			"",
			"r.rotate_right(999)",
		), true)

		err := prog.Run(context.Background(), newRecordingHost(), &lineTracer{})
		var rerr *sim.ScriptRuntimeError
		Expect(errors.As(err, &rerr)).To(BeTrue())
		Expect(rerr.Line).To(Equal(3))
	})

	It("needs a tracer", func() {
		prog := compile(lines("x = 1"), true)
		Expect(prog.Run(context.Background(), newRecordingHost(), nil)).NotTo(Succeed())
	})
})
