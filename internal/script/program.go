package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/san-kum/drivesim/internal/sim"
)

const traceHook = "_trace"

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

type Options struct {
	// Instrument inserts a statement hook for step mode.
	Instrument bool
	// MaxMotor bounds the speeds the driver API accepts.
	MaxMotor float64
}

// Program is a checked, compiled learner script.
type Program struct {
	Name   string
	Source string

	opts    Options
	lines   []string
	lineMap []int
	prog    *starlark.Program
}

// Compile checks and compiles src. Any problem found before execution is
// returned as *sim.ScriptSyntaxError.
func Compile(name, src string, opts Options) (*Program, error) {
	if opts.MaxMotor <= 0 {
		opts.MaxMotor = 255
	}
	p := &Program{
		Name:   name,
		Source: src,
		opts:   opts,
		lines:  strings.Split(src, "\n"),
	}

	translated, err := translateImports(p.lines)
	if err != nil {
		return nil, err
	}
	text := strings.Join(translated, "\n")

	f, err := fileOptions.Parse(name, text, 0)
	if err != nil {
		return nil, atLineEnd(syntaxError(err, nil), translated)
	}
	if err := Check(f); err != nil {
		return nil, err
	}

	if opts.Instrument {
		text, p.lineMap = instrument(f, translated)
		if f, err = fileOptions.Parse(name, text, 0); err != nil {
			return nil, syntaxError(err, p.lineMap)
		}
	}

	prog, err := starlark.FileProgram(f, isPredeclared(opts.Instrument))
	if err != nil {
		return nil, syntaxError(err, p.lineMap)
	}
	p.prog = prog
	return p, nil
}

func isPredeclared(instrumented bool) func(string) bool {
	return func(name string) bool {
		switch name {
		case "AIDriver", "hold_state", "aidriver":
			return true
		case traceHook:
			return instrumented
		}
		return false
	}
}

// Line returns the original source text of a 1-based line.
func (p *Program) Line(n int) string {
	if n < 1 || n > len(p.lines) {
		return ""
	}
	return strings.TrimSpace(p.lines[n-1])
}

// Instrumented reports whether statements call a Tracer.
func (p *Program) Instrumented() bool { return p.opts.Instrument }

// Run executes the program to completion or until ctx is cancelled. A
// cancelled context interrupts even loops that never call the host; the
// returned error is then context.Cause(ctx). tracer may be nil for programs
// compiled without instrumentation.
func (p *Program) Run(ctx context.Context, host Host, tracer Tracer) error {
	if p.opts.Instrument && tracer == nil {
		return errors.New("script: instrumented program needs a tracer")
	}

	env := &env{prog: p, host: host, tracer: tracer}
	thread := &starlark.Thread{
		Name:  p.Name,
		Print: func(_ *starlark.Thread, msg string) { host.Print(msg) },
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(context.Cause(ctx).Error())
		case <-done:
		}
	}()

	_, err := p.prog.Init(thread, env.predeclared())
	return p.classify(ctx, err)
}

func (p *Program) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if errors.Is(err, sim.ErrCancelled) {
		return sim.ErrCancelled
	}
	var limit *sim.TraceLimitExceeded
	if errors.As(err, &limit) {
		return limit
	}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return &sim.ScriptRuntimeError{
			Line:    p.lineOf(evalErr.CallStack),
			Msg:     evalErr.Msg,
			Wrapped: err,
		}
	}
	return &sim.ScriptRuntimeError{Msg: err.Error(), Wrapped: err}
}

// lineOf finds the innermost frame that belongs to the script itself.
func (p *Program) lineOf(stack starlark.CallStack) int {
	for i := len(stack) - 1; i >= 0; i-- {
		pos := stack[i].Pos
		if pos.Filename() == p.Name {
			return mapLine(int(pos.Line), p.lineMap)
		}
	}
	return 0
}

func mapLine(line int, lineMap []int) int {
	if lineMap == nil {
		return line
	}
	if line >= 1 && line <= len(lineMap) {
		return lineMap[line-1]
	}
	return 0
}

func syntaxError(err error, lineMap []int) error {
	var serr syntax.Error
	if errors.As(err, &serr) {
		return &sim.ScriptSyntaxError{
			Line: mapLine(int(serr.Pos.Line), lineMap),
			Col:  int(serr.Pos.Col),
			Msg:  serr.Msg,
		}
	}
	var list resolve.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return &sim.ScriptSyntaxError{
			Line: mapLine(int(first.Pos.Line), lineMap),
			Col:  int(first.Pos.Col),
			Msg:  first.Msg,
		}
	}
	return &sim.ScriptSyntaxError{Msg: fmt.Sprint(err)}
}

// atLineEnd moves an unexpected-newline error from the start of the next
// line back to the end of the line the statement was left open on.
func atLineEnd(err error, lines []string) error {
	var serr *sim.ScriptSyntaxError
	if !errors.As(err, &serr) || !strings.HasPrefix(serr.Msg, "got newline") {
		return err
	}
	if serr.Line >= 1 && serr.Line <= len(lines) {
		if line := lines[serr.Line-1]; serr.Col > 1 && serr.Col <= len(line)+1 && strings.TrimSpace(line[:serr.Col-1]) != "" {
			return err
		}
	}
	for n := serr.Line - 1; n >= 1 && n <= len(lines); n-- {
		if text := strings.TrimRight(lines[n-1], " \t"); strings.TrimSpace(text) != "" {
			serr.Line, serr.Col = n, len(text)+1
			break
		}
	}
	return err
}
