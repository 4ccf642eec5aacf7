package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/eventlog"
	"github.com/san-kum/drivesim/internal/export"
	"github.com/san-kum/drivesim/internal/goal"
	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/script"
	"github.com/san-kum/drivesim/internal/storage"
	"github.com/san-kum/drivesim/internal/tui"
)

var (
	dataDir    string
	configFile string
	arenaName  string
	logLevel   string
	seed       int64
	speed      float64
	stepDelay  time.Duration
	goalSpecs  []string
	save       bool
	liveStep   bool
	svgOut     string
	svgScale   float64
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "drivesim",
		Short:         "differential drive robot simulator for classroom scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "runs-dir", ".drivesim", "directory for saved runs")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&arenaName, "arena", "empty", "arena preset")
	pf.StringVar(&logLevel, "log-level", "warn", "diagnostic log level (debug, info, warn, error)")
	pf.Int64Var(&seed, "seed", 0, "sensor noise seed (0 picks one from the clock)")
	pf.Float64Var(&speed, "speed", config.DefaultSpeedMultiplier, "simulated seconds per wall second")
	pf.DurationVar(&stepDelay, "step-delay", config.DefaultStepDelay, "wall time per replayed statement")

	runCmd := &cobra.Command{
		Use:   "run [script.py]",
		Short: "run a script directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args[0], runner.ModeRun)
		},
	}

	stepCmd := &cobra.Command{
		Use:   "step [script.py]",
		Short: "trace a script, then replay it one statement at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args[0], runner.ModeStep)
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [script.py]",
		Short: "run a script with the live arena view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().BoolVar(&liveStep, "step", false, "replay in step mode")

	for _, c := range []*cobra.Command{runCmd, stepCmd, liveCmd} {
		c.Flags().StringArrayVar(&goalSpecs, "goal", nil, "goal to evaluate, repeatable (rotate:360, travel:1500, reach:x,y,w,h, nocollision)")
		c.Flags().BoolVar(&save, "save", false, "save the run under --runs-dir")
	}

	checkCmd := &cobra.Command{
		Use:   "check [script.py]",
		Short: "check a script without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  checkScript,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run and its event log",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Export(cmd.OutOrStdout(), args[0])
		},
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "draw a saved run's path over its arena as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  svgRun,
	}
	svgCmd.Flags().StringVarP(&svgOut, "output", "o", "", "output file (default stdout)")
	svgCmd.Flags().Float64Var(&svgScale, "scale", 0.25, "pixels per millimetre")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list arena presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				a := config.GetPreset(name)
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", name,
					dimStyle.Render(fmt.Sprintf("%d walls, %d obstacles", len(a.Walls), len(a.Obstacles))))
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default config to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, stepCmd, liveCmd, checkCmd, listCmd, showCmd, plotCmd, exportCmd, svgCmd, presetsCmd, initCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig starts from the defaults or --config, then applies the flags
// the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("arena") || (configFile == "" && arenaName != "") {
		a := config.GetPreset(arenaName)
		if a == nil {
			return nil, fmt.Errorf("unknown arena: %s (available: %s)", arenaName, strings.Join(config.ListPresets(), ", "))
		}
		cfg.Arena = *a
	}
	if flags.Changed("speed") {
		cfg.Simulation.SpeedMultiplier = speed
	}
	if flags.Changed("step-delay") {
		cfg.Simulation.StepDelay = stepDelay
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

func controllerOptions(extra ...runner.Option) ([]runner.Option, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	opts := []runner.Option{runner.WithLogger(logger)}
	var evals []goal.Evaluator
	for _, spec := range goalSpecs {
		eval, err := goal.Parse(spec)
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}
	switch len(evals) {
	case 0:
	case 1:
		opts = append(opts, runner.WithEvaluator(evals[0]))
	default:
		opts = append(opts, runner.WithEvaluator(goal.All(evals...)))
	}
	return append(opts, extra...), nil
}

func start(ctx context.Context, ctl *runner.Controller, mode runner.Mode, name, src string) error {
	if mode == runner.ModeStep {
		return ctl.RunStepMode(ctx, name, src)
	}
	return ctl.Run(ctx, name, src)
}

func execute(cmd *cobra.Command, path string, mode runner.Mode) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	events := eventlog.New(out)
	opts, err := controllerOptions(runner.WithObserver(events))
	if err != nil {
		return err
	}
	ctl, err := runner.New(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	events.Separator()
	if err := start(ctx, ctl, mode, filepath.Base(path), string(src)); err != nil {
		return err
	}
	res := ctl.Wait()

	report(out, res)
	if err := saveRun(out, path, string(src), cfg, res); err != nil {
		return err
	}
	return res.Err
}

func runLive(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()
	opts, err := controllerOptions(runner.WithObserver(bridge))
	if err != nil {
		return err
	}
	ctl, err := runner.New(cfg, opts...)
	if err != nil {
		return err
	}

	mode := runner.ModeRun
	if liveStep {
		mode = runner.ModeStep
	}
	if err := start(cmd.Context(), ctl, mode, filepath.Base(path), string(src)); err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(filepath.Base(path), ctl, cfg.Simulation, cfg.Arena, bridge), tea.WithAltScreen())
	go func() {
		p.Send(tui.Finished(ctl.Wait()))
	}()
	if _, err := p.Run(); err != nil {
		ctl.Stop()
		return err
	}

	ctl.Stop()
	res := ctl.Wait()
	out := cmd.OutOrStdout()
	report(out, res)
	if err := saveRun(out, path, string(src), cfg, res); err != nil {
		return err
	}
	return res.Err
}

func saveRun(w io.Writer, path, src string, cfg *config.Config, res runner.Result) error {
	if !save {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(path, src, cfg, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run id: %s\n", runID)
	return nil
}

func report(w io.Writer, res runner.Result) {
	state := res.State.String()
	switch res.State {
	case runner.StateCompleted:
		state = okStyle.Render(state)
	case runner.StateStopped:
		state = warnStyle.Render(state)
	case runner.StateErrored:
		state = errStyle.Render(state)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s in %v (%d steps, %.2fs simulated)\n", state, res.Elapsed.Round(time.Millisecond), res.Steps, res.SimTime)
	fmt.Fprintf(w, "final: x=%.0f y=%.0f heading=%.1f°\n", res.Final.X, res.Final.Y, res.Final.Heading)
	if res.Warning != nil {
		fmt.Fprintln(w, warnStyle.Render("warning: "+res.Warning.Error()))
	}
	if res.Goal != "" {
		verdict := res.Verdict.String()
		if res.Verdict == goal.Passed {
			verdict = okStyle.Render(verdict)
		} else {
			verdict = errStyle.Render(verdict)
		}
		fmt.Fprintf(w, "goal %s: %s\n", res.Goal, verdict)
	}

	if len(res.Metrics) > 0 {
		fmt.Fprintln(w, "\nmetrics:")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %.3f\n", name, res.Metrics[name])
		}
	}
}

func checkScript(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := script.Compile(filepath.Base(args[0]), string(src), script.Options{MaxMotor: cfg.Simulation.MaxMotor}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("ok"))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCRIPT\tMODE\tARENA\tTIME\tSTATE\tSTEPS\tGOAL")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			filepath.Base(run.Script),
			run.Mode,
			run.Arena,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.State,
			run.Steps,
			run.Verdict,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:     %s\n", meta.ID)
	fmt.Fprintf(out, "script:  %s\n", meta.Script)
	fmt.Fprintf(out, "mode:    %s\n", meta.Mode)
	fmt.Fprintf(out, "arena:   %s\n", meta.Arena)
	fmt.Fprintf(out, "state:   %s\n", meta.State)
	fmt.Fprintf(out, "final:   x=%.0f y=%.0f heading=%.1f°\n", meta.Final.X, meta.Final.Y, meta.Final.Heading)
	if meta.Error != "" {
		fmt.Fprintf(out, "error:   %s\n", errStyle.Render(meta.Error))
	}
	if meta.Warning != "" {
		fmt.Fprintf(out, "warning: %s\n", warnStyle.Render(meta.Warning))
	}
	if meta.Goal != "" {
		fmt.Fprintf(out, "goal:    %s (%s)\n", meta.Goal, meta.Verdict)
	}

	log, err := st.LoadLog(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(out, log)

	trace, err := st.LoadTrace(args[0])
	switch {
	case errors.Is(err, storage.ErrNoTrace):
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "\ntrace: %d statements", trace.Len())
	if trace.Truncated {
		fmt.Fprint(out, warnStyle.Render(" (truncated)"))
	}
	fmt.Fprintln(out)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		value   func(runner.Sample) float64
	}{
		{"x (mm)", func(s runner.Sample) float64 { return s.X }},
		{"y (mm)", func(s runner.Sample) float64 { return s.Y }},
		{"heading (deg)", func(s runner.Sample) float64 { return s.Heading }},
		{"distance (mm)", func(s runner.Sample) float64 { return float64(s.Distance) }},
	}
	for _, sr := range series {
		data := make([]float64, len(samples))
		for i, smp := range samples {
			data[i] = sr.value(smp)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func svgRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.TrailSVG(w, meta.Config, meta.Layout, samples, svgScale)
}
