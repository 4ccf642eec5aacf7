package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/physics"
	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/sim"
)

const (
	historyLen = 60
	logTail    = 6
)

// Controls is the part of the controller the live view drives.
type Controls interface {
	Pause() error
	Resume() error
	Paused() bool
	Stop()
}

type (
	renderMsg   sim.VehicleState
	distanceMsg int
	lineMsg     struct {
		line   int
		source string
	}
	logMsg  sim.LogLine
	doneMsg runner.Result
)

// Finished wraps the session result for tea.Program.Send.
func Finished(res runner.Result) tea.Msg { return doneMsg(res) }

type Model struct {
	ctl    Controls
	bridge *Bridge
	cfg    config.SimulationConfig
	arena  config.Arena
	name   string

	vehicle   sim.VehicleState
	distance  int
	distances []float64
	line      int
	source    string
	logs      []sim.LogLine
	paused    bool
	note      string

	done   bool
	result runner.Result
}

func New(name string, ctl Controls, cfg config.SimulationConfig, arena config.Arena, b *Bridge) Model {
	return Model{
		ctl:       ctl,
		bridge:    b,
		cfg:       cfg,
		arena:     arena,
		name:      name,
		vehicle:   sim.NewVehicle(arena.Start, cfg.TrailLength),
		distance:  -1,
		distances: make([]float64, 0, historyLen),
	}
}

func (m Model) Init() tea.Cmd { return m.bridge.listen() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case renderMsg:
		m.vehicle = sim.VehicleState(msg)
		return m, m.bridge.listen()
	case distanceMsg:
		m.distance = int(msg)
		m.distances = append(m.distances, float64(msg))
		if len(m.distances) > historyLen {
			m.distances = m.distances[1:]
		}
		return m, m.bridge.listen()
	case lineMsg:
		m.line, m.source = msg.line, msg.source
		return m, m.bridge.listen()
	case logMsg:
		m.logs = append(m.logs, sim.LogLine(msg))
		if len(m.logs) > logTail {
			m.logs = m.logs[len(m.logs)-logTail:]
		}
		return m, m.bridge.listen()
	case doneMsg:
		m.done = true
		m.paused = false
		m.result = runner.Result(msg)
		m.vehicle = m.result.Final
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if !m.done {
			m.ctl.Stop()
		}
		return m, tea.Quit
	case "s":
		if !m.done {
			m.ctl.Stop()
			m.note = "stop requested"
		}
	case " ", "p":
		if m.done {
			return m, nil
		}
		var err error
		if m.ctl.Paused() {
			err = m.ctl.Resume()
		} else {
			err = m.ctl.Pause()
		}
		switch {
		case errors.Is(err, sim.ErrNotStepMode):
			m.note = "pause works in step mode only"
		case err != nil:
			m.note = err.Error()
		default:
			m.paused = m.ctl.Paused()
			m.note = ""
		}
	}
	return m, nil
}

func (m Model) status() string {
	switch {
	case m.done && m.result.State == runner.StateErrored:
		return red.Render("● errored")
	case m.done && m.result.State == runner.StateStopped:
		return yellow.Render("■ stopped")
	case m.done:
		return green.Render("✓ completed")
	case m.paused:
		return yellow.Render("○ paused")
	default:
		return green.Render("● running")
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n %s  %s  %s\n", title.Render("drivesim"), cyan.Render(m.name), m.status()))
	if m.arena.Name != "" {
		b.WriteString(" " + dim.Render("arena "+m.arena.Name) + "\n")
	}

	view := arenaBox.Render(renderArena(m.cfg, m.arena, m.vehicle, m.distance))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, view, m.statsPanel()) + "\n")

	if len(m.distances) > 1 {
		chart := asciigraph.Plot(m.distances,
			asciigraph.Height(5),
			asciigraph.Width(50),
			asciigraph.Caption("distance (mm)"))
		b.WriteString(chart + "\n")
	}

	for _, l := range m.logs {
		b.WriteString(" " + logStyle(l.Level).Render(fmt.Sprintf("t+%.2fs : %s", l.Elapsed.Seconds(), l.Message)) + "\n")
	}
	if m.done && m.result.Err != nil {
		b.WriteString(" " + red.Render(m.result.Err.Error()) + "\n")
	}
	if m.note != "" {
		b.WriteString(" " + yellow.Render(m.note) + "\n")
	}

	b.WriteString("\n " + keyHint.Render("space pause  s stop  q quit") + "\n")
	return b.String()
}

func (m Model) statsPanel() string {
	v := m.vehicle
	rows := []struct{ k, v string }{
		{"x", fmt.Sprintf("%.0f mm", v.X)},
		{"y", fmt.Sprintf("%.0f mm", v.Y)},
		{"heading", fmt.Sprintf("%.1f°", v.Heading)},
		{"left", fmt.Sprintf("%.0f", v.LeftSpeed)},
		{"right", fmt.Sprintf("%.0f", v.RightSpeed)},
		{"rpm", fmt.Sprintf("%.0f / %.0f", physics.WheelRPM(v.LeftSpeed, m.cfg), physics.WheelRPM(v.RightSpeed, m.cfg))},
		{"moving", fmt.Sprintf("%t", v.IsMoving)},
		{"distance", distanceText(m.distance)},
	}
	if m.line > 0 {
		rows = append(rows, struct{ k, v string }{"line", fmt.Sprintf("%d", m.line)})
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(label.Render(r.k) + value.Render(r.v) + "\n")
	}
	if m.source != "" {
		b.WriteString(dimmer.Render(strings.TrimSpace(m.source)))
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func distanceText(mm int) string {
	if mm < 0 {
		return "-"
	}
	return fmt.Sprintf("%d mm", mm)
}

func logStyle(l sim.Level) lipgloss.Style {
	switch l {
	case sim.LevelWarn:
		return yellow
	case sim.LevelError:
		return red
	default:
		return white
	}
}
