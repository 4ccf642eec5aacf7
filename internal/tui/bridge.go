package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/drivesim/internal/sim"
)

const bridgeBuffer = 1024

var _ sim.Observer = (*Bridge)(nil)

// Bridge is a sim.Observer feeding the live view. Notifications are queued
// without blocking; when the view falls behind, the newest ones are dropped.
type Bridge struct {
	events chan tea.Msg
}

func NewBridge() *Bridge {
	return &Bridge{events: make(chan tea.Msg, bridgeBuffer)}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
	}
}

func (b *Bridge) OnRender(v sim.VehicleState) { b.send(renderMsg(v.Clone())) }
func (b *Bridge) OnDistance(mm int)           { b.send(distanceMsg(mm)) }
func (b *Bridge) OnLine(line int, src string) { b.send(lineMsg{line: line, source: src}) }
func (b *Bridge) OnLog(l sim.LogLine)         { b.send(logMsg(l)) }

// listen waits for the next notification.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg { return <-b.events }
}
