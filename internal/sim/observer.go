package sim

import "time"

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// LogLine is a user-facing message emitted during a session.
type LogLine struct {
	Level   Level
	Elapsed time.Duration
	Message string
}

// Observer receives fire-and-forget notifications from a session. Calls
// arrive from the controller's goroutines and must not block.
type Observer interface {
	OnRender(v VehicleState)
	OnDistance(mm int)
	OnLine(line int, source string)
	OnLog(l LogLine)
}

// NopObserver ignores everything; embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnRender(VehicleState) {}
func (NopObserver) OnDistance(int)        {}
func (NopObserver) OnLine(int, string)    {}
func (NopObserver) OnLog(LogLine)         {}

// Observers fans notifications out to several sinks.
type Observers []Observer

func (o Observers) OnRender(v VehicleState) {
	for _, obs := range o {
		obs.OnRender(v)
	}
}

func (o Observers) OnDistance(mm int) {
	for _, obs := range o {
		obs.OnDistance(mm)
	}
}

func (o Observers) OnLine(line int, source string) {
	for _, obs := range o {
		obs.OnLine(line, source)
	}
}

func (o Observers) OnLog(l LogLine) {
	for _, obs := range o {
		obs.OnLog(l)
	}
}
