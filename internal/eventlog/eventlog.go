// Package eventlog writes the classroom run log: one human-readable line per
// event, stamped with the time since the run started.
//
//	===== NEW RUN =====
//	t+0.00s : robot start
//	t+0.02s : Drive forward at normal speed (R=200, L=200)
//	t+1.02s : Brake applied; motors stopping
package eventlog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/san-kum/drivesim/internal/sim"
)

// Log is a sim.Observer that records log lines to w.
type Log struct {
	sim.NopObserver

	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Log {
	return &Log{w: w}
}

// Separator starts a new run section.
func (l *Log) Separator() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.w, "\n===== NEW RUN =====\n")
	fmt.Fprintf(l.w, "%s : robot start\n", stamp(0))
}

func (l *Log) Event(elapsed time.Duration, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s : %s\n", stamp(elapsed), msg)
}

func (l *Log) OnLog(line sim.LogLine) {
	msg := line.Message
	if line.Level != sim.LevelInfo {
		msg = line.Level.String() + ": " + msg
	}
	l.Event(line.Elapsed, msg)
}

func stamp(d time.Duration) string {
	return fmt.Sprintf("t+%.2fs", d.Seconds())
}
