package sim

// TraceEntry is one executed source statement and the commands it emitted.
type TraceEntry struct {
	Line     int       `json:"line"`
	Source   string    `json:"source"`
	Commands []Command `json:"commands"`
	Output   []string  `json:"output,omitempty"`
}

// Trace is the ordered result of an instrumented run.
type Trace struct {
	Entries   []TraceEntry `json:"entries"`
	Truncated bool         `json:"truncated"`
}

func (t *Trace) Len() int { return len(t.Entries) }

// Begin opens a new entry; later Record calls attach to it.
func (t *Trace) Begin(line int, source string) {
	t.Entries = append(t.Entries, TraceEntry{Line: line, Source: source})
}

// Record attributes c to the open entry. Commands emitted before the first
// statement (none in practice) are dropped.
func (t *Trace) Record(c Command) {
	if len(t.Entries) == 0 {
		return
	}
	last := &t.Entries[len(t.Entries)-1]
	last.Commands = append(last.Commands, c)
}

// Print attributes a line of script output to the open entry.
func (t *Trace) Print(msg string) {
	if len(t.Entries) == 0 {
		return
	}
	last := &t.Entries[len(t.Entries)-1]
	last.Output = append(last.Output, msg)
}
