package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/eventlog"
	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	trailFile    = "trail.csv"
	traceFile    = "trace.json"
	scriptFile   = "script.py"
	logFile      = "events.log"
)

var ErrNoTrace = errors.New("storage: run has no trace")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string                  `json:"id"`
	Script    string                  `json:"script"`
	Mode      string                  `json:"mode"`
	Arena     string                  `json:"arena"`
	Timestamp time.Time               `json:"timestamp"`
	Seed      int64                   `json:"seed"`
	State     string                  `json:"state"`
	Error     string                  `json:"error,omitempty"`
	Warning   string                  `json:"warning,omitempty"`
	Steps     int                     `json:"steps"`
	SimTime   float64                 `json:"sim_time"`
	WallTime  float64                 `json:"wall_time"`
	Goal      string                  `json:"goal,omitempty"`
	Verdict   string                  `json:"verdict,omitempty"`
	Final     sim.Pose                `json:"final"`
	Metrics   map[string]float64      `json:"metrics"`
	Config    config.SimulationConfig `json:"config"`
	Layout    config.Arena            `json:"layout"`
}

// Save writes a finished session under a new run directory and returns its
// id.
func (s *Store) Save(scriptName, source string, cfg *config.Config, res runner.Result) (string, error) {
	base := strings.TrimSuffix(filepath.Base(scriptName), filepath.Ext(scriptName))
	runID := fmt.Sprintf("%s_%d", base, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	for n := 2; exists(runDir); n++ {
		runID = fmt.Sprintf("%s_%d_%d", base, time.Now().Unix(), n)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Script:    scriptName,
		Mode:      string(res.Mode),
		Arena:     cfg.Arena.Name,
		Timestamp: time.Now(),
		Seed:      cfg.Seed,
		State:     res.State.String(),
		Steps:     res.Steps,
		SimTime:   res.SimTime,
		WallTime:  res.Elapsed.Seconds(),
		Goal:      res.Goal,
		Final:     res.Final.Pose(),
		Metrics:   res.Metrics,
		Config:    cfg.Simulation,
		Layout:    cfg.Arena,
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}
	if res.Warning != nil {
		meta.Warning = res.Warning.Error()
	}
	if res.Goal != "" {
		meta.Verdict = res.Verdict.String()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, scriptFile), []byte(source), 0644); err != nil {
		return "", err
	}
	if err := writeTrail(filepath.Join(runDir, trailFile), res.Samples); err != nil {
		return "", err
	}
	if err := writeLog(filepath.Join(runDir, logFile), res.Log); err != nil {
		return "", err
	}
	if res.Trace != nil {
		if err := writeJSON(filepath.Join(runDir, traceFile), res.Trace); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var trailHeader = []string{"time", "x", "y", "heading", "left", "right", "distance"}

func writeTrail(path string, samples []runner.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(trailHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.FormatFloat(smp.Time, 'f', 6, 64),
			strconv.FormatFloat(smp.X, 'f', 3, 64),
			strconv.FormatFloat(smp.Y, 'f', 3, 64),
			strconv.FormatFloat(smp.Heading, 'f', 3, 64),
			strconv.FormatFloat(smp.Left, 'f', 2, 64),
			strconv.FormatFloat(smp.Right, 'f', 2, 64),
			strconv.Itoa(smp.Distance),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeLog(path string, lines []sim.LogLine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	log := eventlog.New(f)
	log.Separator()
	for _, l := range lines {
		log.OnLog(l)
	}
	return nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadScript(runID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, scriptFile))
	return string(data), err
}

func (s *Store) LoadLog(runID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, logFile))
	return string(data), err
}

// LoadTrace returns the step-mode trace of a run, or ErrNoTrace.
func (s *Store) LoadTrace(runID string) (*sim.Trace, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoTrace
		}
		return nil, err
	}
	var trace sim.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &trace, nil
}

// LoadSamples reads trail.csv back. Rows that do not parse are skipped.
func (s *Store) LoadSamples(runID string) ([]runner.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trailFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []runner.Sample{}, nil
	}

	samples := make([]runner.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < len(trailHeader) {
			continue
		}
		var vals [6]float64
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		dist, err := strconv.Atoi(record[6])
		if !ok || err != nil {
			continue
		}
		samples = append(samples, runner.Sample{
			Time:     vals[0],
			X:        vals[1],
			Y:        vals[2],
			Heading:  vals[3],
			Left:     vals[4],
			Right:    vals[5],
			Distance: dist,
		})
	}
	return samples, nil
}
