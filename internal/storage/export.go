package storage

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/sim"
)

type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Samples []runner.Sample `json:"samples"`
	Trace   *sim.Trace      `json:"trace,omitempty"`
}

// Export writes one run with its samples and trace as a single JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}
	trace, err := s.LoadTrace(runID)
	if err != nil && !errors.Is(err, ErrNoTrace) {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Samples: samples, Trace: trace})
}
