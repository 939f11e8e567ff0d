package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const runIndexFile = "run_index.json"

// RunSummary is one line of the run index: what a command did to one experiment run.
type RunSummary struct {
	ExperimentID     string  `json:"experiment_id"`
	Run              int     `json:"run"`
	Command          string  `json:"command"`
	Chunks           int     `json:"chunks"`
	Units            int     `json:"units"`
	Succeeded        int     `json:"succeeded"`
	Failed           int     `json:"failed"`
	DecodeErrors     int     `json:"decode_errors"`
	SimulationErrors int     `json:"simulation_errors"`
	Timeouts         int     `json:"timeouts"`
	Records          int     `json:"records"`
	DurationSeconds  float64 `json:"duration_seconds"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func (s RunSummary) key() string {
	return fmt.Sprintf("%s/%d/%s", s.ExperimentID, s.Run, s.Command)
}

// AppendRunIndex records entry in <baseDir>/run_index.json, replacing an earlier entry for the
// same experiment, run and command.
func AppendRunIndex(baseDir string, entry RunSummary) error {
	if entry.ExperimentID == "" {
		return fmt.Errorf("experiment id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].key() == entry.key() {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunSummary, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunSummary{}, nil
		}
		return nil, err
	}

	var entries []RunSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
