// Package report writes run results to files alongside, or instead of, a store.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"

	"mcceval/internal/model"
	"mcceval/internal/storage"
)

type evaluationRow struct {
	ExperimentID string  `csv:"experiment_id"`
	Run          int     `csv:"run"`
	BatchID      string  `csv:"batch_id"`
	Chunk        int     `csv:"chunk"`
	Kind         string  `csv:"pair"`
	PrimaryID    int64   `csv:"primary_id"`
	SecondaryID  int64   `csv:"secondary_id"`
	Status       string  `csv:"status"`
	Success      bool    `csv:"success"`
	Steps        int     `csv:"steps"`
	Distance     float64 `csv:"distance"`
	Error        string  `csv:"error"`
}

type diversityRow struct {
	ExperimentID string `csv:"experiment_id"`
	Run          int    `csv:"run"`
	BatchID      string `csv:"batch_id"`
	Chunk        int    `csv:"chunk"`
	EntityID     int64  `csv:"entity_id"`
	Kind         string `csv:"kind"`
	Comparisons  int    `csv:"comparisons"`
	Metrics      string `csv:"metrics"`
}

type upscaleRow struct {
	ExperimentID  string `csv:"experiment_id"`
	Run           int    `csv:"run"`
	BatchID       string `csv:"batch_id"`
	Chunk         int    `csv:"chunk"`
	BodyID        int64  `csv:"body_id"`
	BrainID       int64  `csv:"brain_id"`
	EvolvedSize   int    `csv:"evolved_size"`
	MaxViableSize int    `csv:"max_viable_size"`
	Trials        int    `csv:"trials"`
	Improved      bool   `csv:"improved"`
	StopReason    string `csv:"stop_reason"`
}

type tallyRow struct {
	ExperimentID string `csv:"experiment_id"`
	Run          int    `csv:"run"`
	BatchID      string `csv:"batch_id"`
	Chunk        int    `csv:"chunk"`
	EntityID     int64  `csv:"entity_id"`
	Kind         string `csv:"kind"`
	Trials       int    `csv:"trials"`
	Solves       int    `csv:"solves"`
}

// CSVSink appends each record type to its own CSV file under <dir>/<experiment>/run_<n>/.
// The header is written once, when a file is first created.
type CSVSink struct {
	dir string

	mu sync.Mutex
}

func NewCSVSink(dir string) (*CSVSink, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// RunDir is the directory holding the CSV files of one run.
func (s *CSVSink) RunDir(experimentID string, run int) string {
	return filepath.Join(s.dir, experimentID, "run_"+strconv.Itoa(run))
}

func appendRows[T any](s *CSVSink, key storage.BatchKey, name string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := s.RunDir(key.ExperimentID, key.Run)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(runDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if info.Size() == 0 {
		err = gocsv.Marshal(rows, f)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

func (s *CSVSink) SaveEvaluations(_ context.Context, key storage.BatchKey, records []model.EvaluationRecord) error {
	rows := make([]evaluationRow, len(records))
	for i, r := range records {
		rows[i] = evaluationRow{
			ExperimentID: key.ExperimentID, Run: key.Run, BatchID: key.BatchID.String(), Chunk: key.Chunk,
			Kind: string(r.Kind), PrimaryID: r.PrimaryID, SecondaryID: r.SecondaryID,
			Status: string(r.Status), Success: r.Success, Steps: r.Steps, Distance: r.Distance, Error: r.Error,
		}
	}
	return appendRows(s, key, "evaluations.csv", rows)
}

func (s *CSVSink) SaveDiversity(_ context.Context, key storage.BatchKey, records []model.DiversityRecord) error {
	rows := make([]diversityRow, len(records))
	for i, r := range records {
		metrics := make([]string, len(r.Metrics))
		for j, m := range r.Metrics {
			metrics[j] = strconv.FormatFloat(m, 'g', -1, 64)
		}
		rows[i] = diversityRow{
			ExperimentID: key.ExperimentID, Run: key.Run, BatchID: key.BatchID.String(), Chunk: key.Chunk,
			EntityID: r.EntityID, Kind: string(r.Kind), Comparisons: r.Comparisons, Metrics: strings.Join(metrics, ";"),
		}
	}
	return appendRows(s, key, "diversity.csv", rows)
}

func (s *CSVSink) SaveUpscale(_ context.Context, key storage.BatchKey, results []model.UpscaleResult) error {
	rows := make([]upscaleRow, len(results))
	for i, r := range results {
		rows[i] = upscaleRow{
			ExperimentID: key.ExperimentID, Run: key.Run, BatchID: key.BatchID.String(), Chunk: key.Chunk,
			BodyID: r.BodyID, BrainID: r.BrainID, EvolvedSize: r.EvolvedSize, MaxViableSize: r.MaxViableSize,
			Trials: r.Trials, Improved: r.Improved, StopReason: string(r.StopReason),
		}
	}
	return appendRows(s, key, "upscale.csv", rows)
}

func (s *CSVSink) SaveSolveTallies(_ context.Context, key storage.BatchKey, tallies []model.SolveTally) error {
	rows := make([]tallyRow, len(tallies))
	for i, t := range tallies {
		rows[i] = tallyRow{
			ExperimentID: key.ExperimentID, Run: key.Run, BatchID: key.BatchID.String(), Chunk: key.Chunk,
			EntityID: t.EntityID, Kind: string(t.Kind), Trials: t.Trials, Solves: t.Solves,
		}
	}
	return appendRows(s, key, "solve_tallies.csv", rows)
}
