package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mcceval/internal/model"
	"mcceval/internal/storage"
)

func readRunFile(t *testing.T, sink *CSVSink, experimentID string, run int, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(sink.RunDir(experimentID, run), name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}
	ctx := context.Background()

	for chunk := range 2 {
		key := storage.NewBatchKey("exp", 3, chunk)
		if err := sink.SaveEvaluations(ctx, key, []model.EvaluationRecord{{
			Kind: model.PairBodyBrain, PrimaryID: int64(chunk), SecondaryID: int64(chunk),
			Status: model.StatusSucceeded, Success: true, Steps: 10, Distance: 2.5,
		}}); err != nil {
			t.Fatalf("save evaluations chunk %d: %v", chunk, err)
		}
	}

	lines := strings.Split(strings.TrimSpace(readRunFile(t, sink, "exp", 3, "evaluations.csv")), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %d lines", len(lines))
	}
	if want := "experiment_id,run,batch_id,chunk,pair,primary_id,secondary_id,status,success,steps,distance,error"; lines[0] != want {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "exp,3,") || !strings.Contains(lines[2], ",1,body_brain,1,1,succeeded,true,10,2.5,") {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestCSVSinkRecordTypes(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}
	ctx := context.Background()
	key := storage.NewBatchKey("exp", 0, 0)

	if err := sink.SaveDiversity(ctx, key, []model.DiversityRecord{{EntityID: 4, Kind: model.KindBody, Metrics: []float64{0.5, 1, 0.25, 0}, Comparisons: 2}}); err != nil {
		t.Fatalf("save diversity: %v", err)
	}
	if err := sink.SaveUpscale(ctx, key, []model.UpscaleResult{{BodyID: 1, BrainID: 1, EvolvedSize: 5, MaxViableSize: 7, Trials: 4, Improved: true, StopReason: model.StopCriterionFailed}}); err != nil {
		t.Fatalf("save upscale: %v", err)
	}
	if err := sink.SaveSolveTallies(ctx, key, []model.SolveTally{{EntityID: 9, Kind: model.KindMaze, Trials: 3, Solves: 2}}); err != nil {
		t.Fatalf("save solve tallies: %v", err)
	}
	if err := sink.SaveSolveTallies(ctx, key, nil); err != nil {
		t.Fatalf("save empty solve tallies: %v", err)
	}

	for name, want := range map[string]string{
		"diversity.csv":     "4,body,2,0.5;1;0.25;0",
		"upscale.csv":       "1,1,5,7,4,true,criterion_failed",
		"solve_tallies.csv": "9,maze,3,2",
	} {
		if got := readRunFile(t, sink, "exp", 0, name); !strings.Contains(got, want) {
			t.Fatalf("%s lacks %q:\n%s", name, want, got)
		}
	}
}

type failingSink struct{ storage.ResultSink }

func (failingSink) SaveUpscale(context.Context, storage.BatchKey, []model.UpscaleResult) error {
	return errors.New("disk full")
}

func TestTeeForwardsToEverySink(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	csvSink, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}

	sink := Tee(failingSink{}, store, nil, csvSink)
	results := []model.UpscaleResult{{BodyID: 2, BrainID: 2, EvolvedSize: 5, MaxViableSize: 5, Trials: 1, StopReason: model.StopCriterionFailed}}
	err = sink.SaveUpscale(ctx, storage.NewBatchKey("exp", 1, 0), results)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected the failing sink's error, got %v", err)
	}

	loaded, err := store.LoadUpscale(ctx, "exp", 1)
	if err != nil {
		t.Fatalf("load upscale: %v", err)
	}
	if !reflect.DeepEqual(loaded, results) {
		t.Fatalf("expected %+v, got %+v", results, loaded)
	}
	if _, err := os.Stat(filepath.Join(csvSink.RunDir("exp", 1), "upscale.csv")); err != nil {
		t.Fatalf("expected upscale.csv: %v", err)
	}
}

func TestRunIndexReplacesSameRunAndCommand(t *testing.T) {
	dir := t.TempDir()
	for _, s := range []RunSummary{
		{ExperimentID: "exp", Run: 0, Command: "evaluate", Units: 10, CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{ExperimentID: "exp", Run: 1, Command: "evaluate", Units: 5, CreatedAtUTC: "2026-01-02T00:00:00Z"},
		{ExperimentID: "exp", Run: 0, Command: "evaluate", Units: 12, CreatedAtUTC: "2026-01-03T00:00:00Z"},
	} {
		if err := AppendRunIndex(dir, s); err != nil {
			t.Fatalf("append run index: %v", err)
		}
	}

	entries, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Units != 12 || entries[1].Run != 1 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := AppendRunIndex(dir, RunSummary{}); err == nil {
		t.Fatal("expected an empty summary to be rejected")
	}
}
