package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mcceval/internal/model"
)

// exerciseStore runs the behaviour every Store backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	genomes := []model.Genome{
		{ID: 3, Kind: model.KindBody, Encoding: `{"b":3}`},
		{ID: 1, Kind: model.KindBody, Encoding: `{"b":1}`},
		{ID: 2, Kind: model.KindBody, Encoding: `{"b":2}`},
		{ID: 1, Kind: model.KindBrain, Encoding: `{"r":1}`},
	}
	if err := store.SaveGenomes(ctx, "exp", 0, 0, genomes[:2]); err != nil {
		t.Fatalf("save genomes: %v", err)
	}
	if err := store.SaveGenomes(ctx, "exp", 0, 1, genomes[2:]); err != nil {
		t.Fatalf("save genomes: %v", err)
	}

	ids, err := store.GetIDs(ctx, "exp", 0, model.KindBody, nil)
	if err != nil {
		t.Fatalf("get ids: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Fatalf("unexpected body ids: %v", ids)
	}

	batch := 1
	ids, err = store.GetIDs(ctx, "exp", 0, model.KindBody, &batch)
	if err != nil {
		t.Fatalf("get batch ids: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{2}) {
		t.Fatalf("unexpected batch ids: %v", ids)
	}

	ids, err = store.GetIDs(ctx, "exp", 1, model.KindBody, nil)
	if err != nil {
		t.Fatalf("get other run ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids for another run, got %v", ids)
	}

	data, err := store.GetGenomeData(ctx, "exp", 0, model.KindBody, []int64{3, 1})
	if err != nil {
		t.Fatalf("get genome data: %v", err)
	}
	if len(data) != 2 || data[0].ID != 3 || data[1].Encoding != `{"b":1}` || data[0].Kind != model.KindBody {
		t.Fatalf("unexpected genome data: %+v", data)
	}

	if _, err := store.GetGenomeData(ctx, "exp", 0, model.KindBrain, []int64{1, 9}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	batches, err := store.GetBatches(ctx, "exp", 0, model.KindBody)
	if err != nil {
		t.Fatalf("get batches: %v", err)
	}
	if !reflect.DeepEqual(batches, map[int64]int{1: 0, 2: 1, 3: 0}) {
		t.Fatalf("unexpected batches: %v", batches)
	}

	first := NewBatchKey("exp", 0, 0)
	second := NewBatchKey("exp", 0, 1)
	if first.BatchID == second.BatchID {
		t.Fatal("expected distinct batch ids")
	}

	if err := store.SaveEvaluations(ctx, first, []model.EvaluationRecord{
		{Kind: model.PairBodyBrain, PrimaryID: 1, SecondaryID: 1, Status: model.StatusSucceeded, Success: true, Distance: 4.5},
	}); err != nil {
		t.Fatalf("save evaluations: %v", err)
	}
	if err := store.SaveEvaluations(ctx, second, []model.EvaluationRecord{
		{Kind: model.PairBodyBrain, PrimaryID: 2, SecondaryID: 2, Status: model.StatusTimeout, Error: "simulation timed out"},
	}); err != nil {
		t.Fatalf("save evaluations: %v", err)
	}
	evaluations, err := store.LoadEvaluations(ctx, "exp", 0)
	if err != nil {
		t.Fatalf("load evaluations: %v", err)
	}
	if len(evaluations) != 2 || evaluations[0].PrimaryID != 1 || evaluations[1].Status != model.StatusTimeout {
		t.Fatalf("unexpected evaluations: %+v", evaluations)
	}

	diversity := []model.DiversityRecord{{EntityID: 1, Kind: model.KindBody, Metrics: []float64{0.5, 0.5, 0.5, 0}, Comparisons: 2}}
	if err := store.SaveDiversity(ctx, first, diversity); err != nil {
		t.Fatalf("save diversity: %v", err)
	}
	loadedDiversity, err := store.LoadDiversity(ctx, "exp", 0)
	if err != nil {
		t.Fatalf("load diversity: %v", err)
	}
	if !reflect.DeepEqual(loadedDiversity, diversity) {
		t.Fatalf("unexpected diversity: %+v", loadedDiversity)
	}

	upscale := []model.UpscaleResult{{BodyID: 1, BrainID: 1, EvolvedSize: 5, MaxViableSize: 7, Trials: 4, Improved: true, StopReason: model.StopCriterionFailed}}
	if err := store.SaveUpscale(ctx, first, upscale); err != nil {
		t.Fatalf("save upscale: %v", err)
	}
	loadedUpscale, err := store.LoadUpscale(ctx, "exp", 0)
	if err != nil {
		t.Fatalf("load upscale: %v", err)
	}
	if !reflect.DeepEqual(loadedUpscale, upscale) {
		t.Fatalf("unexpected upscale: %+v", loadedUpscale)
	}

	tallies := []model.SolveTally{{EntityID: 10, Kind: model.KindMaze, Trials: 3, Solves: 1}}
	if err := store.SaveSolveTallies(ctx, first, tallies); err != nil {
		t.Fatalf("save tallies: %v", err)
	}
	loadedTallies, err := store.LoadSolveTallies(ctx, "exp", 0)
	if err != nil {
		t.Fatalf("load tallies: %v", err)
	}
	if !reflect.DeepEqual(loadedTallies, tallies) {
		t.Fatalf("unexpected tallies: %+v", loadedTallies)
	}

	empty, err := store.LoadUpscale(ctx, "exp", 7)
	if err != nil {
		t.Fatalf("load empty run: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no results for unknown run, got %+v", empty)
	}
}
