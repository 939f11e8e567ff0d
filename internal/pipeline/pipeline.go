// Package pipeline drives one experiment run at a time through chunked decoding, parallel
// evaluation and result emission.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mcceval/internal/cache"
	"mcceval/internal/chunk"
	"mcceval/internal/codec"
	"mcceval/internal/config"
	"mcceval/internal/diversity"
	"mcceval/internal/evaluate"
	"mcceval/internal/metrics"
	"mcceval/internal/model"
	"mcceval/internal/simulator"
	"mcceval/internal/storage"
	"mcceval/internal/trial"
)

type Pipeline struct {
	Config    *config.Config
	Repo      storage.GenomeRepository
	Sink      storage.ResultSink
	Simulator simulator.Simulator
	Logger    *slog.Logger

	// Results is read by Upscale to find the pairs that passed evaluation.
	Results storage.ResultReader
	// Strata groups a run's genomes for stratified and even sampling, which fail without it.
	Strata Strata
	// Clusterer, when set, receives the sampled body reference set after a diversity pass.
	Clusterer diversity.Clusterer[*model.VoxelBody]
}

// Strata returns the stratum name of every genome of kind in run.
type Strata func(ctx context.Context, run int, kind model.GenomeKind) (func(id int64) string, error)

// RunReport summarizes one command over one run.
type RunReport struct {
	ExperimentID string
	Run          int
	Chunks       int
	Summary      evaluate.Summary
	Records      int
	Elapsed      time.Duration
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) bodyCodec() codec.BodyCodec {
	b := p.Config.Body
	return codec.BodyCodec{Factory: codec.BodyFactory{
		LengthX: b.LengthX, LengthY: b.LengthY, LengthZ: b.LengthZ, PresenceThreshold: b.PresenceThreshold,
	}}
}

func (p *Pipeline) brainCodec() codec.BrainCodec {
	return codec.BrainCodec{MinFrequency: p.Config.Brain.MinFrequency, MaxFrequency: p.Config.Brain.MaxFrequency}
}

func (p *Pipeline) mazeCodec() codec.MazeCodec {
	return codec.MazeCodec{Factory: codec.MazeFactory{Width: p.Config.Maze.Width, Height: p.Config.Maze.Height}}
}

func (p *Pipeline) navigatorCodec() codec.NavigatorCodec {
	return codec.NavigatorCodec{Inputs: p.Config.Navigator.Inputs, Outputs: p.Config.Navigator.Outputs}
}

func (p *Pipeline) evaluator() *evaluate.Evaluator {
	return &evaluate.Evaluator{
		Workers:  p.Config.Evaluation.Workers,
		FailFast: p.Config.Evaluation.FailFast,
		Logger:   p.logger(),
	}
}

func (p *Pipeline) ids(ctx context.Context, run int, kind model.GenomeKind) ([]int64, error) {
	ids, err := p.Repo.GetIDs(ctx, p.Config.Experiment.ID, run, kind, p.Config.Experiment.Batch)
	if err != nil {
		return nil, fmt.Errorf("list %s ids for run %d: %w", kind, run, err)
	}
	return ids, nil
}

func (p *Pipeline) genomes(ctx context.Context, run int, kind model.GenomeKind, ids []int64) ([]model.Genome, error) {
	genomes, err := p.Repo.GetGenomeData(ctx, p.Config.Experiment.ID, run, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch %s genomes for run %d: %w", kind, run, err)
	}
	return genomes, nil
}

func flatten(units []*model.EvaluationUnit) []model.EvaluationRecord {
	records := make([]model.EvaluationRecord, len(units))
	for i, u := range units {
		records[i] = u.Flatten()
	}
	return records
}

// EvaluateBodies runs one distance-bounded trial per body/brain pair of the run. A body and
// its brain share a genome id.
func (p *Pipeline) EvaluateBodies(ctx context.Context, run int) (RunReport, error) {
	start := time.Now()
	report := RunReport{ExperimentID: p.Config.Experiment.ID, Run: run}
	logger := p.logger().With("experiment", report.ExperimentID, "run", run, "stage", "evaluate")

	ids, err := p.ids(ctx, run, model.KindBody)
	if err != nil {
		return report, err
	}
	chunks, err := chunk.Chunk(ids, p.Config.Evaluation.ChunkSize)
	if err != nil {
		return report, err
	}
	logger.Info("evaluating body/brain pairs", "pairs", len(ids), "chunks", chunk.Count(len(ids), p.Config.Evaluation.ChunkSize))

	for window := range chunks {
		bodies, err := p.genomes(ctx, run, model.KindBody, window)
		if err != nil {
			return report, err
		}
		brains, err := p.genomes(ctx, run, model.KindBrain, window)
		if err != nil {
			return report, err
		}
		units, err := trial.Zip(model.PairBodyBrain, bodies, brains)
		if err != nil {
			return report, err
		}

		tr := &trial.BodyBrainTrial{
			Bodies:      p.bodyCodec(),
			Brains:      p.brainCodec(),
			BodyCache:   cache.New[*model.VoxelBody](),
			BrainCache:  cache.New[*model.BodyController](),
			Simulator:   p.Simulator,
			MinDistance: p.Config.Evaluation.MinSuccessDistance,
			Bound:       p.Config.Evaluation.DistanceBound,
		}
		summary, err := p.evaluator().Evaluate(ctx, units, tr.Run)
		if err != nil {
			return report, err
		}

		key := storage.NewBatchKey(report.ExperimentID, run, report.Chunks)
		records := flatten(units)
		if err := p.Sink.SaveEvaluations(ctx, key, records); err != nil {
			return report, fmt.Errorf("save evaluations for chunk %d: %w", report.Chunks, err)
		}
		report.Summary.Merge(summary)
		report.Records += len(records)
		report.Chunks++
		metrics.ChunksTotal.WithLabelValues("evaluate").Inc()
		logger.Debug("chunk evaluated", "chunk", key.Chunk, "batch_id", key.BatchID, "units", summary.Total, "succeeded", summary.Succeeded)
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// NavigateMazes evaluates every maze against every navigator of the run. The cross-product is
// walked one maze chunk by one navigator chunk at a time; each step emits its evaluations,
// per-entity solve tallies and the trajectory diversity of the navigators in each maze.
func (p *Pipeline) NavigateMazes(ctx context.Context, run int) (RunReport, error) {
	start := time.Now()
	report := RunReport{ExperimentID: p.Config.Experiment.ID, Run: run}
	logger := p.logger().With("experiment", report.ExperimentID, "run", run, "stage", "navigate")

	mazeIDs, err := p.ids(ctx, run, model.KindMaze)
	if err != nil {
		return report, err
	}
	navigatorIDs, err := p.ids(ctx, run, model.KindNavigator)
	if err != nil {
		return report, err
	}
	size := p.Config.Evaluation.ChunkSize
	mazeChunks, err := chunk.Chunk(mazeIDs, size)
	if err != nil {
		return report, err
	}
	logger.Info("evaluating maze/navigator cross-product", "mazes", len(mazeIDs), "navigators", len(navigatorIDs))

	for mazeWindow := range mazeChunks {
		mazes, err := p.genomes(ctx, run, model.KindMaze, mazeWindow)
		if err != nil {
			return report, err
		}
		mazeCache := cache.New[*model.Maze]()

		navigatorChunks, err := chunk.Chunk(navigatorIDs, size)
		if err != nil {
			return report, err
		}
		for navigatorWindow := range navigatorChunks {
			navigators, err := p.genomes(ctx, run, model.KindNavigator, navigatorWindow)
			if err != nil {
				return report, err
			}
			units := trial.CrossProduct(model.PairMazeNavigator, mazes, navigators)
			tr := &trial.MazeNavigatorTrial{
				Mazes:          p.mazeCodec(),
				Navigators:     p.navigatorCodec(),
				MazeCache:      mazeCache,
				NavigatorCache: cache.New[*model.Navigator](),
				Simulator:      p.Simulator,
				TimeBound:      p.Config.Evaluation.TimeBound,
			}
			summary, err := p.evaluator().Evaluate(ctx, units, tr.Run)
			if err != nil {
				return report, err
			}

			key := storage.NewBatchKey(report.ExperimentID, run, report.Chunks)
			records := flatten(units)
			if err := p.Sink.SaveEvaluations(ctx, key, records); err != nil {
				return report, fmt.Errorf("save evaluations for chunk %d: %w", key.Chunk, err)
			}
			if err := p.Sink.SaveSolveTallies(ctx, key, SolveTallies(units)); err != nil {
				return report, fmt.Errorf("save solve tallies for chunk %d: %w", key.Chunk, err)
			}
			trajectories, err := p.trajectoryDiversity(ctx, units)
			if err != nil {
				return report, err
			}
			if err := p.Sink.SaveDiversity(ctx, key, trajectories); err != nil {
				return report, fmt.Errorf("save trajectory diversity for chunk %d: %w", key.Chunk, err)
			}

			report.Summary.Merge(summary)
			report.Records += len(records)
			report.Chunks++
			metrics.ChunksTotal.WithLabelValues("navigate").Inc()
			logger.Debug("chunk evaluated", "chunk", key.Chunk, "batch_id", key.BatchID, "units", summary.Total, "solved", summary.Succeeded)
		}
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// SolveTallies counts trials and successes per maze and per navigator, mazes first, each in
// first-seen order.
func SolveTallies(units []*model.EvaluationUnit) []model.SolveTally {
	type tallyKey struct {
		kind model.GenomeKind
		id   int64
	}
	index := make(map[tallyKey]int)
	var tallies []model.SolveTally
	add := func(kind model.GenomeKind, id int64, solved bool) {
		k := tallyKey{kind, id}
		i, ok := index[k]
		if !ok {
			i = len(tallies)
			index[k] = i
			tallies = append(tallies, model.SolveTally{EntityID: id, Kind: kind})
		}
		tallies[i].Trials++
		if solved {
			tallies[i].Solves++
		}
	}
	for _, u := range units {
		add(model.KindMaze, u.PrimaryID, u.Outcome.Success)
	}
	for _, u := range units {
		add(model.KindNavigator, u.SecondaryID, u.Outcome.Success)
	}
	return tallies
}

// trajectoryDiversity compares the trajectories of the navigators run in the same maze. It
// yields one record per navigator per maze, in maze order.
func (p *Pipeline) trajectoryDiversity(ctx context.Context, units []*model.EvaluationUnit) ([]model.DiversityRecord, error) {
	var order []int64
	byMaze := make(map[int64][]diversity.Entity[[]model.Point])
	for _, u := range units {
		if len(u.Outcome.Trajectory) == 0 {
			continue
		}
		if _, ok := byMaze[u.PrimaryID]; !ok {
			order = append(order, u.PrimaryID)
		}
		byMaze[u.PrimaryID] = append(byMaze[u.PrimaryID], diversity.Entity[[]model.Point]{
			ID: u.SecondaryID, Kind: model.KindNavigator, Value: u.Outcome.Trajectory,
		})
	}
	agg := &diversity.Aggregator[[]model.Point]{
		Workers: p.Config.Evaluation.Workers,
		Width:   1,
		Compare: diversity.TrajectoryMetrics,
	}
	var records []model.DiversityRecord
	for _, mazeID := range order {
		population := byMaze[mazeID]
		out, err := agg.Exhaustive(ctx, population, population)
		if err != nil {
			return nil, fmt.Errorf("trajectory diversity in maze %d: %w", mazeID, err)
		}
		records = append(records, out...)
	}
	return records, nil
}
