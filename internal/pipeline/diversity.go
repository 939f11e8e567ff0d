package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"mcceval/internal/chunk"
	"mcceval/internal/diversity"
	"mcceval/internal/metrics"
	"mcceval/internal/model"
	"mcceval/internal/storage"
)

// sampler builds the reference-set sampler for one kind. Stratified and even sampling need a
// grouping of the run's genomes, so they are a configuration error without Strata.
func (p *Pipeline) sampler(ctx context.Context, run int, kind model.GenomeKind) (diversity.Sampler, error) {
	d := p.Config.Diversity
	s := diversity.Sampler{
		Size:     d.SampleSize,
		Strategy: diversity.Strategy(d.SamplingStrategy()),
		Seed:     d.Seed,
	}
	if s.Strategy == diversity.StrategyUniform {
		return s, nil
	}
	if p.Strata == nil {
		return s, fmt.Errorf("%w: %s sampling needs a grouping of %s genomes", model.ErrConfiguration, s.Strategy, kind)
	}
	group, err := p.Strata(ctx, run, kind)
	if err != nil {
		return s, fmt.Errorf("group %s genomes for run %d: %w", kind, run, err)
	}
	s.Group = group
	return s, nil
}

// BatchStrata groups genomes by the import batch they arrived in.
func BatchStrata(index storage.BatchIndex, experimentID string) Strata {
	return func(ctx context.Context, run int, kind model.GenomeKind) (func(int64) string, error) {
		batches, err := index.GetBatches(ctx, experimentID, run, kind)
		if err != nil {
			return nil, err
		}
		return func(id int64) string {
			return strconv.Itoa(batches[id])
		}, nil
	}
}

type skipCounts struct {
	failed map[int64]struct{}
}

// diversityPass describes how one genome kind is decoded and compared.
type diversityPass[T any] struct {
	kind    model.GenomeKind
	stage   string
	width   int
	compare func(a, b T) []float64
	decode  func(model.Genome) (T, error)
}

// decodeAll decodes genomes, skipping and remembering those that fail to decode.
func decodeAll[T any](logger *slog.Logger, pass diversityPass[T], genomes []model.Genome, skips *skipCounts) ([]diversity.Entity[T], error) {
	entities := make([]diversity.Entity[T], 0, len(genomes))
	for _, g := range genomes {
		v, err := pass.decode(g)
		if err != nil {
			if !errors.Is(err, model.ErrDecode) {
				return nil, err
			}
			skips.failed[g.ID] = struct{}{}
			logger.Warn("skipping genome that failed to decode", "id", g.ID, "error", err)
			continue
		}
		entities = append(entities, diversity.Entity[T]{ID: g.ID, Kind: pass.kind, Value: v})
	}
	return entities, nil
}

// fetchDecoded fetches one window of ids and decodes it, leaving out ids already known
// to fail.
func fetchDecoded[T any](ctx context.Context, p *Pipeline, run int, pass diversityPass[T], logger *slog.Logger, ids []int64, skips *skipCounts) ([]diversity.Entity[T], error) {
	var wanted []int64
	for _, id := range ids {
		if _, bad := skips.failed[id]; !bad {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}
	genomes, err := p.genomes(ctx, run, pass.kind, wanted)
	if err != nil {
		return nil, err
	}
	return decodeAll(logger, pass, genomes, skips)
}

// runDiversity draws one reference set with the configured sampler, then walks the run's ids a
// chunk at a time. Each chunk keeps one accumulator per entity while the reference set streams
// past it in chunk-sized windows. A reference set no larger than one chunk is decoded once and
// kept; it is returned so callers can reuse it.
func runDiversity[T any](ctx context.Context, p *Pipeline, run int, pass diversityPass[T]) (RunReport, []int64, []diversity.Entity[T], error) {
	start := time.Now()
	report := RunReport{ExperimentID: p.Config.Experiment.ID, Run: run}
	logger := p.logger().With("experiment", report.ExperimentID, "run", run, "stage", pass.stage)

	ids, err := p.ids(ctx, run, pass.kind)
	if err != nil {
		return report, nil, nil, err
	}
	sampler, err := p.sampler(ctx, run, pass.kind)
	if err != nil {
		return report, nil, nil, err
	}
	size := p.Config.Evaluation.ChunkSize
	referenceIDs := sampler.Sample(ids)
	logger.Info("measuring diversity", "population", len(ids), "reference", len(referenceIDs),
		"strategy", sampler.Strategy)

	skips := skipCounts{failed: make(map[int64]struct{})}
	var resident []diversity.Entity[T]
	byID := make(map[int64]diversity.Entity[T])
	if len(referenceIDs) <= size {
		resident, err = fetchDecoded(ctx, p, run, pass, logger, referenceIDs, &skips)
		if err != nil {
			return report, nil, nil, err
		}
		for _, e := range resident {
			byID[e.ID] = e
		}
	}

	agg := &diversity.Aggregator[T]{
		Workers: p.Config.Evaluation.Workers,
		Width:   pass.width,
		Compare: pass.compare,
	}
	chunks, err := chunk.Chunk(ids, size)
	if err != nil {
		return report, nil, nil, err
	}
	var all []model.DiversityRecord
	for window := range chunks {
		var entities []diversity.Entity[T]
		var missing []int64
		for _, id := range window {
			if e, ok := byID[id]; ok {
				entities = append(entities, e)
			} else {
				missing = append(missing, id)
			}
		}
		decoded, err := fetchDecoded(ctx, p, run, pass, logger, missing, &skips)
		if err != nil {
			return report, nil, nil, err
		}
		entities = append(entities, decoded...)

		partial, err := agg.NewPartial(entities)
		if err != nil {
			return report, nil, nil, err
		}
		if err := addReference(ctx, p, run, pass, logger, partial, resident, referenceIDs, &skips); err != nil {
			return report, nil, nil, fmt.Errorf("%s diversity for chunk %d: %w", pass.kind, report.Chunks, err)
		}
		records := partial.Records()
		key := storage.NewBatchKey(report.ExperimentID, run, report.Chunks)
		if err := p.Sink.SaveDiversity(ctx, key, records); err != nil {
			return report, nil, nil, fmt.Errorf("save diversity for chunk %d: %w", key.Chunk, err)
		}
		all = append(all, records...)
		report.Records += len(records)
		report.Chunks++
		metrics.ChunksTotal.WithLabelValues(pass.stage).Inc()
		logger.Debug("chunk measured", "chunk", key.Chunk, "batch_id", key.BatchID, "entities", len(entities))
	}

	report.Summary.Total = len(ids)
	report.Summary.Succeeded = len(all)
	report.Summary.DecodeErrors = len(skips.failed)
	for i, s := range diversity.Summarize(all) {
		logger.Info("diversity metric", "metric", i, "mean", s.Mean, "stddev", s.StdDev)
	}
	report.Elapsed = time.Since(start)
	return report, referenceIDs, resident, nil
}

// addReference feeds the reference set to partial, from memory when it is resident and
// otherwise one fetched window at a time.
func addReference[T any](ctx context.Context, p *Pipeline, run int, pass diversityPass[T], logger *slog.Logger, partial *diversity.Partial[T], resident []diversity.Entity[T], referenceIDs []int64, skips *skipCounts) error {
	if len(referenceIDs) <= p.Config.Evaluation.ChunkSize {
		return partial.Add(ctx, resident)
	}
	windows, err := chunk.Chunk(referenceIDs, p.Config.Evaluation.ChunkSize)
	if err != nil {
		return err
	}
	for window := range windows {
		reference, err := fetchDecoded(ctx, p, run, pass, logger, window, skips)
		if err != nil {
			return err
		}
		if err := partial.Add(ctx, reference); err != nil {
			return err
		}
	}
	return nil
}

// BodyDiversity measures voxel-grid dissimilarity of every body in the run against the
// reference set, then hands the reference set to the Clusterer if one is configured.
func (p *Pipeline) BodyDiversity(ctx context.Context, run int) (RunReport, error) {
	bodies := p.bodyCodec()
	pass := diversityPass[*model.VoxelBody]{
		kind:    model.KindBody,
		stage:   "body_diversity",
		width:   diversity.GridMetrics,
		compare: diversity.VoxelMetrics,
		decode: func(g model.Genome) (*model.VoxelBody, error) {
			return bodies.Decode(g, 0)
		},
	}
	report, referenceIDs, reference, err := runDiversity(ctx, p, run, pass)
	if err != nil || p.Clusterer == nil {
		return report, err
	}
	if len(referenceIDs) > p.Config.Evaluation.ChunkSize {
		// The clusterer needs the whole reference set at once.
		skips := skipCounts{failed: make(map[int64]struct{})}
		windows, err := chunk.Chunk(referenceIDs, p.Config.Evaluation.ChunkSize)
		if err != nil {
			return report, err
		}
		for window := range windows {
			decoded, err := fetchDecoded(ctx, p, run, pass, p.logger(), window, &skips)
			if err != nil {
				return report, err
			}
			reference = append(reference, decoded...)
		}
	}
	r := diversity.ClusterRange{Min: p.Config.Diversity.ClusterRange.Min, Max: p.Config.Diversity.ClusterRange.Max}
	whole := diversity.Sampler{Seed: p.Config.Diversity.Seed}
	if err := diversity.Cluster(ctx, p.Clusterer, reference, whole, r); err != nil {
		return report, err
	}
	return report, nil
}

// MazeDiversity measures wall-layout and endpoint dissimilarity of every maze in the run.
func (p *Pipeline) MazeDiversity(ctx context.Context, run int) (RunReport, error) {
	mazes := p.mazeCodec()
	report, _, _, err := runDiversity(ctx, p, run, diversityPass[*model.Maze]{
		kind:    model.KindMaze,
		stage:   "maze_diversity",
		width:   diversity.MazeMetrics,
		compare: diversity.MazeDissimilarity,
		decode:  mazes.Decode,
	})
	return report, err
}
