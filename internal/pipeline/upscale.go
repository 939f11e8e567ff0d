package pipeline

import (
	"context"
	"fmt"
	"time"

	"mcceval/internal/chunk"
	"mcceval/internal/metrics"
	"mcceval/internal/model"
	"mcceval/internal/storage"
	"mcceval/internal/upscale"
)

type pairIDs struct {
	body, brain int64
}

// viablePairs returns the distinct body/brain pairs that met the distance criterion, in the
// order they were evaluated.
func viablePairs(records []model.EvaluationRecord) []pairIDs {
	seen := make(map[pairIDs]struct{})
	var out []pairIDs
	for _, r := range records {
		if r.Kind != model.PairBodyBrain || !r.Success {
			continue
		}
		k := pairIDs{r.PrimaryID, r.SecondaryID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Upscale searches the maximum viable body size of every pair that passed evaluation in this
// run. Evaluations are read back from Results, so EvaluateBodies must have run first.
func (p *Pipeline) Upscale(ctx context.Context, run int) (RunReport, error) {
	start := time.Now()
	report := RunReport{ExperimentID: p.Config.Experiment.ID, Run: run}
	logger := p.logger().With("experiment", report.ExperimentID, "run", run, "stage", "upscale")

	if p.Results == nil {
		return report, fmt.Errorf("%w: upscaling needs a result reader", model.ErrConfiguration)
	}
	records, err := p.Results.LoadEvaluations(ctx, report.ExperimentID, run)
	if err != nil {
		return report, fmt.Errorf("load evaluations for run %d: %w", run, err)
	}
	pairs := viablePairs(records)
	logger.Info("upscaling viable pairs", "pairs", len(pairs), "evaluations", len(records))

	engine := &upscale.Engine{
		Bodies:      p.bodyCodec(),
		Brains:      p.brainCodec(),
		Simulator:   p.Simulator,
		MinDistance: p.Config.Evaluation.MinSuccessDistance,
		Bound:       p.Config.Evaluation.DistanceBound,
		MaxBodySize: p.Config.Body.MaxBodySize,
		Workers:     p.Config.Evaluation.Workers,
		Logger:      logger,
	}
	chunks, err := chunk.Chunk(pairs, p.Config.Evaluation.ChunkSize)
	if err != nil {
		return report, err
	}
	for window := range chunks {
		bodyIDs := make([]int64, len(window))
		brainIDs := make([]int64, len(window))
		for i, pr := range window {
			bodyIDs[i], brainIDs[i] = pr.body, pr.brain
		}
		bodies, err := p.genomes(ctx, run, model.KindBody, bodyIDs)
		if err != nil {
			return report, err
		}
		brains, err := p.genomes(ctx, run, model.KindBrain, brainIDs)
		if err != nil {
			return report, err
		}
		batch := make([]upscale.Pair, len(window))
		for i := range window {
			batch[i] = upscale.Pair{Body: bodies[i], Brain: brains[i]}
		}

		results, err := engine.SearchAll(ctx, batch)
		if err != nil {
			return report, err
		}
		key := storage.NewBatchKey(report.ExperimentID, run, report.Chunks)
		if err := p.Sink.SaveUpscale(ctx, key, results); err != nil {
			return report, fmt.Errorf("save upscale results for chunk %d: %w", key.Chunk, err)
		}
		for _, r := range results {
			report.Summary.Total++
			switch r.StopReason {
			case model.StopCeiling, model.StopCriterionFailed:
				report.Summary.Succeeded++
			case model.StopDecodeError:
				report.Summary.DecodeErrors++
			case model.StopTimeout:
				report.Summary.Timeouts++
			default:
				report.Summary.SimulationErrors++
			}
		}
		report.Records += len(results)
		report.Chunks++
		metrics.ChunksTotal.WithLabelValues("upscale").Inc()
		logger.Debug("chunk upscaled", "chunk", key.Chunk, "batch_id", key.BatchID, "pairs", len(results))
	}

	report.Elapsed = time.Since(start)
	return report, nil
}
