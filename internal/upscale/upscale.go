// Package upscale searches for the largest body resolution at which an evolved brain still
// drives its body to the minimal distance criterion.
package upscale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"mcceval/internal/codec"
	"mcceval/internal/metrics"
	"mcceval/internal/model"
	"mcceval/internal/simulator"
	"mcceval/internal/trial"
)

type Pair struct {
	Body  model.Genome
	Brain model.Genome
}

type Engine struct {
	Bodies    codec.BodyCodec
	Brains    codec.BrainCodec
	Simulator simulator.Simulator
	// MinDistance is the distance criterion each increment must meet.
	MinDistance float64
	Bound       float64
	// MaxBodySize is the ceiling on evolved size plus increment.
	MaxBodySize int
	// Workers bounds how many pairs are searched at once. Zero uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// EvolvedSize is the body dimension genomes were evolved at: the largest factory extent.
func (e *Engine) EvolvedSize() int {
	f := e.Bodies.Factory
	return max(f.LengthX, f.LengthY, f.LengthZ)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Search steps the resolution delta up from zero, one trial per increment, and stops at the
// first failed trial or once the ceiling is reached. Trial errors end the search and are
// reported through StopReason rather than returned.
func (e *Engine) Search(ctx context.Context, pair Pair) (model.UpscaleResult, error) {
	evolved := e.EvolvedSize()
	if e.MaxBodySize < evolved {
		return model.UpscaleResult{}, fmt.Errorf("%w: max body size %d below evolved size %d",
			model.ErrConfiguration, e.MaxBodySize, evolved)
	}

	result := model.UpscaleResult{BodyID: pair.Body.ID, BrainID: pair.Brain.ID, EvolvedSize: evolved}
	lastSuccess := -1
	for increment := 0; evolved+increment <= e.MaxBodySize; increment++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ok, err := e.attempt(ctx, pair, increment)
		result.Trials++
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.StopReason = stopReason(err)
			e.logger().Warn("upscale trial error",
				"body_id", pair.Body.ID,
				"brain_id", pair.Brain.ID,
				"increment", increment,
				"error", err)
			break
		}
		if !ok {
			result.StopReason = model.StopCriterionFailed
			break
		}
		lastSuccess = increment
	}
	if result.StopReason == "" {
		result.StopReason = model.StopCeiling
	}
	result.MaxViableSize = evolved + max(lastSuccess, 0)
	result.Improved = lastSuccess >= 1
	metrics.UpscaleTrialsTotal.WithLabelValues(string(result.StopReason)).Inc()
	return result, nil
}

func (e *Engine) attempt(ctx context.Context, pair Pair, increment int) (bool, error) {
	body, err := e.Bodies.Decode(pair.Body, increment)
	if err != nil {
		return false, err
	}
	brain, err := e.Brains.Decode(pair.Brain, body.LengthX, body.LengthY, body.LengthZ)
	if err != nil {
		return false, err
	}
	outcome, err := trial.SimulateBody(ctx, e.Simulator, body, brain, e.Bound, e.MinDistance)
	if err != nil {
		return false, err
	}
	return outcome.Success, nil
}

func stopReason(err error) model.UpscaleStopReason {
	switch {
	case errors.Is(err, model.ErrTimeout):
		return model.StopTimeout
	case errors.Is(err, model.ErrDecode):
		return model.StopDecodeError
	default:
		return model.StopSimulationError
	}
}

// SearchAll searches independent pairs concurrently. Results are returned in pair order.
func (e *Engine) SearchAll(ctx context.Context, pairs []Pair) ([]model.UpscaleResult, error) {
	if evolved := e.EvolvedSize(); e.MaxBodySize < evolved {
		return nil, fmt.Errorf("%w: max body size %d below evolved size %d",
			model.ErrConfiguration, e.MaxBodySize, evolved)
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]model.UpscaleResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pair := range pairs {
		g.Go(func() error {
			res, err := e.Search(gctx, pair)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
