// Package evaluate fans evaluation units out over a bounded worker pool.
package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"mcceval/internal/metrics"
	"mcceval/internal/model"
)

// Trial evaluates one unit. A returned error is classified with model.StatusFor.
type Trial func(ctx context.Context, unit *model.EvaluationUnit) (model.Outcome, error)

type Evaluator struct {
	// Workers bounds concurrent trials. Zero uses GOMAXPROCS.
	Workers int
	// FailFast cancels the batch on the first trial error instead of recording it on the unit.
	FailFast bool
	Logger   *slog.Logger
}

type Summary struct {
	Total            int
	Succeeded        int
	Failed           int
	DecodeErrors     int
	SimulationErrors int
	Timeouts         int
}

func (s *Summary) add(o model.Outcome) {
	s.Total++
	switch o.Status {
	case model.StatusSucceeded:
		s.Succeeded++
	case model.StatusDecodeError:
		s.DecodeErrors++
	case model.StatusSimulationError:
		s.SimulationErrors++
	case model.StatusTimeout:
		s.Timeouts++
	default:
		s.Failed++
	}
}

func (s *Summary) Merge(o Summary) {
	s.Total += o.Total
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	s.DecodeErrors += o.DecodeErrors
	s.SimulationErrors += o.SimulationErrors
	s.Timeouts += o.Timeouts
}

func (e *Evaluator) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Evaluate runs trial once per unit and records each outcome on its unit. Outcomes are only
// read back after every worker has returned.
func (e *Evaluator) Evaluate(ctx context.Context, units []*model.EvaluationUnit, trial Trial) (Summary, error) {
	logger := e.logger()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for _, unit := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			outcome, err := trial(gctx, unit)
			if err != nil {
				if e.FailFast || ctx.Err() != nil {
					return fmt.Errorf("evaluate %s unit (%d, %d): %w", unit.Kind, unit.PrimaryID, unit.SecondaryID, err)
				}
				outcome = model.FailedOutcome(err)
				logger.Warn("trial failed",
					"pair", unit.Kind,
					"primary_id", unit.PrimaryID,
					"secondary_id", unit.SecondaryID,
					"status", outcome.Status,
					"error", err)
			}
			if outcome.Status == "" {
				outcome.Status = model.StatusFailed
				if outcome.Success {
					outcome.Status = model.StatusSucceeded
				}
			}
			if err := unit.Record(outcome); err != nil {
				return fmt.Errorf("record unit (%d, %d): %w", unit.PrimaryID, unit.SecondaryID, err)
			}
			metrics.ObserveTrial(string(unit.Kind), string(outcome.Status), time.Since(start))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	var summary Summary
	for _, unit := range units {
		if unit.Recorded() {
			summary.add(unit.Outcome)
		}
	}
	if err != nil {
		return summary, err
	}
	logger.Debug("batch evaluated",
		"units", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Total-summary.Succeeded)
	return summary, nil
}
