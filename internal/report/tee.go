package report

import (
	"context"
	"errors"

	"mcceval/internal/model"
	"mcceval/internal/storage"
)

type tee []storage.ResultSink

// Tee forwards every save to each sink in order. All sinks are attempted; their errors are
// joined.
func Tee(sinks ...storage.ResultSink) storage.ResultSink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t tee) each(fn func(storage.ResultSink) error) error {
	var errs []error
	for _, s := range t {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) SaveEvaluations(ctx context.Context, key storage.BatchKey, records []model.EvaluationRecord) error {
	return t.each(func(s storage.ResultSink) error { return s.SaveEvaluations(ctx, key, records) })
}

func (t tee) SaveDiversity(ctx context.Context, key storage.BatchKey, records []model.DiversityRecord) error {
	return t.each(func(s storage.ResultSink) error { return s.SaveDiversity(ctx, key, records) })
}

func (t tee) SaveUpscale(ctx context.Context, key storage.BatchKey, results []model.UpscaleResult) error {
	return t.each(func(s storage.ResultSink) error { return s.SaveUpscale(ctx, key, results) })
}

func (t tee) SaveSolveTallies(ctx context.Context, key storage.BatchKey, tallies []model.SolveTally) error {
	return t.each(func(s storage.ResultSink) error { return s.SaveSolveTallies(ctx, key, tallies) })
}
