package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcceval/internal/model"
)

func makeUnits(n int) []*model.EvaluationUnit {
	units := make([]*model.EvaluationUnit, n)
	for i := range units {
		units[i] = model.NewEvaluationUnit(model.PairBodyBrain,
			model.Genome{ID: int64(i), Kind: model.KindBody},
			model.Genome{ID: int64(i), Kind: model.KindBrain})
	}
	return units
}

func TestEvaluateRunsEachUnitOnceWithinWorkerBound(t *testing.T) {
	units := makeUnits(40)
	var calls, inFlight, peak atomic.Int32
	trial := func(ctx context.Context, u *model.EvaluationUnit) (model.Outcome, error) {
		calls.Add(1)
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return model.Outcome{Success: u.PrimaryID%2 == 0, Distance: float64(u.PrimaryID)}, nil
	}

	e := &Evaluator{Workers: 3}
	summary, err := e.Evaluate(context.Background(), units, trial)
	require.NoError(t, err)
	assert.Equal(t, int32(40), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, Summary{Total: 40, Succeeded: 20, Failed: 20}, summary)
	for _, u := range units {
		require.True(t, u.Recorded())
		assert.InDelta(t, float64(u.PrimaryID), u.Outcome.Distance, 1e-12)
	}
}

func TestEvaluateIsolatesFailures(t *testing.T) {
	units := makeUnits(6)
	trial := func(_ context.Context, u *model.EvaluationUnit) (model.Outcome, error) {
		switch u.PrimaryID {
		case 1:
			return model.Outcome{}, model.NewDecodeError(u.Primary, "bad json")
		case 2:
			return model.Outcome{}, fmt.Errorf("%w: exit status 1", model.ErrSimulation)
		case 3:
			return model.Outcome{}, fmt.Errorf("%w after 1s", model.ErrTimeout)
		}
		return model.Outcome{Success: true}, nil
	}

	summary, err := (&Evaluator{Workers: 2}).Evaluate(context.Background(), units, trial)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 6, Succeeded: 3, DecodeErrors: 1, SimulationErrors: 1, Timeouts: 1}, summary)
	assert.Equal(t, model.StatusDecodeError, units[1].Outcome.Status)
	assert.False(t, units[1].Outcome.Success)
	assert.Contains(t, units[1].Outcome.Err, "bad json")
	assert.Equal(t, model.StatusTimeout, units[3].Outcome.Status)
}

func TestEvaluateFailFast(t *testing.T) {
	units := makeUnits(50)
	trial := func(ctx context.Context, u *model.EvaluationUnit) (model.Outcome, error) {
		if u.PrimaryID == 0 {
			return model.Outcome{}, fmt.Errorf("%w: crashed", model.ErrSimulation)
		}
		select {
		case <-ctx.Done():
			return model.Outcome{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return model.Outcome{Success: true}, nil
	}

	summary, err := (&Evaluator{Workers: 1, FailFast: true}).Evaluate(context.Background(), units, trial)
	require.ErrorIs(t, err, model.ErrSimulation)
	assert.Less(t, summary.Total, 50)
}

func TestEvaluateParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Evaluator{}).Evaluate(ctx, makeUnits(3), func(context.Context, *model.EvaluationUnit) (model.Outcome, error) {
		return model.Outcome{Success: true}, nil
	})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestEvaluateEmpty(t *testing.T) {
	summary, err := (&Evaluator{}).Evaluate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}
