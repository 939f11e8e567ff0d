// Package trial builds the per-pair trial functions the evaluator runs: resolve both
// phenotypes, simulate, and turn the simulator result into an outcome.
package trial

import (
	"context"
	"fmt"

	"mcceval/internal/cache"
	"mcceval/internal/codec"
	"mcceval/internal/metrics"
	"mcceval/internal/model"
	"mcceval/internal/simulator"
)

// resolve reads id from c, decoding on a miss. A nil cache always decodes.
func resolve[T any](c *cache.Cache[T], kind model.GenomeKind, id int64, decode func() (T, error)) (T, error) {
	if c == nil {
		return decode()
	}
	miss := false
	v, err := c.GetOrInsert(id, func() (T, error) {
		miss = true
		return decode()
	})
	if err == nil {
		metrics.ObserveCache(string(kind), !miss)
	}
	return v, err
}

// BodyBrainTrial runs a distance-bounded simulation of a body driven by its paired brain.
type BodyBrainTrial struct {
	Bodies     codec.BodyCodec
	Brains     codec.BrainCodec
	BodyCache  *cache.Cache[*model.VoxelBody]
	BrainCache *cache.Cache[*model.BodyController]
	Simulator  simulator.Simulator
	// MinDistance is the minimal criterion: the trial succeeds iff the body travels at least
	// this far.
	MinDistance float64
	Bound       float64
}

func (t *BodyBrainTrial) Run(ctx context.Context, unit *model.EvaluationUnit) (model.Outcome, error) {
	body, err := resolve(t.BodyCache, model.KindBody, unit.PrimaryID, func() (*model.VoxelBody, error) {
		return t.Bodies.Decode(unit.Primary, 0)
	})
	if err != nil {
		return model.Outcome{}, err
	}
	brain, err := resolve(t.BrainCache, model.KindBrain, unit.SecondaryID, func() (*model.BodyController, error) {
		return t.Brains.Decode(unit.Secondary, body.LengthX, body.LengthY, body.LengthZ)
	})
	if err != nil {
		return model.Outcome{}, err
	}
	if brain.LengthX != body.LengthX || brain.LengthY != body.LengthY || brain.LengthZ != body.LengthZ {
		return model.Outcome{}, model.NewDecodeError(unit.Secondary, "controller sized %dx%dx%d for body %dx%dx%d",
			brain.LengthX, brain.LengthY, brain.LengthZ, body.LengthX, body.LengthY, body.LengthZ)
	}
	unit.PrimaryPhenotype, unit.SecondaryPhenotype = body, brain

	return SimulateBody(ctx, t.Simulator, body, brain, t.Bound, t.MinDistance)
}

// SimulateBody runs one distance-bounded trial and applies the minimal distance criterion.
func SimulateBody(ctx context.Context, sim simulator.Simulator, body *model.VoxelBody, brain *model.BodyController, bound, minDistance float64) (model.Outcome, error) {
	if body.Count(model.MaterialNone) == len(body.Voxels) {
		return model.Outcome{}, fmt.Errorf("%w: body %d has no tissue", model.ErrSimulation, body.GenomeID)
	}
	res, err := sim.Run(ctx, simulator.Request{
		Mode:       simulator.ModeDistanceBounded,
		Bound:      bound,
		Phenotypes: []any{body, brain},
	})
	if err != nil {
		return model.Outcome{}, err
	}
	return outcome(res.Distance >= minDistance, res), nil
}

// MazeNavigatorTrial runs a time-bounded simulation of a navigator in a maze. Mazes and
// navigators recur across the cross-product, so both sides are cached.
type MazeNavigatorTrial struct {
	Mazes          codec.MazeCodec
	Navigators     codec.NavigatorCodec
	MazeCache      *cache.Cache[*model.Maze]
	NavigatorCache *cache.Cache[*model.Navigator]
	Simulator      simulator.Simulator
	TimeBound      float64
}

func (t *MazeNavigatorTrial) Run(ctx context.Context, unit *model.EvaluationUnit) (model.Outcome, error) {
	maze, err := resolve(t.MazeCache, model.KindMaze, unit.PrimaryID, func() (*model.Maze, error) {
		return t.Mazes.Decode(unit.Primary)
	})
	if err != nil {
		return model.Outcome{}, err
	}
	navigator, err := resolve(t.NavigatorCache, model.KindNavigator, unit.SecondaryID, func() (*model.Navigator, error) {
		return t.Navigators.Decode(unit.Secondary, maze.Width, maze.Height)
	})
	if err != nil {
		return model.Outcome{}, err
	}
	unit.PrimaryPhenotype, unit.SecondaryPhenotype = maze, navigator

	res, err := t.Simulator.Run(ctx, simulator.Request{
		Mode:       simulator.ModeTimeBounded,
		Bound:      t.TimeBound,
		Phenotypes: []any{maze, navigator},
	})
	if err != nil {
		return model.Outcome{}, err
	}
	return outcome(res.Success, res), nil
}

func outcome(success bool, res simulator.Result) model.Outcome {
	status := model.StatusFailed
	if success {
		status = model.StatusSucceeded
	}
	return model.Outcome{
		Status:     status,
		Success:    success,
		Steps:      res.Steps,
		Distance:   res.Distance,
		Trajectory: res.Trajectory,
	}
}
