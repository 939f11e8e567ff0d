// Package simulator runs trials in the external physics simulator.
package simulator

import (
	"context"

	"mcceval/internal/model"
)

type Mode string

const (
	ModeTimeBounded     Mode = "time_bounded"
	ModeDistanceBounded Mode = "distance_bounded"
)

// Request describes one trial: the phenotypes to load, and the bound on simulated time
// (steps) or distance depending on Mode.
type Request struct {
	Mode       Mode
	Bound      float64
	Phenotypes []any
}

type Result struct {
	Success    bool          `yaml:"success"`
	Steps      int           `yaml:"steps"`
	Distance   float64       `yaml:"distance"`
	Trajectory []model.Point `yaml:"trajectory,omitempty"`
}

// Simulator executes a single trial synchronously. Failures wrap model.ErrSimulation or
// model.ErrTimeout.
type Simulator interface {
	Run(ctx context.Context, req Request) (Result, error)
}

type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Run(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
