package simulator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mcceval/internal/model"
)

const (
	configFile   = "config.yaml"
	artifactFile = "result.yaml"
)

// Process runs each trial as one invocation of an external simulator executable.
type Process struct {
	Executable string
	Args       []string
	// WorkDir is the parent of the per-trial temp directories. Empty uses os.TempDir.
	WorkDir string
	// Timeout bounds a single invocation. Zero disables it.
	Timeout       time.Duration
	Runner        Runner
	KeepArtifacts bool
}

func NewProcess(executable string, timeout time.Duration) *Process {
	return &Process{Executable: executable, Timeout: timeout, Runner: ExecRunner{}}
}

func (p *Process) Run(ctx context.Context, req Request) (Result, error) {
	if p.Executable == "" {
		return Result{}, fmt.Errorf("%w: simulator executable not set", model.ErrConfiguration)
	}
	switch req.Mode {
	case ModeTimeBounded, ModeDistanceBounded:
	default:
		return Result{}, fmt.Errorf("%w: unknown simulation mode %q", model.ErrConfiguration, req.Mode)
	}

	dir, err := os.MkdirTemp(p.WorkDir, "trial-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: create trial dir: %v", model.ErrSimulation, err)
	}
	if !p.KeepArtifacts {
		defer os.RemoveAll(dir)
	}

	configPath := filepath.Join(dir, configFile)
	if err := WriteConfig(configPath, req); err != nil {
		return Result{}, fmt.Errorf("%w: write config: %v", model.ErrSimulation, err)
	}
	artifactPath := filepath.Join(dir, artifactFile)

	args := append([]string(nil), p.Args...)
	args = append(args,
		"--config", configPath,
		"--mode", string(req.Mode),
		"--bound", strconv.FormatFloat(req.Bound, 'g', -1, 64),
		"--output", artifactPath,
	)

	runCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	if _, err := runner.Run(runCtx, p.Executable, args...); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w after %s", model.ErrTimeout, p.Timeout)
		}
		return Result{}, fmt.Errorf("%w: %s: %v", model.ErrSimulation, filepath.Base(p.Executable), err)
	}
	return ReadArtifact(artifactPath)
}
