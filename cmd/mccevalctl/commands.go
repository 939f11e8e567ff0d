package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mcceval/internal/model"
	"mcceval/internal/pipeline"
	"mcceval/internal/report"
)

type stage func(p *pipeline.Pipeline, ctx context.Context, run int) (pipeline.RunReport, error)

func newEvaluateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run every body/brain pair of each configured run through the simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, "evaluate", true, (*pipeline.Pipeline).EvaluateBodies)
		},
	}
}

func newNavigateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate",
		Short: "Run every maze against every navigator of each configured run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, "navigate", true, (*pipeline.Pipeline).NavigateMazes)
		},
	}
}

func newUpscaleCmd(opts *globalOptions) *cobra.Command {
	var evaluateFirst bool
	cmd := &cobra.Command{
		Use:   "upscale",
		Short: "Find the largest body size each viable body/brain pair still walks at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !evaluateFirst {
				return opts.runStage(cmd, "upscale", true, (*pipeline.Pipeline).Upscale)
			}
			return opts.runStage(cmd, "upscale", true, func(p *pipeline.Pipeline, ctx context.Context, run int) (pipeline.RunReport, error) {
				if _, err := p.EvaluateBodies(ctx, run); err != nil {
					return pipeline.RunReport{}, err
				}
				return p.Upscale(ctx, run)
			})
		},
	}
	cmd.Flags().BoolVar(&evaluateFirst, "evaluate", false, "evaluate the run before upscaling it")
	return cmd
}

func newDiversityCmd(opts *globalOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "diversity",
		Short: "Measure how far each body or maze sits from the run's reference population",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch model.GenomeKind(kind) {
			case model.KindBody:
				return opts.runStage(cmd, "body_diversity", false, (*pipeline.Pipeline).BodyDiversity)
			case model.KindMaze:
				return opts.runStage(cmd, "maze_diversity", false, (*pipeline.Pipeline).MazeDiversity)
			default:
				return fmt.Errorf("%w: diversity kind must be body or maze, got %q", model.ErrConfiguration, kind)
			}
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.KindBody), "genome kind to measure: body|maze")
	return cmd
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a genome JSON lines file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, e.close())
			}()
			n, err := e.importGenomes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "imported %s genomes into %s store\n", humanize.Comma(int64(n)), e.cfg.Store.Kind)
			return nil
		},
	}
}

// runStage runs fn once per configured run, prints a summary line per run and, when an output
// directory is configured, records the effective config and a run index entry.
func (o *globalOptions) runStage(cmd *cobra.Command, name string, needSimulator bool, fn stage) (err error) {
	ctx := cmd.Context()
	e, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.close())
	}()
	p, err := e.pipeline(needSimulator)
	if err != nil {
		return err
	}

	for _, run := range e.cfg.Experiment.Runs {
		rep, err := fn(p, ctx, run)
		if err != nil {
			return fmt.Errorf("%s run %d: %w", name, run, err)
		}
		fmt.Fprintln(o.stdout, summaryLine(name, rep))
		if e.csv == nil {
			continue
		}
		runDir := e.csv.RunDir(rep.ExperimentID, run)
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			return err
		}
		if err := e.cfg.WriteYAML(filepath.Join(runDir, "config.yaml")); err != nil {
			return fmt.Errorf("write run config: %w", err)
		}
		if err := report.AppendRunIndex(e.cfg.Output.Dir, runSummary(name, rep)); err != nil {
			return fmt.Errorf("update run index: %w", err)
		}
	}
	return nil
}

func summaryLine(name string, rep pipeline.RunReport) string {
	s := rep.Summary
	return fmt.Sprintf("%s %s run %d: %s units in %s chunks, %s succeeded, %s failed, %s decode errors, %s simulation errors, %s timeouts, %s records (%s)",
		name, rep.ExperimentID, rep.Run,
		humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(rep.Chunks)),
		humanize.Comma(int64(s.Succeeded)),
		humanize.Comma(int64(s.Failed)),
		humanize.Comma(int64(s.DecodeErrors)),
		humanize.Comma(int64(s.SimulationErrors)),
		humanize.Comma(int64(s.Timeouts)),
		humanize.Comma(int64(rep.Records)),
		rep.Elapsed.Round(time.Millisecond))
}

func runSummary(name string, rep pipeline.RunReport) report.RunSummary {
	s := rep.Summary
	return report.RunSummary{
		ExperimentID:     rep.ExperimentID,
		Run:              rep.Run,
		Command:          name,
		Chunks:           rep.Chunks,
		Units:            s.Total,
		Succeeded:        s.Succeeded,
		Failed:           s.Failed,
		DecodeErrors:     s.DecodeErrors,
		SimulationErrors: s.SimulationErrors,
		Timeouts:         s.Timeouts,
		Records:          rep.Records,
		DurationSeconds:  rep.Elapsed.Seconds(),
		CreatedAtUTC:     time.Now().UTC().Format(time.RFC3339Nano),
	}
}
