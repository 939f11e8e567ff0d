package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"mcceval/internal/config"
	"mcceval/internal/metrics"
	"mcceval/internal/pipeline"
	"mcceval/internal/report"
	"mcceval/internal/simulator"
	"mcceval/internal/storage"
)

// env is everything a command needs once the config has been loaded.
type env struct {
	opts   *globalOptions
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
	csv    *report.CSVSink
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	text := cfg.Format == "text"
	if cfg.Format == "" || cfg.Format == "auto" {
		if f, ok := w.(*os.File); ok {
			text = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	if text {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func (o *globalOptions) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	e := &env{opts: o, cfg: cfg, logger: newLogger(o.stderr, cfg.Log)}

	store, err := storage.NewStore(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	e.store = store

	if cfg.Output.Dir != "" {
		if e.csv, err = report.NewCSVSink(cfg.Output.Dir); err != nil {
			_ = e.close()
			return nil, err
		}
	}

	if o.genomesPath != "" {
		if _, err := e.importGenomes(ctx, o.genomesPath); err != nil {
			_ = e.close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) importGenomes(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := pipeline.ImportGenomes(ctx, e.store, e.cfg.Experiment.ID, f, e.cfg.Evaluation.ChunkSize)
	if err != nil {
		return n, fmt.Errorf("import %s: %w", path, err)
	}
	e.logger.Info("imported genomes", "path", path, "genomes", n)
	return n, nil
}

func (e *env) sink() storage.ResultSink {
	if e.csv == nil {
		return e.store
	}
	return report.Tee(e.store, e.csv)
}

func (e *env) pipeline(needSimulator bool) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		Config:  e.cfg,
		Repo:    e.store,
		Sink:    e.sink(),
		Results: e.store,
		Logger:  e.logger,
		Strata:  pipeline.BatchStrata(e.store, e.cfg.Experiment.ID),
	}
	if needSimulator {
		if err := e.cfg.RequireSimulator(); err != nil {
			return nil, err
		}
		s := e.cfg.Simulator
		process := simulator.NewProcess(s.Executable, s.Timeout)
		process.Args = s.Args
		process.WorkDir = s.WorkDir
		process.KeepArtifacts = s.KeepArtifacts
		p.Simulator = process
	}
	return p, nil
}

// close releases the store and writes the metrics dump when one was requested.
func (e *env) close() error {
	var errs []error
	if e.opts.metricsFile != "" {
		if err := metrics.DumpFile(e.opts.metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if e.store != nil {
		errs = append(errs, storage.CloseIfSupported(e.store))
	}
	return errors.Join(errs...)
}
