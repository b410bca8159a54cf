package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/config"
	"github.com/zavalska7893/trspo/log"
	"github.com/zavalska7893/trspo/reduce"
	"github.com/zavalska7893/trspo/report"
	"github.com/zavalska7893/trspo/workload"
)

func benchCommand() *cli.Command {
	flags := append(reducerFlags(), outputFlags()...)
	flags = append(flags,
		&cli.IntSliceFlag{
			Name:  "bench-workers",
			Usage: "Worker counts to sweep",
		},
		&cli.StringSliceFlag{
			Name:  "bench-strategies",
			Usage: "Strategies to sweep",
		},
		&cli.StringSliceFlag{
			Name:  "bench-modes",
			Usage: "Modes to sweep",
		},
		&cli.IntFlag{
			Name:  "repeat",
			Usage: "Runs per configuration",
		},
	)
	return &cli.Command{
		Name:   "bench",
		Usage:  "Time the reducer over worker counts, strategies, and modes",
		Flags:  flags,
		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	if c.IsSet("bench-workers") {
		cfg.Bench.Workers = c.IntSlice("bench-workers")
	}
	if c.IsSet("bench-strategies") {
		cfg.Bench.Strategies = c.StringSlice("bench-strategies")
	}
	if c.IsSet("bench-modes") {
		cfg.Bench.Modes = c.StringSlice("bench-modes")
	}
	if c.IsSet("repeat") {
		cfg.Bench.Repeat = c.Int("repeat")
	}
	if err := cfg.Validate(); err != nil {
		return exitError(err)
	}
	r, err := newRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	runID := uuid.NewString()
	logger := newLogger(c, cfg, runID)
	defer func() { _ = logger.Sync() }()

	w, err := workload.Lookup(cfg.Workload, cfg.Seed)
	if err != nil {
		return exitError(err)
	}

	var samples []report.BenchSample
	for _, strategy := range cfg.Bench.Strategies {
		for _, mode := range cfg.Bench.Modes {
			for _, workers := range cfg.Bench.Workers {
				run := *cfg
				run.Strategy, run.Mode, run.Workers = strategy, mode, workers
				sample, err := benchOne(c, &run, logger.With(map[string]any{
					"strategy": strategy,
					"mode":     mode,
					"workers":  workers,
				}))
				if err != nil {
					return exitError(err)
				}
				if w.Estimate != nil {
					estimate := w.Estimate(trspo.Result{Total: sample.Total, Count: sample.Count})
					sample.Estimate = &estimate
				}
				samples = append(samples, sample)
			}
		}
	}

	return exitError(r.Render(report.Summarize(samples)))
}

// benchOne runs one configuration cfg.Bench.Repeat times on the same
// executor. Worker process startup is not part of the timings.
func benchOne(c *cli.Context, cfg *config.Config, logger *log.Logger) (report.BenchSample, error) {
	sample := report.BenchSample{Strategy: cfg.Strategy, Mode: cfg.Mode, Workers: cfg.Workers}
	opts, err := cfg.Options(logger)
	if err != nil {
		return sample, err
	}
	exec, err := newExecutor(c, cfg, cfg.Workers, logger)
	if err != nil {
		return sample, err
	}

	for i := 0; i < cfg.Bench.Repeat; i++ {
		res, err := reduce.Run(c.Context, exec, opts)
		if err != nil {
			_ = exec.Close()
			return sample, err
		}
		if i > 0 && (res.Total != sample.Total || res.Count != sample.Count) {
			_ = exec.Close()
			return sample, fmt.Errorf("run %d of %s/%s/%d yields %d/%d, earlier runs %d/%d",
				i, cfg.Strategy, cfg.Mode, cfg.Workers, res.Total, res.Count, sample.Total, sample.Count)
		}
		sample.Total, sample.Count = res.Total, res.Count
		sample.Elapsed = append(sample.Elapsed, res.ElapsedSeconds())
		logger.Debug("bench run finished", map[string]any{"run": i, "elapsed_seconds": res.ElapsedSeconds()})
	}
	return sample, exec.Close()
}
