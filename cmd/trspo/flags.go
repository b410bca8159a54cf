package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo/config"
	"github.com/zavalska7893/trspo/executor"
	"github.com/zavalska7893/trspo/log"
	"github.com/zavalska7893/trspo/report"
	"github.com/zavalska7893/trspo/workload"
)

// Output flags shared by all commands that render results.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json, table, yaml",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

// reducerFlags override the values of the configuration file.
func reducerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
		},
		&cli.IntFlag{
			Name:    "domain-size",
			Aliases: []string{"n"},
			Usage:   "Number of items in the domain [1, N]",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of workers",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum number of items per chunk",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Aggregation mode: materialized, streaming",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Execution strategy: goroutine, process",
		},
		&cli.StringFlag{
			Name:  "schedule",
			Usage: "Chunk schedule: dynamic, static",
		},
		&cli.StringFlag{
			Name:  "workload",
			Usage: "Per-item function: collatz, factorial, identity, pi",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "Seed of the pi workload",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// loadConfig reads the configuration file, if any, applies the flags
// that were set, and validates the result.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.Path("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if c.IsSet("domain-size") {
		cfg.DomainSize = c.Int("domain-size")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("mode") {
		cfg.Mode = c.String("mode")
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("schedule") {
		cfg.Schedule = c.String("schedule")
	}
	if c.IsSet("workload") {
		cfg.Workload = c.String("workload")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newRenderer detects a TTY on os.Stdout. Any other writer gets json
// unless --format says otherwise.
func newRenderer(c *cli.Context) (*report.Renderer, error) {
	if c.App.Writer == os.Stdout {
		return report.NewRenderer(c.String("format"), c.Bool("no-color"))
	}
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = report.FormatJSON
	}
	return report.NewRendererWithWriter(format, c.Bool("no-color"), c.App.Writer), nil
}

func newLogger(c *cli.Context, cfg *config.Config, runID string) *log.Logger {
	// Validate has checked the level.
	level, _ := log.ParseLevel(cfg.Log.Level)
	var w io.Writer = c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	return log.NewLoggerWithWriter(log.RunContext{
		RunID:    runID,
		Workload: cfg.Workload,
		Strategy: cfg.Strategy,
	}, level, w)
}

// newExecutor starts the executor for cfg.Strategy with the given
// number of workers.
func newExecutor(c *cli.Context, cfg *config.Config, workers int, logger *log.Logger) (executor.Executor, error) {
	strategy, err := executor.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	switch strategy {
	case executor.Process:
		return executor.NewProcess(c.Context, executor.ProcessConfig{
			Workers:  workers,
			Workload: cfg.Workload,
			Seed:     cfg.Seed,
			Logger:   logger,
		})
	default:
		w, err := workload.Lookup(cfg.Workload, cfg.Seed)
		if err != nil {
			return nil, err
		}
		return executor.NewGoroutine(w.Func), nil
	}
}
