package main

import (
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo/reduce"
	"github.com/zavalska7893/trspo/report"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Reduce a workload over the domain [1, N] and report the result",
		Flags:  append(reducerFlags(), outputFlags()...),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	r, err := newRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	runID := uuid.NewString()
	logger := newLogger(c, cfg, runID)
	defer func() { _ = logger.Sync() }()

	opts, err := cfg.Options(logger)
	if err != nil {
		return exitError(err)
	}
	exec, err := newExecutor(c, cfg, cfg.Workers, logger)
	if err != nil {
		return exitError(err)
	}

	res, err := reduce.Run(c.Context, exec, opts)
	closeErr := exec.Close()
	if err != nil {
		return exitError(err)
	}
	if closeErr != nil {
		return exitError(closeErr)
	}

	logger.Info("run finished", map[string]any{
		"total":           res.Total,
		"count":           res.Count,
		"elapsed_seconds": res.ElapsedSeconds(),
	})
	return exitError(report.NewReporter(r, runID).Report(*cfg, res))
}
