package main

import (
	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo/executor"
	"github.com/zavalska7893/trspo/workload"
)

// workerCommand is the child side of the process strategy. It serves
// chunk requests on stdin and answers on stdout until stdin is closed.
func workerCommand() *cli.Command {
	return &cli.Command{
		Name:   "worker",
		Usage:  "Serve chunks of a workload over stdin/stdout",
		Hidden: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workload", Required: true},
			&cli.Uint64Flag{Name: "seed"},
		},
		Action: func(c *cli.Context) error {
			w, err := workload.Lookup(c.String("workload"), c.Uint64("seed"))
			if err != nil {
				return exitError(err)
			}
			return exitError(executor.Serve(c.Context, c.App.Reader, c.App.Writer, w.Func))
		},
	}
}
