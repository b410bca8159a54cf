package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/parallel"
	"github.com/zavalska7893/trspo/reduce"
	"github.com/zavalska7893/trspo/workload"
)

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run a sum task and a factorials task concurrently",
		Action: func(c *cli.Context) error {
			return exitError(demo(c.Context, c.App.Writer))
		},
	}
}

// demo runs two independent reductions in parallel. Each task writes
// into its own buffer, and the buffers are printed after the join, so
// the output does not depend on scheduling.
func demo(ctx context.Context, out io.Writer) error {
	var sumOut, factOut bytes.Buffer
	err := parallel.Do(
		func() error {
			res, err := reduce.Reduce(ctx, workload.Identity, reduce.Options{
				DomainSize: 9, Workers: 1, ChunkSize: 9, Mode: trspo.Streaming,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(&sumOut, "[sum] Final sum of 0..9: %d\n", res.Total)
			return nil
		},
		func() error {
			res, err := reduce.Reduce(ctx, workload.Factorial, reduce.Options{
				DomainSize: 10, Workers: 2, ChunkSize: 5, Mode: trspo.Materialized,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(&factOut, "[factorials] Factorials from 1 to 10:")
			for i, v := range res.Values {
				fmt.Fprintf(&factOut, "%d! = %d\n", i+1, v)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}
	for _, buf := range []*bytes.Buffer{&sumOut, &factOut} {
		if _, err := buf.WriteTo(out); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, "Both tasks have finished.")
	return err
}
