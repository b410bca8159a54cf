// Package main provides the trspo CLI entrypoint.
//
// Usage:
//
//	trspo <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: worker failure (the per-item function failed)
//   - 2: invalid input, configuration, or usage
//   - 3: any other failure, for example a crashed worker process
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/zavalska7893/trspo"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// Exit codes.
const (
	exitWorkerFailure = 1
	exitInvalidInput  = 2
	exitOther         = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	app.ExitErrHandler = exitErrHandler
	if err := app.RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(exitOther)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "trspo",
		Usage:   "Chunked parallel reducer over goroutines or worker processes",
		Version: fmt.Sprintf("%s (commit: %s)", trspo.Version, commit),
		Commands: []*cli.Command{
			runCommand(),
			benchCommand(),
			demoCommand(),
			versionCommand(),
			workerCommand(),
		},
	}
}

// exitError maps err to a cli.ExitCoder with the exit code for its
// failure class.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return err
	}
	var werr *trspo.WorkerError
	switch {
	case errors.Is(err, trspo.ErrInvalidInput):
		return cli.Exit(err.Error(), exitInvalidInput)
	case errors.As(err, &werr):
		return cli.Exit(err.Error(), exitWorkerFailure)
	default:
		return cli.Exit(err.Error(), exitOther)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from
// cli.Exit(). Errors that are not cli.ExitCoder values come from flag
// parsing, so they are usage errors.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitInvalidInput)
}
