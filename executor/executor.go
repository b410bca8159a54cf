// Package executor provides the execution strategies that run chunks of
// a reduction: a pool of goroutines sharing the caller's address space,
// or a pool of long-lived worker processes that exchange length-prefixed
// msgpack frames over their standard input and output.
//
// The strategy never changes the result of a reduction, only where the
// per-item function runs.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/zavalska7893/trspo"
)

// An Executor applies the per-item function to one chunk at a time.
//
// Submit may be called concurrently from as many goroutines as the
// executor has workers. A failure of the per-item function is returned as
// a *trspo.WorkerError; any other error means the executor itself is
// broken.
//
// Close releases the resources of the executor. It must only be called
// after all Submit calls have returned.
type Executor interface {
	Submit(ctx context.Context, chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error)
	Close() error
}

// Strategy selects an executor implementation.
type Strategy int

const (
	// Goroutine runs chunks on goroutines of the calling process.
	Goroutine Strategy = iota

	// Process runs chunks in separate worker processes.
	Process
)

func (s Strategy) String() string {
	switch s {
	case Goroutine:
		return "goroutine"
	case Process:
		return "process"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "goroutine" or "process", ignoring case. "thread"
// is accepted as an alias for "goroutine".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "goroutine", "thread":
		return Goroutine, nil
	case "process":
		return Process, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q (must be goroutine or process)", trspo.ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	strategy, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = strategy
	return nil
}
