/*
Package reduce implements the chunked parallel reducer.

A reduction applies a pure function to every item of the domain [1, N],
split into chunks of at most ChunkSize items, on a fixed pool of
Workers execution contexts, and folds the per-item results into a
total, a count, and the elapsed wall-clock time.

In Materialized mode, all per-item results are gathered into one
sequence in item order before they are summed. In Streaming mode, each
chunk is folded into a running total as soon as it is available, so
that memory is bounded by the chunks in flight.

The first failure of any chunk aborts the reduction: chunks that have
not started yet are never started, and no partial result is returned.
*/
package reduce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/executor"
	"github.com/zavalska7893/trspo/log"
	"github.com/zavalska7893/trspo/parallel"
	"github.com/zavalska7893/trspo/pipeline"
	"github.com/zavalska7893/trspo/sequential"
)

// Schedule selects how chunks are assigned to workers.
type Schedule int

const (
	// Dynamic hands each chunk to whichever worker is free.
	Dynamic Schedule = iota

	// Static splits the chunk list into one contiguous batch per worker
	// up front.
	Static
)

func (s Schedule) String() string {
	switch s {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return fmt.Sprintf("Schedule(%d)", int(s))
	}
}

// ParseSchedule parses "dynamic" or "static", ignoring case.
func ParseSchedule(s string) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dynamic":
		return Dynamic, nil
	case "static":
		return Static, nil
	default:
		return 0, fmt.Errorf("%w: unknown schedule %q (must be dynamic or static)", trspo.ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Schedule) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Schedule) UnmarshalText(text []byte) error {
	schedule, err := ParseSchedule(string(text))
	if err != nil {
		return err
	}
	*s = schedule
	return nil
}

// Options are the parameters of a reduction.
type Options struct {
	DomainSize int
	Workers    int
	ChunkSize  int
	Mode       trspo.Mode
	Schedule   Schedule

	// Logger is optional.
	Logger *log.Logger
}

func (opts Options) validate() error {
	if err := trspo.Validate(opts.DomainSize, opts.Workers, opts.ChunkSize); err != nil {
		return err
	}
	if opts.Mode != trspo.Materialized && opts.Mode != trspo.Streaming {
		return fmt.Errorf("%w: invalid mode %v", trspo.ErrInvalidInput, opts.Mode)
	}
	if opts.Schedule != Dynamic && opts.Schedule != Static {
		return fmt.Errorf("%w: invalid schedule %v", trspo.ErrInvalidInput, opts.Schedule)
	}
	return nil
}

/*
Run reduces the domain [1, opts.DomainSize] with the given executor.

Run validates the options before dispatching any work, and returns an
error wrapping trspo.ErrInvalidInput for invalid options. The elapsed
time in the result is measured from the start of dispatch to the final
aggregation.

If a chunk fails, Run cancels the remaining work, waits for the chunks
in flight, and returns the failure, typically a *trspo.WorkerError. If
ctx is canceled, Run returns ctx.Err().

Run does not close the executor.
*/
func Run(ctx context.Context, exec executor.Executor, opts Options) (trspo.Result, error) {
	if err := opts.validate(); err != nil {
		return trspo.Result{}, err
	}

	fields := map[string]any{
		"domain_size": opts.DomainSize,
		"workers":     opts.Workers,
		"chunk_size":  opts.ChunkSize,
		"mode":        opts.Mode.String(),
		"schedule":    opts.Schedule.String(),
	}
	opts.Logger.Debug("reduction started", fields)

	start := time.Now()
	var partial trspo.Partial
	var err error
	switch opts.Schedule {
	case Dynamic:
		partial, err = runDynamic(ctx, exec, opts)
	case Static:
		partial, err = runStatic(ctx, exec, opts)
	}
	if err == nil && opts.Mode == trspo.Materialized {
		partial, err = sumValues(partial.Values)
	}
	elapsed := time.Since(start)

	if err != nil {
		fields["error"] = err.Error()
		opts.Logger.Error("reduction failed", fields)
		return trspo.Result{}, err
	}

	res := trspo.Result{
		Total:   partial.Sum,
		Count:   partial.Count,
		Elapsed: elapsed,
		Values:  partial.Values,
	}
	fields["total"] = res.Total
	fields["count"] = res.Count
	fields["elapsed_seconds"] = res.ElapsedSeconds()
	opts.Logger.Debug("reduction finished", fields)
	return res, nil
}

// Reduce reduces the domain [1, opts.DomainSize] with f on a pool of
// goroutines.
func Reduce(ctx context.Context, f trspo.Func, opts Options) (trspo.Result, error) {
	exec := executor.NewGoroutine(f)
	defer exec.Close()
	return Run(ctx, exec, opts)
}

// runDynamic feeds chunks through a pipeline with a fixed pool of
// workers. Materialized partials are collected in encounter order,
// streaming partials are folded in completion order.
func runDynamic(ctx context.Context, exec executor.Executor, opts Options) (trspo.Partial, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p pipeline.Pipeline
	p.Source(pipeline.NewRangeSource(1, opts.DomainSize+1))
	p.ChunkSize(opts.ChunkSize)

	submit := pipeline.Receive(func(_ int, data interface{}) interface{} {
		partial, err := exec.Submit(p.Context(), data.(trspo.Chunk), opts.Mode)
		if err != nil {
			p.Err(err)
			return nil
		}
		return partial
	})

	var result trspo.Partial
	switch opts.Mode {
	case trspo.Materialized:
		p.Add(pipeline.LimitedPar(opts.Workers, submit), pipeline.Ord(pipeline.Collect(&result.Values)))
	case trspo.Streaming:
		p.Add(pipeline.LimitedPar(opts.Workers, submit), pipeline.Seq(pipeline.Fold(&result)))
	}
	p.RunWithContext(ctx, cancel)

	if err := p.Err(nil); err != nil {
		return trspo.Partial{}, err
	}
	if opts.Mode == trspo.Materialized && result.Values == nil {
		result.Values = []int64{}
	}
	return result, ctx.Err()
}

// runStatic splits the chunk list into opts.Workers contiguous batches
// that are reduced by fork/join. Within a batch, chunks run one after
// the other.
func runStatic(ctx context.Context, exec executor.Executor, opts Options) (trspo.Partial, error) {
	chunks, err := trspo.Partition(opts.DomainSize, opts.ChunkSize)
	if err != nil {
		return trspo.Partial{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	var failure error
	fail := func(err error) error {
		once.Do(func() {
			failure = err
			cancel()
		})
		return err
	}

	reduceBatch := func(low, high int) (trspo.Partial, error) {
		acc := trspo.Partial{Seq: chunks[low].Seq}
		if opts.Mode == trspo.Materialized {
			acc.Values = make([]int64, 0, chunks[high-1].High-chunks[low].Low)
		}
		for _, chunk := range chunks[low:high] {
			if err := ctx.Err(); err != nil {
				return trspo.Partial{}, err
			}
			partial, err := exec.Submit(ctx, chunk, opts.Mode)
			if err != nil {
				return trspo.Partial{}, fail(err)
			}
			if acc, err = trspo.Combine(acc, partial); err != nil {
				return trspo.Partial{}, fail(err)
			}
		}
		return acc, nil
	}
	pair := func(x, y trspo.Partial) (trspo.Partial, error) {
		result, err := trspo.Combine(x, y)
		if err != nil {
			return trspo.Partial{}, fail(err)
		}
		return result, nil
	}

	var result trspo.Partial
	if opts.Workers == 1 {
		result, err = sequential.RangeReduce(0, len(chunks), 1, reduceBatch, pair)
	} else {
		result, err = parallel.RangeReduce(0, len(chunks), opts.Workers, reduceBatch, pair)
	}
	if err != nil {
		if failure != nil {
			return trspo.Partial{}, failure
		}
		return trspo.Partial{}, err
	}
	return result, nil
}

// sumValues reduces a materialized sequence of per-item results.
func sumValues(values []int64) (trspo.Partial, error) {
	sum, err := trspo.Sum(values)
	if err != nil {
		return trspo.Partial{}, err
	}
	return trspo.Partial{Values: values, Sum: sum, Count: len(values)}, nil
}
