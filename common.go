package trspo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zavalska7893/trspo/internal"
)

// Version is the trspo release reported by the command line tool.
const Version = "0.3.0"

var (
	// ErrInvalidInput is wrapped by all errors that reject reducer
	// parameters before any work is dispatched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOverflow reports that a value does not fit into an int64.
	ErrOverflow = errors.New("int64 overflow")
)

// A Func is a pure function from an item of the input domain to an
// integer result. It must not have side effects, and must return the
// same result for the same input regardless of the goroutine or process
// it runs in.
type Func func(n int) (int64, error)

// A WorkerError reports that a Func failed for a particular item. It
// aborts the whole reduction.
type WorkerError struct {
	Item int
	Err  error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker failed on item %d: %v", e.Item, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Mode selects how per-chunk results are aggregated.
type Mode int

const (
	// Materialized collects all per-item results into one ordered
	// sequence before reducing it.
	Materialized Mode = iota

	// Streaming folds every chunk into a running total as soon as it
	// arrives, so that at most a few chunks are held in memory.
	Streaming
)

func (m Mode) String() string {
	switch m {
	case Materialized:
		return "materialized"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "materialized" or "streaming", ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "materialized":
		return Materialized, nil
	case "streaming":
		return Streaming, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q (must be materialized or streaming)", ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// A Chunk is a contiguous sub-range of the input domain, covering the
// half-open interval from Low to High. Seq is the position of the chunk
// in encounter order.
type Chunk struct {
	Seq  int
	Low  int
	High int
}

// Len returns the number of items in the chunk.
func (c Chunk) Len() int {
	return c.High - c.Low
}

/*
Partition divides the domain [1, n] into consecutive chunks of
chunkSize items each. The last chunk holds the remaining items and may
be shorter. The chunks cover the domain exactly once, and their
sequence numbers run from 0 upwards.

Partition returns an error wrapping ErrInvalidInput if n or chunkSize is
not positive.
*/
func Partition(n, chunkSize int) ([]Chunk, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: domain size %d must be positive", ErrInvalidInput, n)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidInput, chunkSize)
	}
	chunks := make([]Chunk, 0, internal.ComputeNofChunks(n, chunkSize))
	for low, seq := 1, 0; low <= n; low, seq = low+chunkSize, seq+1 {
		high := low + chunkSize
		if high > n+1 {
			high = n + 1
		}
		chunks = append(chunks, Chunk{Seq: seq, Low: low, High: high})
	}
	return chunks, nil
}

// Validate checks the reducer parameters. Every error it returns wraps
// ErrInvalidInput.
func Validate(n, workers, chunkSize int) error {
	switch {
	case n <= 0:
		return fmt.Errorf("%w: domain size %d must be positive", ErrInvalidInput, n)
	case workers <= 0:
		return fmt.Errorf("%w: worker count %d must be positive", ErrInvalidInput, workers)
	case chunkSize <= 0:
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidInput, chunkSize)
	}
	return nil
}

// A Partial is the result of applying a Func to one chunk. In
// materialized mode, Values holds the per-item results in item order. In
// both modes, Sum and Count hold the folded values.
type Partial struct {
	Seq    int
	Values []int64
	Sum    int64
	Count  int
}

/*
Apply invokes f for every item of c in ascending order and returns the
partial result of the chunk.

If f returns an error or panics, Apply stops and returns a *WorkerError
for the failing item. A chunk sum that overflows int64 is reported as a
*WorkerError wrapping ErrOverflow.
*/
func Apply(f Func, c Chunk, mode Mode) (partial Partial, err error) {
	item := c.Low
	defer func() {
		if p := recover(); p != nil {
			err = &WorkerError{Item: item, Err: internal.WrapPanic(p)}
			partial = Partial{Seq: c.Seq}
		}
	}()
	partial.Seq = c.Seq
	if mode == Materialized {
		partial.Values = make([]int64, 0, c.Len())
	}
	for ; item < c.High; item++ {
		v, ferr := f(item)
		if ferr != nil {
			return Partial{Seq: c.Seq}, &WorkerError{Item: item, Err: ferr}
		}
		sum, ok := addInt64(partial.Sum, v)
		if !ok {
			return Partial{Seq: c.Seq}, &WorkerError{Item: item, Err: ErrOverflow}
		}
		partial.Sum = sum
		partial.Count++
		if mode == Materialized {
			partial.Values = append(partial.Values, v)
		}
	}
	return partial, nil
}

// Combine folds two partial results. Values are concatenated with x
// first, so combining partials in encounter order preserves item order.
func Combine(x, y Partial) (Partial, error) {
	sum, ok := addInt64(x.Sum, y.Sum)
	if !ok {
		return Partial{}, ErrOverflow
	}
	result := Partial{Seq: x.Seq, Sum: sum, Count: x.Count + y.Count}
	if x.Values != nil || y.Values != nil {
		result.Values = append(x.Values, y.Values...)
	}
	return result, nil
}

// Sum returns the sum of values. It fails with ErrOverflow if the sum
// does not fit into an int64.
func Sum(values []int64) (sum int64, err error) {
	for _, v := range values {
		var ok bool
		if sum, ok = addInt64(sum, v); !ok {
			return 0, ErrOverflow
		}
	}
	return sum, nil
}

func addInt64(x, y int64) (int64, bool) {
	if (y > 0 && x > math.MaxInt64-y) || (y < 0 && x < math.MinInt64-y) {
		return 0, false
	}
	return x + y, true
}

// A Result is the aggregate of a whole reduction.
type Result struct {
	Total   int64
	Count   int
	Elapsed time.Duration

	// Values holds all per-item results in item order. It is only set in
	// materialized mode.
	Values []int64
}

// Average returns Total / Count, or 0 for an empty result.
func (r Result) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Total) / float64(r.Count)
}

// ElapsedSeconds returns the elapsed wall-clock time in seconds.
func (r Result) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}
