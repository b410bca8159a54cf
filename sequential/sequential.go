// Package sequential provides sequential implementations of the
// functions provided by the parallel package. The reducer uses them for
// single-worker runs, and tests use them as a reference for the parallel
// results.
package sequential

import (
	"fmt"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/internal"
)

// Do receives zero or more thunks and executes them sequentially,
// returning the left-most error value that is different from nil. All
// thunks are executed even if an earlier one fails.
func Do(thunks ...func() error) (err error) {
	for _, thunk := range thunks {
		nerr := thunk()
		if err == nil {
			err = nerr
		}
	}
	return
}

// Range receives a range, a batch count n, and a range function f,
// divides the range into batches, and invokes the range function for
// each of these batches sequentially, covering the half-open interval
// from low to high, including low but excluding high.
//
// The batches are the same as those of parallel.Range for the same
// arguments. Range returns the left-most error value that is different
// from nil.
//
// Range panics if high < low, or if n < 0.
func Range(low, high, n int, f func(low, high int) error) error {
	var recur func(int, int, int) error
	recur = func(low, high, n int) error {
		switch {
		case n == 1:
			return f(low, high)
		case n > 1:
			batchSize := ((high - low - 1) / n) + 1
			half := n / 2
			mid := low + batchSize*half
			if mid >= high {
				return f(low, high)
			}
			err0 := recur(low, mid, half)
			err1 := recur(mid, high, n-half)
			if err0 != nil {
				return err0
			}
			return err1
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
	}
	return recur(low, high, internal.ComputeNofBatches(low, high, n))
}

// RangeReduce receives a range, a batch count n, a range reducer reduce,
// and a pair reducer pair, and behaves like parallel.RangeReduce, except
// that the batches are reduced one after the other in range order.
//
// Unlike Do and Range, RangeReduce stops at the first failing batch, so
// that later batches are never started.
//
// RangeReduce panics if high < low, or if n < 0.
func RangeReduce(
	low, high, n int,
	reduce func(low, high int) (trspo.Partial, error),
	pair func(x, y trspo.Partial) (trspo.Partial, error),
) (trspo.Partial, error) {
	var recur func(int, int, int) (trspo.Partial, error)
	recur = func(low, high, n int) (trspo.Partial, error) {
		switch {
		case n == 1:
			return reduce(low, high)
		case n > 1:
			batchSize := ((high - low - 1) / n) + 1
			half := n / 2
			mid := low + batchSize*half
			if mid >= high {
				return reduce(low, high)
			}
			left, err := recur(low, mid, half)
			if err != nil {
				return trspo.Partial{}, err
			}
			right, err := recur(mid, high, n-half)
			if err != nil {
				return trspo.Partial{}, err
			}
			return pair(left, right)
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
	}
	return recur(low, high, internal.ComputeNofBatches(low, high, n))
}
