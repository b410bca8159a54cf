// Package parallel provides fork/join functions for expressing parallel
// algorithms over thunks and integer ranges.
//
// Work is split by recursive halving: each split runs one half in a new
// goroutine and the other half in the current one, and then joins.
package parallel

import (
	"fmt"
	"sync"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/internal"
)

// Do receives zero or more thunks and executes them in parallel.
//
// Each thunk is invoked in its own goroutine, and Do returns only
// when all thunks have terminated, returning the left-most error
// value that is different from nil.
//
// If one or more thunks panic, the corresponding goroutines recover
// the panics, and Do eventually panics with the left-most recovered
// panic. A panic recovered in a forked goroutine is re-raised as an
// error that carries that goroutine's stack trace.
func Do(thunks ...func() error) (err error) {
	switch len(thunks) {
	case 0:
		return nil
	case 1:
		return thunks[0]()
	}
	var err0, err1 error
	var p interface{}
	var wg sync.WaitGroup
	wg.Add(1)
	if len(thunks) == 2 {
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			err1 = thunks[1]()
		}()
		err0 = thunks[0]()
	} else {
		half := len(thunks) / 2
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			err1 = Do(thunks[half:]...)
		}()
		err0 = Do(thunks[:half]...)
	}
	wg.Wait()
	if p != nil {
		panic(p)
	}
	if err0 != nil {
		return err0
	}
	return err1
}

// Range receives a range, a batch count n, and a range function f,
// divides the range into batches, and invokes the range function for
// each of these batches in parallel, covering the half-open interval
// from low to high, including low but excluding high.
//
// The batches are determined by dividing up the size of the range
// (high - low) by n. If n is 0, a reasonable default is used that takes
// runtime.GOMAXPROCS(0) into account.
//
// Range returns only when all range functions have terminated,
// returning the left-most error value that is different from nil.
//
// Range panics if high < low, or if n < 0.
func Range(low, high, n int, f func(low, high int) error) error {
	var recur func(int, int, int) error
	recur = func(low, high, n int) error {
		switch {
		case n == 1:
			return f(low, high)
		case n > 1:
			mid := split(low, high, n)
			if mid >= high {
				return f(low, high)
			}
			var err1 error
			var p interface{}
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer func() {
					p = internal.WrapPanic(recover())
					wg.Done()
				}()
				err1 = recur(mid, high, n-n/2)
			}()
			err0 := recur(low, mid, n/2)
			wg.Wait()
			if p != nil {
				panic(p)
			}
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

/*
RangeReduce receives a range, a batch count n, a range reducer reduce,
and a pair reducer pair, divides the range into batches, and invokes
the range reducer for each of these batches in parallel, covering the
half-open interval from low to high. The partial results of the range
reducer invocations are then combined by repeated invocations of the
pair reducer, always with the left batch as the first argument, so that
an order-preserving pair reducer yields results in range order.

The batches are determined by dividing up the size of the range
(high - low) by n. If n is 0, a reasonable default is used that takes
runtime.GOMAXPROCS(0) into account. At most n range reducers run at
the same time.

RangeReduce returns only when all range reducers and pair reducers
have terminated, returning the left-most error value that is different
from nil. Pair reducers are not invoked on failed halves.

RangeReduce panics if high < low, or if n < 0. If one or more reducer
invocations panic, the corresponding goroutines recover the panics,
and RangeReduce eventually panics with the left-most recovered panic,
wrapped with the stack trace of the goroutine that panicked.
*/
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
			mid := split(low, high, n)
			if mid >= high {
				return reduce(low, high)
			}
			var right trspo.Partial
			var err1 error
			var p interface{}
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer func() {
					p = internal.WrapPanic(recover())
					wg.Done()
				}()
				right, err1 = recur(mid, high, n-n/2)
			}()
			left, err0 := recur(low, mid, n/2)
			wg.Wait()
			if p != nil {
				panic(p)
			}
			if err0 != nil {
				return trspo.Partial{}, err0
			}
			if err1 != nil {
				return trspo.Partial{}, err1
			}
			return pair(left, right)
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
	}
	return recur(low, high, internal.ComputeNofBatches(low, high, n))
}

// split returns the start of the right half when [low, high) is divided
// into n batches of equal size, with the left half receiving n/2 of them.
func split(low, high, n int) int {
	batchSize := ((high - low - 1) / n) + 1
	return low + batchSize*(n/2)
}
