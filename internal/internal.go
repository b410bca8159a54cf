package internal

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// ComputeNofBatches divides the size of the range (high - low) by n. If n is 0,
// a default is used that takes runtime.GOMAXPROCS(0) into account.
func ComputeNofBatches(low, high, n int) (batches int) {
	switch size := high - low; {
	case size > 0:
		switch {
		case n == 0:
			batches = 2 * runtime.GOMAXPROCS(0)
		case n > 0:
			batches = n
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
		if batches > size {
			batches = size
		}
	case size == 0:
		batches = 1
	default:
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	return
}

// ComputeNofChunks returns the number of chunks of chunkSize items needed
// to cover n items, which is ceiling(n / chunkSize).
func ComputeNofChunks(n, chunkSize int) int {
	if n <= 0 {
		return 0
	}
	if chunkSize <= 0 {
		panic(fmt.Sprintf("invalid chunk size: %v", chunkSize))
	}
	return ((n - 1) / chunkSize) + 1
}

// panicError is a recovered panic together with the stack trace of the
// goroutine that panicked.
type panicError struct{ msg string }

func (e panicError) Error() string { return e.msg }

type runtimeError struct{ panicError }

func (runtimeError) RuntimeError() {}

// WrapPanic turns a recovered panic into an error that carries the stack
// trace of the panicking goroutine. A value that is already wrapped is
// returned unchanged, so re-panicking across nested joins keeps the
// innermost trace.
func WrapPanic(p interface{}) error {
	switch p := p.(type) {
	case nil:
		return nil
	case panicError:
		return p
	case runtimeError:
		return p
	}
	r := panicError{fmt.Sprintf("panic: %v\n%s", p, debug.Stack())}
	if _, isRuntimeError := p.(runtime.Error); isRuntimeError {
		return runtimeError{r}
	}
	return r
}
