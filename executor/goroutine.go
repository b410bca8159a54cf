package executor

import (
	"context"

	"github.com/zavalska7893/trspo"
)

// GoroutineExecutor is an Executor that applies its function on the goroutine
// that calls Submit. The pool of workers is formed by the callers.
type GoroutineExecutor struct {
	f trspo.Func
}

// NewGoroutine returns an executor that applies f in-process.
func NewGoroutine(f trspo.Func) *GoroutineExecutor {
	return &GoroutineExecutor{f: f}
}

// Submit implements the Submit method of the Executor interface. A chunk
// is not started if ctx is already done.
func (e *GoroutineExecutor) Submit(ctx context.Context, chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error) {
	if err := ctx.Err(); err != nil {
		return trspo.Partial{}, err
	}
	return trspo.Apply(e.f, chunk, mode)
}

// Close implements the Close method of the Executor interface. It has
// nothing to release.
func (e *GoroutineExecutor) Close() error {
	return nil
}
