package pipeline

import (
	"fmt"
	"sync"

	"github.com/zavalska7893/trspo"
)

/*
NewNode creates a node of the given kind, with the given filters.
Parallel nodes created by NewNode use runtime.GOMAXPROCS(0) workers.

It is often more convenient to use one of the Ord, Seq, or LimitedPar
functions.
*/
func NewNode(kind NodeKind, filters ...Filter) Node {
	switch kind {
	case Ordered, Sequential:
		return &seqnode{kind: kind, filters: filters}
	case Parallel:
		return LimitedPar(0, filters...)
	default:
		panic("Invalid NodeKind in pipeline.NewNode.")
	}
}

// Receive creates a Filter that returns the given receiver and a nil
// finalizer.
func Receive(receive Receiver) Filter {
	return func(_ *Pipeline, _ NodeKind, _ *int) (receiver Receiver, _ Finalizer) {
		receiver = receive
		return
	}
}

// Finalize creates a filter that returns a nil receiver and the given
// finalizer.
func Finalize(finalize Finalizer) Filter {
	return func(_ *Pipeline, _ NodeKind, _ *int) (_ Receiver, finalizer Finalizer) {
		finalizer = finalize
		return
	}
}

// ReceiveAndFinalize creates a filter that returns the given receiver
// and finalizer.
func ReceiveAndFinalize(receive Receiver, finalize Finalizer) Filter {
	return func(_ *Pipeline, _ NodeKind, _ *int) (receiver Receiver, finalizer Finalizer) {
		receiver = receive
		finalizer = finalize
		return
	}
}

func asPartial(pipeline *Pipeline, data interface{}) (trspo.Partial, bool) {
	switch d := data.(type) {
	case nil:
		return trspo.Partial{}, false
	case trspo.Partial:
		return d, true
	default:
		pipeline.Err(fmt.Errorf("pipeline: unexpected batch of type %T, want trspo.Partial", data))
		return trspo.Partial{}, false
	}
}

/*
Fold creates a filter that folds every trspo.Partial batch it sees into
result, using trspo.Combine. Per-item values are dropped, so the filter
only ever holds the running sum and count. Nil batches are skipped.

A failing combination, for example an int64 overflow, is reported
through the pipeline's Err method.
*/
func Fold(result *trspo.Partial) Filter {
	*result = trspo.Partial{}
	return func(pipeline *Pipeline, kind NodeKind, _ *int) (receiver Receiver, _ Finalizer) {
		var m sync.Mutex
		receiver = func(_ int, data interface{}) interface{} {
			partial, ok := asPartial(pipeline, data)
			if !ok {
				return data
			}
			partial.Values = nil
			if kind == Parallel {
				m.Lock()
				defer m.Unlock()
			}
			folded, err := trspo.Combine(*result, partial)
			if err != nil {
				pipeline.Err(err)
				return data
			}
			*result = folded
			return data
		}
		return
	}
}

/*
Collect creates a filter that appends the per-item values of every
trspo.Partial batch it sees to result. It must be added to an ordered
node, so that the values end up in item order; on any other kind of
node, it sets the error value of the pipeline.
*/
func Collect(result *[]int64) Filter {
	return func(pipeline *Pipeline, kind NodeKind, dataSize *int) (receiver Receiver, _ Finalizer) {
		if kind != Ordered {
			pipeline.Err(fmt.Errorf("pipeline: Collect requires an ordered node"))
			return
		}
		if *dataSize > 0 && *result == nil {
			*result = make([]int64, 0, *dataSize)
		}
		receiver = func(_ int, data interface{}) interface{} {
			if partial, ok := asPartial(pipeline, data); ok {
				*result = append(*result, partial.Values...)
			}
			return data
		}
		return
	}
}

/*
Count creates a filter that sets the result pointer to the total number
of items in all trspo.Chunk batches it sees.
*/
func Count(result *int) Filter {
	return func(_ *Pipeline, kind NodeKind, _ *int) (receiver Receiver, finalizer Finalizer) {
		var m sync.Mutex
		var count int
		receiver = func(_ int, data interface{}) interface{} {
			if chunk, ok := data.(trspo.Chunk); ok {
				if kind == Parallel {
					m.Lock()
					defer m.Unlock()
				}
				count += chunk.Len()
			}
			return data
		}
		finalizer = func() {
			*result = count
		}
		return
	}
}
