/*
Package pipeline provides means to construct and execute chunk
pipelines.

A Pipeline fetches contiguous chunks of an integer range from a Source
and feeds them through several nodes. Each node consists of filters and
is executed either in encounter order, in arbitrary sequential order,
or by a fixed pool of parallel workers. Ordered, sequential, and
parallel nodes can arbitrarily alternate, and ordered nodes always
receive batches in encounter order even if they are preceded by
parallel nodes.

The typical shape used by the reducer is a LimitedPar node that turns
each chunk into a partial result, followed by an Ord node that collects
per-item values in item order, or by a Seq node that folds partial
results into a running total.

Pipelines do not have an explicit representation for sinks. Instead,
filters can use side effects to generate results.

Pipelines support cancelation by way of the context package. The first
error reported through Err cancels the pipeline.
*/
package pipeline

import (
	"context"
	"runtime"
	"sync"
)

type (
	/*
	  A Node object represents a sequence of filters which are together
	  executed either in encounter order, in arbitrary sequential order,
	  or in parallel.

	  The methods of this interface are called by pipelines, not by user
	  programs.
	*/
	Node interface {

		// TryMerge tries to merge node with the current node by appending
		// its filters to the filters of the current node, which succeeds
		// if both nodes are of a compatible kind. The return value merged
		// indicates whether merging succeeded.
		TryMerge(node Node) (merged bool)

		// Begin informs this node that the pipeline is going to start to
		// feed batches of data to this node. The pipeline, the index of
		// this node among all the nodes in the pipeline, and the expected
		// total size of all batches combined are passed as parameters.
		//
		// The dataSize parameter is either positive, in which case it
		// indicates the expected total number of items, or negative, in
		// which case it is unknown. Filters may modify it for subsequent
		// nodes.
		//
		// A node that does not need to see any batches returns false, and
		// its Feed and End methods will not be called.
		Begin(p *Pipeline, index int, dataSize *int) (keep bool)

		// Feed is called for each batch of data. After the data has been
		// processed by all filters of this node, the node must call
		// p.FeedForward with the same index and sequence number, even when
		// the data batch is or becomes nil, so that subsequent ordered
		// nodes see every sequence number.
		Feed(p *Pipeline, index int, seqNo int, data interface{})

		// End is called after all batches have been passed to Feed, or
		// after the pipeline has been canceled. It waits for the
		// goroutines of the node and calls the finalizers of its filters.
		End()
	}

	/*
	  A Pipeline feeds chunks fetched from a source through several nodes
	  that are ordered, sequential, or parallel.

	  The zero Pipeline is valid and empty.

	  A Pipeline must not be copied after first use.
	*/
	Pipeline struct {
		mutex     sync.RWMutex
		err       error
		ctx       context.Context
		cancel    context.CancelFunc
		source    Source
		nodes     []Node
		chunkSize int
	}
)

/*
Err sets or gets an error value for this pipeline.

If err is nil, Err returns the current error value for this pipeline.

If err is not nil, Err attempts to set a new error value for this
pipeline, unless it already has a non-nil error value. If the attempt
is successful, err is returned and Err also cancels the pipeline. If
the attempt is not successful, the current error value for this
pipeline is returned instead.

Err is safe to be invoked from different goroutines, for example from
the workers of parallel nodes in this pipeline.
*/
func (p *Pipeline) Err(err error) error {
	if err == nil {
		p.mutex.RLock()
		err := p.err
		p.mutex.RUnlock()
		return err
	}
	p.mutex.Lock()
	if p.err == nil {
		p.err = err
		p.mutex.Unlock()
		if p.cancel != nil {
			p.cancel()
		}
	} else {
		err = p.err
		p.mutex.Unlock()
	}
	return err
}

// Context returns this pipeline's context.
func (p *Pipeline) Context() context.Context {
	return p.ctx
}

// Cancel calls the cancel function of this pipeline's context.
func (p *Pipeline) Cancel() {
	p.cancel()
}

// Source sets the data source for this pipeline. Only the last call
// before Run or RunWithContext is effective.
func (p *Pipeline) Source(source Source) {
	p.source = source
}

// Add appends nodes to the end of this pipeline, merging adjacent nodes
// where possible.
func (p *Pipeline) Add(nodes ...Node) {
	for _, node := range nodes {
		if l := len(p.nodes); (l == 0) || !p.nodes[l-1].TryMerge(node) {
			p.nodes = append(p.nodes, node)
		}
	}
}

/*
ChunkSize sets or gets the number of items per chunk fetched from the
data source.

If n is < 1, ChunkSize returns the current value. If no chunk size has
been set, the pipeline chooses one when it starts to run: for a source
of known size, the size is divided into 2 * runtime.GOMAXPROCS(0)
chunks; otherwise defaultChunkSize is used.
*/
func (p *Pipeline) ChunkSize(n int) int {
	if n >= 1 {
		p.chunkSize = n
	}
	return p.chunkSize
}

const defaultChunkSize = 1024

func (p *Pipeline) effectiveChunkSize(dataSize int) int {
	switch {
	case p.chunkSize >= 1:
		return p.chunkSize
	case dataSize > 0:
		return ((dataSize - 1) / (2 * runtime.GOMAXPROCS(0))) + 1
	default:
		return defaultChunkSize
	}
}

/*
RunWithContext initiates pipeline execution.

It expects a context and a cancel function as parameters, for example
from context.WithCancel(context.Background()). It does not ensure that
the cancel function is called at least once, so this must be ensured
by the function calling RunWithContext.

RunWithContext prepares the data source, tells each node that batches
are going to be sent to them by calling Begin, and then fetches chunks
from the data source and sends them to the first node. Fetching stops
when the source is depleted, or as soon as the pipeline has an error
value or its context is canceled. In all cases, End is called on every
node before RunWithContext returns, so that no goroutine of the
pipeline outlives it.
*/
func (p *Pipeline) RunWithContext(ctx context.Context, cancel context.CancelFunc) {
	if p.Err(nil) != nil {
		return
	}
	p.ctx, p.cancel = ctx, cancel
	dataSize := p.source.Prepare(p.ctx)
	filteredSize := dataSize
	for index := 0; index < len(p.nodes); {
		if p.nodes[index].Begin(p, index, &filteredSize) {
			index++
		} else {
			p.nodes = append(p.nodes[:index], p.nodes[index+1:]...)
		}
	}
	if len(p.nodes) > 0 {
		chunkSize := p.effectiveChunkSize(dataSize)
		for seqNo := 0; p.Err(nil) == nil && ctx.Err() == nil; seqNo++ {
			if p.source.Fetch(chunkSize) == 0 {
				break
			}
			p.nodes[0].Feed(p, 0, seqNo, p.source.Data())
			p.Err(p.source.Err())
		}
	}
	for _, node := range p.nodes {
		node.End()
	}
}

/*
Run initiates pipeline execution by calling
RunWithContext(context.WithCancel(context.Background())), and ensures
that the cancel function is called at least once when the pipeline is
done.
*/
func (p *Pipeline) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.RunWithContext(ctx, cancel)
}

/*
FeedForward must be called in the Feed method of a node to forward a
potentially modified data batch to the next node in the current
pipeline.

FeedForward is used in Node implementations. User programs typically
do not call FeedForward.
*/
func (p *Pipeline) FeedForward(index int, seqNo int, data interface{}) {
	if index++; index < len(p.nodes) {
		p.nodes[index].Feed(p, index, seqNo, data)
	}
}
