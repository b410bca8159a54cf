package pipeline

import (
	"context"

	"github.com/zavalska7893/trspo"
)

/*
A Source represents an object that can generate data batches for
pipelines.
*/
type Source interface {
	// Err returns an error value or nil.
	Err() error

	// Prepare receives a pipeline context and informs the pipeline what
	// the total expected number of items is. The return value is -1 if
	// the total size is unknown.
	Prepare(ctx context.Context) (size int)

	// Fetch gets a data batch of at most the requested size from the
	// source. It returns the size of the data batch that it was actually
	// able to fetch, or 0 if the source is depleted.
	Fetch(size int) (fetched int)

	// Data returns the last fetched data batch.
	Data() interface{}
}

// RangeSource is a Source that splits the half-open integer range from
// low to high into consecutive trspo.Chunk values. The last chunk may be
// shorter than the requested size.
type RangeSource struct {
	low, high int
	next, seq int
	data      interface{}
}

// NewRangeSource returns a source for the half-open interval from low to
// high. It panics if high < low.
func NewRangeSource(low, high int) *RangeSource {
	if high < low {
		panic("invalid range in pipeline.NewRangeSource")
	}
	return &RangeSource{low: low, high: high, next: low}
}

// Err implements the Err method of the Source interface.
func (src *RangeSource) Err() error {
	return nil
}

// Prepare implements the Prepare method of the Source interface.
func (src *RangeSource) Prepare(_ context.Context) int {
	return src.high - src.low
}

// Fetch implements the Fetch method of the Source interface.
func (src *RangeSource) Fetch(n int) (fetched int) {
	if src.next >= src.high || n <= 0 {
		src.data = nil
		return 0
	}
	end := src.next + n
	if end > src.high {
		end = src.high
	}
	src.data = trspo.Chunk{Seq: src.seq, Low: src.next, High: end}
	fetched = end - src.next
	src.next = end
	src.seq++
	return
}

// Data implements the Data method of the Source interface. The batch is
// a trspo.Chunk.
func (src *RangeSource) Data() interface{} {
	return src.data
}
