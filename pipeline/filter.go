package pipeline

// A NodeKind represents the different kinds of nodes.
type NodeKind int

const (
	// Ordered nodes receive batches in encounter order.
	Ordered NodeKind = iota

	// Sequential nodes receive batches in arbitrary sequential order.
	Sequential

	// Parallel nodes receive batches in parallel.
	Parallel
)

/*
A Filter is a function that returns a Receiver and a Finalizer to be
added to a node. It receives a pipeline, the kind of node it will be
added to, and the expected total number of items that the receiver
will be asked to process, or a negative value if that is unknown.

Either the receiver or the finalizer or both can be nil, in which case
they will not be added to the current node.
*/
type Filter func(pipeline *Pipeline, kind NodeKind, dataSize *int) (Receiver, Finalizer)

// A Receiver is called for every data batch, and returns a
// potentially modified data batch. The seqNo parameter indicates the
// order in which the data batch was encountered at the current
// pipeline's data source.
type Receiver func(seqNo int, data interface{}) (filteredData interface{})

// A Finalizer is called once after the corresponding receiver has
// been called for all data batches in the current pipeline.
type Finalizer func()

// ComposeFilters takes a number of filters, calls them with the given
// pipeline, kind, and dataSize parameters in order, and appends the
// returned receivers and finalizers (except for nil values) to the
// result slices.
func ComposeFilters(pipeline *Pipeline, kind NodeKind, dataSize *int, filters []Filter) (receivers []Receiver, finalizers []Finalizer) {
	for _, filter := range filters {
		receiver, finalizer := filter(pipeline, kind, dataSize)
		if receiver != nil {
			receivers = append(receivers, receiver)
		}
		if finalizer != nil {
			finalizers = append(finalizers, finalizer)
		}
	}
	return
}

func feed(p *Pipeline, receivers []Receiver, index int, seqNo int, data interface{}) {
	for _, receive := range receivers {
		data = receive(seqNo, data)
	}
	p.FeedForward(index, seqNo, data)
}
