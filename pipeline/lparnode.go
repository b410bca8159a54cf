package pipeline

import (
	"runtime"
	"sync"
)

// lparnode is a fixed pool of worker goroutines that all receive from the
// same channel, so each batch goes to whichever worker is free first.
type lparnode struct {
	limit      int
	channel    chan dataBatch
	waitGroup  sync.WaitGroup
	filters    []Filter
	receivers  []Receiver
	finalizers []Finalizer
}

// LimitedPar creates a parallel node with the given filters, executed by
// a fixed pool of limit worker goroutines. If limit is <= 0,
// runtime.GOMAXPROCS(0) workers are used. A limit of 1 yields a
// sequential node.
//
// Workers beyond the number of batches simply stay idle.
func LimitedPar(limit int, filters ...Filter) Node {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	if limit == 1 {
		return &seqnode{kind: Sequential, filters: filters}
	}
	return &lparnode{limit: limit, filters: filters}
}

// TryMerge implements the TryMerge method of the Node interface.
func (node *lparnode) TryMerge(next Node) bool {
	if nxt, merge := next.(*lparnode); merge && (nxt.limit == node.limit) {
		node.filters = append(node.filters, nxt.filters...)
		return true
	}
	return false
}

// Begin implements the Begin method of the Node interface.
func (node *lparnode) Begin(p *Pipeline, index int, dataSize *int) (keep bool) {
	node.receivers, node.finalizers = ComposeFilters(p, Parallel, dataSize, node.filters)
	node.filters = nil
	if keep = (len(node.receivers) > 0) || (len(node.finalizers) > 0); keep {
		node.channel = make(chan dataBatch)
		node.waitGroup.Add(node.limit)
		for i := 0; i < node.limit; i++ {
			go func() {
				defer node.waitGroup.Done()
				for {
					select {
					case <-p.ctx.Done():
						return
					case batch, ok := <-node.channel:
						if !ok {
							return
						}
						feed(p, node.receivers, index, batch.seqNo, batch.data)
					}
				}
			}()
		}
	}
	return
}

// Feed implements the Feed method of the Node interface. It blocks until
// a worker is free or the pipeline is canceled.
func (node *lparnode) Feed(p *Pipeline, _ int, seqNo int, data interface{}) {
	select {
	case <-p.ctx.Done():
	case node.channel <- dataBatch{seqNo: seqNo, data: data}:
	}
}

// End implements the End method of the Node interface.
func (node *lparnode) End() {
	close(node.channel)
	node.waitGroup.Wait()
	for _, finalize := range node.finalizers {
		finalize()
	}
	node.receivers = nil
	node.finalizers = nil
}
