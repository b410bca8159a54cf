// Package trspo provides a chunked parallel reducer: it applies a pure
// function to every integer of a domain [1, N], spreads contiguous chunks
// of that domain across a fixed pool of workers, and folds the per-chunk
// results into a single aggregate together with the elapsed wall-clock
// time.
//
// The workers can be goroutines or separate operating system processes.
// The choice only affects how well CPU-bound work is spread over the
// available cores, never the aggregate itself.
//
// trspo provides the following subpackages:
//
// trspo/parallel provides fork/join functions for executing thunks and
// reducers over ranges in parallel.
//
// trspo/sequential provides sequential implementations of the functions
// from trspo/parallel, used for single-worker runs and for testing.
//
// trspo/pipeline provides a chunk pipeline that feeds contiguous chunks of
// an integer range through a fixed pool of workers into ordered or
// sequential collector stages.
//
// trspo/executor provides the execution strategies (goroutine pool and
// process pool) that apply a function to a chunk.
//
// trspo/reduce ties the above together into the reducer itself, with
// materialized and streaming aggregation modes.
//
// trspo/workload provides the toy workloads: identity, Collatz step
// counts, factorials, and a seeded Monte Carlo point-in-circle test.
//
// trspo/config, trspo/log, and trspo/report provide configuration,
// structured logging, and result rendering for the trspo command.
package trspo
