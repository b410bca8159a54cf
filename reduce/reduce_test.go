package reduce

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/executor"
	"github.com/zavalska7893/trspo/workload"
)

const helperEnv = "TRSPO_REDUCE_HELPER"

// TestMain turns the test binary into a worker process serving a
// registered workload when it is started by processExecutor.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(serveWorkload(os.Args))
	}
	os.Exit(m.Run())
}

func serveWorkload(args []string) int {
	var name string
	var seed uint64
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--workload":
			name = args[i+1]
		case "--seed":
			seed, _ = strconv.ParseUint(args[i+1], 10, 64)
		}
	}
	w, err := workload.Lookup(name, seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := executor.Serve(context.Background(), os.Stdin, os.Stdout, w.Func); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func processExecutor(t *testing.T, name string, seed uint64, workers int) executor.Executor {
	t.Helper()
	exec, err := executor.NewProcess(context.Background(), executor.ProcessConfig{
		Path:     os.Args[0],
		Args:     []string{"-test.run=^$", "--"},
		Env:      []string{helperEnv + "=1"},
		Workers:  workers,
		Workload: name,
		Seed:     seed,
	})
	if err != nil {
		t.Fatalf("NewProcess failed: %v", err)
	}
	t.Cleanup(func() {
		if err := exec.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return exec
}

var (
	modes     = []trspo.Mode{trspo.Materialized, trspo.Streaming}
	schedules = []Schedule{Dynamic, Static}
)

func mustReduce(t *testing.T, f trspo.Func, opts Options) trspo.Result {
	t.Helper()
	res, err := Reduce(context.Background(), f, opts)
	if err != nil {
		t.Fatalf("Reduce(%+v) failed: %v", opts, err)
	}
	return res
}

func TestIdentitySum(t *testing.T) {
	for _, schedule := range schedules {
		for _, mode := range modes {
			res := mustReduce(t, workload.Identity, Options{DomainSize: 10, Workers: 2, ChunkSize: 3, Mode: mode, Schedule: schedule})
			if res.Total != 55 || res.Count != 10 {
				t.Errorf("%v/%v: total = %d, count = %d, want 55, 10", schedule, mode, res.Total, res.Count)
			}
			if res.Average() != 5.5 {
				t.Errorf("%v/%v: average = %v, want 5.5", schedule, mode, res.Average())
			}
			if res.Elapsed < 0 {
				t.Errorf("%v/%v: negative elapsed time %v", schedule, mode, res.Elapsed)
			}
		}
	}
}

func TestMaterializedValuesInItemOrder(t *testing.T) {
	for _, schedule := range schedules {
		res := mustReduce(t, workload.Factorial, Options{DomainSize: 10, Workers: 4, ChunkSize: 2, Mode: trspo.Materialized, Schedule: schedule})
		want := []int64{1, 2, 6, 24, 120, 720, 5040, 40320, 362880, 3628800}
		if !reflect.DeepEqual(res.Values, want) {
			t.Errorf("%v: values = %v, want %v", schedule, res.Values, want)
		}
		streaming := mustReduce(t, workload.Factorial, Options{DomainSize: 10, Workers: 4, ChunkSize: 2, Mode: trspo.Streaming, Schedule: schedule})
		if streaming.Values != nil {
			t.Errorf("%v: streaming result holds values %v", schedule, streaming.Values)
		}
	}
}

func TestMaterializedDynamicCollectsIntoOneBuffer(t *testing.T) {
	res := mustReduce(t, workload.Identity, Options{DomainSize: 1000, Workers: 4, ChunkSize: 10, Mode: trspo.Materialized, Schedule: Dynamic})
	if len(res.Values) != 1000 || cap(res.Values) != 1000 {
		t.Errorf("values len %d, cap %d, want both 1000", len(res.Values), cap(res.Values))
	}
}

func TestModesAgree(t *testing.T) {
	for _, n := range []int{1, 9, 100, 1237} {
		for _, chunkSize := range []int{1, 7, 100, 5000} {
			for _, schedule := range schedules {
				opts := Options{DomainSize: n, Workers: 4, ChunkSize: chunkSize, Schedule: schedule}
				opts.Mode = trspo.Materialized
				materialized := mustReduce(t, workload.Collatz, opts)
				opts.Mode = trspo.Streaming
				streaming := mustReduce(t, workload.Collatz, opts)
				if materialized.Total != streaming.Total || materialized.Count != streaming.Count {
					t.Errorf("N=%d C=%d %v: materialized %d/%d, streaming %d/%d", n, chunkSize, schedule,
						materialized.Total, materialized.Count, streaming.Total, streaming.Count)
				}
			}
		}
	}
}

func TestChunkSizeExtremesAgree(t *testing.T) {
	const n = 500
	for _, schedule := range schedules {
		for _, mode := range modes {
			single := mustReduce(t, workload.Collatz, Options{DomainSize: n, Workers: 3, ChunkSize: n, Mode: mode, Schedule: schedule})
			fragmented := mustReduce(t, workload.Collatz, Options{DomainSize: n, Workers: 3, ChunkSize: 1, Mode: mode, Schedule: schedule})
			if single.Total != fragmented.Total || single.Count != fragmented.Count {
				t.Errorf("%v/%v: chunkSize=N gives %d/%d, chunkSize=1 gives %d/%d", schedule, mode,
					single.Total, single.Count, fragmented.Total, fragmented.Count)
			}
		}
	}
}

func TestMoreWorkersThanChunks(t *testing.T) {
	base := mustReduce(t, workload.Identity, Options{DomainSize: 20, Workers: 1, ChunkSize: 10})
	for _, workers := range []int{2, 3, 16, 100} {
		for _, schedule := range schedules {
			res := mustReduce(t, workload.Identity, Options{DomainSize: 20, Workers: workers, ChunkSize: 10, Schedule: schedule})
			if res.Total != base.Total || res.Count != base.Count {
				t.Errorf("workers=%d %v: %d/%d, want %d/%d", workers, schedule, res.Total, res.Count, base.Total, base.Count)
			}
		}
	}
}

func TestSingleChunkWhenDomainIsSmall(t *testing.T) {
	var chunks int32
	exec := countingExecutor{Executor: executor.NewGoroutine(workload.Identity), chunks: &chunks}
	res, err := Run(context.Background(), exec, Options{DomainSize: 5, Workers: 4, ChunkSize: 100, Mode: trspo.Streaming})
	if err != nil {
		t.Fatal(err)
	}
	if chunks != 1 || res.Total != 15 {
		t.Errorf("chunks = %d, total = %d, want 1 chunk and total 15", chunks, res.Total)
	}
}

func TestSeededPiParallelMatchesSequential(t *testing.T) {
	const n, seed = 20000, 2024
	pi := workload.PointInCircle(seed)
	sequential := mustReduce(t, pi, Options{DomainSize: n, Workers: 1, ChunkSize: n, Mode: trspo.Streaming})
	for _, workers := range []int{2, 4, 8} {
		for _, schedule := range schedules {
			for _, mode := range modes {
				res := mustReduce(t, pi, Options{DomainSize: n, Workers: workers, ChunkSize: 333, Mode: mode, Schedule: schedule})
				if res.Total != sequential.Total || res.Count != sequential.Count {
					t.Errorf("workers=%d %v/%v: %d/%d, sequential %d/%d", workers, schedule, mode,
						res.Total, res.Count, sequential.Total, sequential.Count)
				}
			}
		}
	}
}

func TestProcessStrategyMatchesGoroutines(t *testing.T) {
	const n, seed = 5000, 99
	for _, name := range []string{"collatz", "pi"} {
		w, err := workload.Lookup(name, seed)
		if err != nil {
			t.Fatal(err)
		}
		for _, mode := range modes {
			opts := Options{DomainSize: n, Workers: 3, ChunkSize: 250, Mode: mode}
			want := mustReduce(t, w.Func, opts)
			got, err := Run(context.Background(), processExecutor(t, name, seed, opts.Workers), opts)
			if err != nil {
				t.Fatalf("%s/%v: %v", name, mode, err)
			}
			if got.Total != want.Total || got.Count != want.Count || !reflect.DeepEqual(got.Values, want.Values) {
				t.Errorf("%s/%v: process %d/%d, goroutine %d/%d", name, mode, got.Total, got.Count, want.Total, want.Count)
			}
		}
	}
}

func TestProcessStrategyWorkerFailure(t *testing.T) {
	exec := processExecutor(t, "factorial", 0, 2)
	_, err := Run(context.Background(), exec, Options{DomainSize: 40, Workers: 2, ChunkSize: 5})
	var werr *trspo.WorkerError
	if !errors.As(err, &werr) || !errors.Is(err, trspo.ErrOverflow) {
		t.Fatalf("Run() error = %v, want *WorkerError wrapping ErrOverflow", err)
	}
	if werr.Item <= 20 {
		t.Errorf("failing item = %d, want > 20", werr.Item)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"empty domain", Options{DomainSize: 0, Workers: 1, ChunkSize: 1}},
		{"negative domain", Options{DomainSize: -3, Workers: 1, ChunkSize: 1}},
		{"no workers", Options{DomainSize: 10, Workers: 0, ChunkSize: 1}},
		{"no chunk size", Options{DomainSize: 10, Workers: 1, ChunkSize: 0}},
		{"bad mode", Options{DomainSize: 10, Workers: 1, ChunkSize: 1, Mode: trspo.Mode(7)}},
		{"bad schedule", Options{DomainSize: 10, Workers: 1, ChunkSize: 1, Schedule: Schedule(7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			f := func(n int) (int64, error) {
				atomic.AddInt32(&calls, 1)
				return int64(n), nil
			}
			_, err := Reduce(context.Background(), f, tt.opts)
			if !errors.Is(err, trspo.ErrInvalidInput) {
				t.Errorf("Reduce() error = %v, want ErrInvalidInput", err)
			}
			if calls != 0 {
				t.Errorf("f was called %d times before validation failed", calls)
			}
		})
	}
}

func TestWorkerFailureAborts(t *testing.T) {
	const n = 100000
	boom := errors.New("boom")
	for _, schedule := range schedules {
		for _, mode := range modes {
			var calls int64
			f := func(i int) (int64, error) {
				atomic.AddInt64(&calls, 1)
				if i == 50 {
					return 0, boom
				}
				return int64(i), nil
			}
			res, err := Reduce(context.Background(), f, Options{DomainSize: n, Workers: 2, ChunkSize: 10, Mode: mode, Schedule: schedule})
			var werr *trspo.WorkerError
			if !errors.As(err, &werr) || werr.Item != 50 || !errors.Is(err, boom) {
				t.Errorf("%v/%v: error = %v, want *WorkerError for item 50", schedule, mode, err)
			}
			if res.Count != 0 || res.Total != 0 || res.Values != nil {
				t.Errorf("%v/%v: partial result %+v returned", schedule, mode, res)
			}
			if c := atomic.LoadInt64(&calls); c >= n {
				t.Errorf("%v/%v: all %d items were processed despite the failure", schedule, mode, c)
			}
		}
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, schedule := range schedules {
		_, err := Reduce(ctx, workload.Identity, Options{DomainSize: 1000, Workers: 2, ChunkSize: 10, Schedule: schedule})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%v: error = %v, want context.Canceled", schedule, err)
		}
	}
}

func TestOverflowIsAWorkerFailure(t *testing.T) {
	_, err := Reduce(context.Background(), workload.Factorial, Options{DomainSize: 25, Workers: 2, ChunkSize: 4})
	if !errors.Is(err, trspo.ErrOverflow) {
		t.Errorf("error = %v, want ErrOverflow", err)
	}
}

func TestParseSchedule(t *testing.T) {
	for in, want := range map[string]Schedule{"dynamic": Dynamic, " Static": Static} {
		got, err := ParseSchedule(in)
		if err != nil || got != want {
			t.Errorf("ParseSchedule(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseSchedule("guided"); !errors.Is(err, trspo.ErrInvalidInput) {
		t.Errorf("ParseSchedule(guided) error = %v, want ErrInvalidInput", err)
	}
}

type countingExecutor struct {
	executor.Executor
	chunks *int32
}

func (e countingExecutor) Submit(ctx context.Context, chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error) {
	atomic.AddInt32(e.chunks, 1)
	return e.Executor.Submit(ctx, chunk, mode)
}

func ExampleReduce() {
	res, err := Reduce(context.Background(), workload.Collatz, Options{
		DomainSize: 10,
		Workers:    4,
		ChunkSize:  3,
		Mode:       trspo.Streaming,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Total, res.Count, res.Average())
	// Output: 67 10 6.7
}

func BenchmarkReduce(b *testing.B) {
	for _, mode := range modes {
		for _, schedule := range schedules {
			b.Run(mode.String()+"/"+schedule.String(), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := Reduce(context.Background(), workload.Collatz, Options{
						DomainSize: 100000, Workers: 4, ChunkSize: 5000, Mode: mode, Schedule: schedule,
					}); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
