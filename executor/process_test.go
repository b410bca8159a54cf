package executor

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/log"
)

func TestProcessExecutor_Submit(t *testing.T) {
	exec, err := NewProcess(context.Background(), helperConfig("square", 2))
	if err != nil {
		t.Fatalf("NewProcess failed: %v", err)
	}

	partial, err := exec.Submit(context.Background(), trspo.Chunk{Seq: 0, Low: 1, High: 5}, trspo.Materialized)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	want := trspo.Partial{Seq: 0, Values: []int64{1, 4, 9, 16}, Sum: 30, Count: 4}
	if !reflect.DeepEqual(partial, want) {
		t.Errorf("Submit() = %+v, want %+v", partial, want)
	}

	if err := exec.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestProcessExecutor_LargeMaterializedChunk(t *testing.T) {
	exec, err := NewProcess(context.Background(), helperConfig("identity", 1))
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	const n = 4000000
	partial, err := exec.Submit(context.Background(), trspo.Chunk{Seq: 0, Low: 1, High: n + 1}, trspo.Materialized)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if partial.Count != n || partial.Sum != int64(n)*(n+1)/2 || len(partial.Values) != n {
		t.Fatalf("Submit() sum %d count %d with %d values", partial.Sum, partial.Count, len(partial.Values))
	}
	if partial.Values[0] != 1 || partial.Values[MaxValuesPerFrame] != MaxValuesPerFrame+1 || partial.Values[n-1] != n {
		t.Errorf("values are out of order around frame boundaries")
	}

	// The worker stays usable after a split response.
	small, err := exec.Submit(context.Background(), trspo.Chunk{Seq: 1, Low: 1, High: 4}, trspo.Materialized)
	if err != nil || !reflect.DeepEqual(small.Values, []int64{1, 2, 3}) {
		t.Errorf("Submit() after large chunk = %+v, %v", small, err)
	}
}

func TestProcessExecutor_ConcurrentSubmitsMatchGoroutines(t *testing.T) {
	const workers = 3
	exec, err := NewProcess(context.Background(), helperConfig("identity", workers))
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	chunks, err := trspo.Partition(200, 7)
	if err != nil {
		t.Fatal(err)
	}
	local := NewGoroutine(helperFuncs["identity"])

	results := make([]trspo.Partial, len(chunks))
	errs := make([]error, len(chunks))
	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i], errs[i] = exec.Submit(context.Background(), chunks[i], trspo.Streaming)
			}
		}()
	}
	for i := range chunks {
		next <- i
	}
	close(next)
	wg.Wait()

	for i, c := range chunks {
		if errs[i] != nil {
			t.Fatalf("chunk %d: %v", i, errs[i])
		}
		want, _ := local.Submit(context.Background(), c, trspo.Streaming)
		if !reflect.DeepEqual(results[i], want) {
			t.Errorf("chunk %d = %+v, want %+v", i, results[i], want)
		}
	}
}

func TestProcessExecutor_WorkerError(t *testing.T) {
	exec, err := NewProcess(context.Background(), helperConfig("fail7", 1))
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	_, err = exec.Submit(context.Background(), trspo.Chunk{Seq: 0, Low: 1, High: 10}, trspo.Streaming)
	var werr *trspo.WorkerError
	if !errors.As(err, &werr) || werr.Item != 7 {
		t.Fatalf("Submit() error = %v, want *WorkerError for item 7", err)
	}

	// A failing function does not break the worker process.
	partial, err := exec.Submit(context.Background(), trspo.Chunk{Seq: 1, Low: 10, High: 12}, trspo.Streaming)
	if err != nil || partial.Sum != 21 {
		t.Errorf("Submit() after failure = %+v, %v", partial, err)
	}
}

func TestProcessExecutor_Crash(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(log.RunContext{RunID: "test"}, zapcore.DebugLevel, &buf)
	cfg := helperConfig("crash5", 1)
	cfg.Logger = logger

	exec, err := NewProcess(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = exec.Submit(context.Background(), trspo.Chunk{Seq: 0, Low: 1, High: 10}, trspo.Streaming)
	if err == nil {
		t.Fatal("expected an error from a crashed worker process")
	}
	var werr *trspo.WorkerError
	if errors.As(err, &werr) {
		t.Errorf("a crash is not a function failure: %v", err)
	}

	// The broken worker process keeps failing.
	if _, err := exec.Submit(context.Background(), trspo.Chunk{Seq: 1, Low: 10, High: 11}, trspo.Streaming); err == nil {
		t.Error("expected an error from a broken worker process")
	}

	if err := exec.Close(); err == nil {
		t.Error("Close() should report the exit status of the crashed worker process")
	}
	if !strings.Contains(buf.String(), "crashing on item 5") {
		t.Errorf("stderr of the worker process was not logged: %s", buf.String())
	}
}

func TestProcessExecutor_SubmitCancelled(t *testing.T) {
	exec, err := NewProcess(context.Background(), helperConfig("identity", 1))
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Submit(ctx, trspo.Chunk{Low: 1, High: 2}, trspo.Streaming); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() = %v, want context.Canceled", err)
	}
}

func TestNewProcess_InvalidWorkers(t *testing.T) {
	if _, err := NewProcess(context.Background(), helperConfig("identity", 0)); !errors.Is(err, trspo.ErrInvalidInput) {
		t.Errorf("NewProcess() error = %v, want ErrInvalidInput", err)
	}
}

func TestNewProcess_MissingBinary(t *testing.T) {
	cfg := helperConfig("identity", 2)
	cfg.Path = "/nonexistent/trspo-worker"
	if _, err := NewProcess(context.Background(), cfg); err == nil {
		t.Error("expected an error for a missing worker binary")
	}
}
