package sequential

import (
	"errors"
	"testing"

	"github.com/zavalska7893/trspo"
)

func TestDoRunsAllThunks(t *testing.T) {
	errA := errors.New("a")
	var calls []int
	err := Do(
		func() error {
			calls = append(calls, 0)
			return nil
		},
		func() error {
			calls = append(calls, 1)
			return errA
		},
		func() error {
			calls = append(calls, 2)
			return errors.New("b")
		},
	)
	if err != errA {
		t.Errorf("Do() = %v, want %v", err, errA)
	}
	if len(calls) != 3 || calls[0] != 0 || calls[2] != 2 {
		t.Errorf("thunks ran as %v, want [0 1 2]", calls)
	}
}

func TestRangeVisitsInOrder(t *testing.T) {
	next := 0
	err := Range(0, 37, 5, func(low, high int) error {
		if low != next {
			t.Errorf("batch starts at %d, want %d", low, next)
		}
		next = high
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if next != 37 {
		t.Errorf("batches end at %d, want 37", next)
	}
}

func TestRangeReduceStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var started []int
	_, err := RangeReduce(0, 8, 8,
		func(low, _ int) (trspo.Partial, error) {
			started = append(started, low)
			if low == 2 {
				return trspo.Partial{}, boom
			}
			return trspo.Partial{Sum: 1, Count: 1}, nil
		},
		trspo.Combine,
	)
	if err != boom {
		t.Fatalf("RangeReduce() error = %v, want %v", err, boom)
	}
	for _, low := range started {
		if low > 2 {
			t.Errorf("batch %d started after the failing batch", low)
		}
	}
}

func TestRangeReduceSum(t *testing.T) {
	p, err := RangeReduce(1, 11, 3,
		func(low, high int) (trspo.Partial, error) {
			var p trspo.Partial
			for i := low; i < high; i++ {
				p.Sum += int64(i)
				p.Count++
			}
			return p, nil
		},
		trspo.Combine,
	)
	if err != nil {
		t.Fatal(err)
	}
	if p.Sum != 55 || p.Count != 10 {
		t.Errorf("RangeReduce() = %+v, want sum 55 count 10", p)
	}
}
