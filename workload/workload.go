// Package workload provides the pure per-item functions that the reducer
// runs, and a registry to select them by name.
package workload

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zavalska7893/trspo"
)

// Identity returns n.
func Identity(n int) (int64, error) {
	return int64(n), nil
}

// Collatz returns the number of steps the Collatz iteration needs to
// reach 1 from n. Collatz(1) is 0.
func Collatz(n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("collatz: %d is not positive", n)
	}
	x := int64(n)
	var steps int64
	for x != 1 {
		if x%2 == 0 {
			x /= 2
		} else {
			if x > (math.MaxInt64-1)/3 {
				return 0, fmt.Errorf("collatz(%d): %w", n, trspo.ErrOverflow)
			}
			x = 3*x + 1
		}
		steps++
	}
	return steps, nil
}

// maxFactorial is the largest n whose factorial fits into an int64.
const maxFactorial = 20

// Factorial returns n!. Factorials beyond 20! do not fit into an int64
// and fail with trspo.ErrOverflow.
func Factorial(n int) (int64, error) {
	switch {
	case n < 0:
		return 0, fmt.Errorf("factorial: %d is negative", n)
	case n > maxFactorial:
		return 0, fmt.Errorf("factorial(%d): %w", n, trspo.ErrOverflow)
	}
	result := int64(1)
	for i := int64(2); i <= int64(n); i++ {
		result *= i
	}
	return result, nil
}

/*
PointInCircle returns a function that derives a point of the square
[-1, 1] x [-1, 1] from the seed and the item n, and reports 1 if the
point lies inside the unit circle and 0 otherwise.

The point depends only on seed and n, so a reduction yields the same
count for every chunk size, worker count, and execution strategy.
Four times the average of the indicator approximates π.
*/
func PointInCircle(seed uint64) trspo.Func {
	key := splitmix64(seed)
	return func(n int) (int64, error) {
		x := unit(splitmix64(key + uint64(n)*2))
		y := unit(splitmix64(key + uint64(n)*2 + 1))
		if x*x+y*y <= 1 {
			return 1, nil
		}
		return 0, nil
	}
}

// splitmix64 is the finalizer of the SplitMix64 generator. It maps
// consecutive inputs to well-distributed outputs.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// unit maps the upper 53 bits of x to [-1, 1).
func unit(x uint64) float64 {
	return float64(x>>11)/(1<<52) - 1
}

// A Workload is a named per-item function.
type Workload struct {
	Name        string
	Description string
	Func        trspo.Func

	// Estimate derives a quantity from the result of a reduction, for
	// example π from the share of points in the circle. It is nil for
	// workloads without one.
	Estimate func(res trspo.Result) float64
}

type factory func(seed uint64) Workload

var registry = map[string]factory{
	"identity": func(uint64) Workload {
		return Workload{Name: "identity", Description: "f(n) = n", Func: Identity}
	},
	"collatz": func(uint64) Workload {
		return Workload{Name: "collatz", Description: "Collatz steps to reach 1", Func: Collatz}
	},
	"factorial": func(uint64) Workload {
		return Workload{Name: "factorial", Description: "n! (n <= 20)", Func: Factorial}
	},
	"pi": func(seed uint64) Workload {
		return Workload{
			Name:        "pi",
			Description: "Monte Carlo point-in-circle indicator",
			Func:        PointInCircle(seed),
			Estimate:    func(res trspo.Result) float64 { return 4 * res.Average() },
		}
	},
}

// Lookup returns the workload with the given name, ignoring case. The
// seed is only used by the pi workload.
func Lookup(name string, seed uint64) (Workload, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Workload{}, fmt.Errorf("%w: unknown workload %q (must be one of %s)",
			trspo.ErrInvalidInput, name, strings.Join(Names(), ", "))
	}
	return f(seed), nil
}

// Names returns the names of all workloads in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
