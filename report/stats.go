package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// A BenchSample holds the timings of repeated runs of one configuration
// of a benchmark sweep.
type BenchSample struct {
	Strategy string
	Mode     string
	Workers  int
	Elapsed  []float64
	Total    int64
	Count    int
	Estimate *float64
}

// BenchRow summarises a BenchSample.
type BenchRow struct {
	Strategy      string   `json:"strategy" yaml:"strategy"`
	Mode          string   `json:"mode" yaml:"mode"`
	Workers       int      `json:"workers" yaml:"workers"`
	Runs          int      `json:"runs" yaml:"runs"`
	MeanSeconds   float64  `json:"mean_seconds" yaml:"mean_seconds"`
	StdDevSeconds float64  `json:"stddev_seconds" yaml:"stddev_seconds"`
	Speedup       float64  `json:"speedup" yaml:"speedup"`
	Total         int64    `json:"total" yaml:"total"`
	Count         int      `json:"count" yaml:"count"`
	Estimate      *float64 `json:"estimate,omitempty" yaml:"estimate,omitempty"`
}

/*
Summarize turns benchmark samples into rows, ordered by strategy, mode,
and worker count.

The speedup of a row is the mean time of the row with the smallest
worker count of the same strategy and mode divided by the mean time of
the row. The standard deviation of a single run is 0.
*/
func Summarize(samples []BenchSample) []BenchRow {
	rows := make([]BenchRow, 0, len(samples))
	for _, s := range samples {
		row := BenchRow{
			Strategy: s.Strategy,
			Mode:     s.Mode,
			Workers:  s.Workers,
			Runs:     len(s.Elapsed),
			Total:    s.Total,
			Count:    s.Count,
			Estimate: s.Estimate,
		}
		switch len(s.Elapsed) {
		case 0:
		case 1:
			row.MeanSeconds = s.Elapsed[0]
		default:
			row.MeanSeconds, row.StdDevSeconds = stat.MeanStdDev(s.Elapsed, nil)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Strategy != b.Strategy {
			return a.Strategy < b.Strategy
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Workers < b.Workers
	})

	for i := range rows {
		base := rows[i]
		for j := i; j >= 0 && rows[j].Strategy == rows[i].Strategy && rows[j].Mode == rows[i].Mode; j-- {
			base = rows[j]
		}
		if rows[i].MeanSeconds > 0 {
			rows[i].Speedup = base.MeanSeconds / rows[i].MeanSeconds
		}
	}
	return rows
}
