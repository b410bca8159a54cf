package report

import (
	"fmt"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/config"
	"github.com/zavalska7893/trspo/workload"
)

// A Reporter is the sink for the result of a reduction.
type Reporter interface {
	Report(cfg config.Config, res trspo.Result) error
}

// RunReport is the rendered form of one reduction.
type RunReport struct {
	RunID          string   `json:"run_id" yaml:"run_id"`
	Workload       string   `json:"workload" yaml:"workload"`
	Strategy       string   `json:"strategy" yaml:"strategy"`
	Schedule       string   `json:"schedule" yaml:"schedule"`
	Mode           string   `json:"mode" yaml:"mode"`
	DomainSize     int      `json:"domain_size" yaml:"domain_size"`
	Workers        int      `json:"workers" yaml:"workers"`
	ChunkSize      int      `json:"chunk_size" yaml:"chunk_size"`
	Total          int64    `json:"total" yaml:"total"`
	Count          int      `json:"count" yaml:"count"`
	Average        float64  `json:"average" yaml:"average"`
	ElapsedSeconds float64  `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Estimate       *float64 `json:"estimate,omitempty" yaml:"estimate,omitempty"`
}

// NewRunReport builds the report of a reduction. The estimate of the
// workload, if it has one, is included.
func NewRunReport(runID string, cfg config.Config, res trspo.Result) (RunReport, error) {
	w, err := workload.Lookup(cfg.Workload, cfg.Seed)
	if err != nil {
		return RunReport{}, err
	}
	rep := RunReport{
		RunID:          runID,
		Workload:       w.Name,
		Strategy:       cfg.Strategy,
		Schedule:       cfg.Schedule,
		Mode:           cfg.Mode,
		DomainSize:     cfg.DomainSize,
		Workers:        cfg.Workers,
		ChunkSize:      cfg.ChunkSize,
		Total:          res.Total,
		Count:          res.Count,
		Average:        res.Average(),
		ElapsedSeconds: res.ElapsedSeconds(),
	}
	if w.Estimate != nil {
		estimate := w.Estimate(res)
		rep.Estimate = &estimate
	}
	return rep, nil
}

// RenderReporter is a Reporter that renders a RunReport.
type RenderReporter struct {
	renderer *Renderer
	runID    string
}

// NewReporter returns a Reporter that renders with r.
func NewReporter(r *Renderer, runID string) *RenderReporter {
	return &RenderReporter{renderer: r, runID: runID}
}

// Report implements the Report method of the Reporter interface.
func (rep *RenderReporter) Report(cfg config.Config, res trspo.Result) error {
	run, err := NewRunReport(rep.runID, cfg, res)
	if err != nil {
		return err
	}
	if err := rep.renderer.Render(run); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
