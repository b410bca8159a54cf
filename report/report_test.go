package report

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/config"
)

func TestReporter_Report(t *testing.T) {
	cfg := config.Default()
	cfg.Workload = "pi"
	cfg.DomainSize = 1000

	var buf bytes.Buffer
	rep := NewReporter(NewRendererWithWriter(FormatJSON, true, &buf), "run-42")
	res := trspo.Result{Total: 785, Count: 1000, Elapsed: 250 * time.Millisecond}
	if err := rep.Report(cfg, res); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	var got RunReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-42" || got.Workload != "pi" || got.Count != 1000 {
		t.Errorf("report = %+v", got)
	}
	if got.ElapsedSeconds != 0.25 || got.Average != 0.785 {
		t.Errorf("elapsed = %v, average = %v", got.ElapsedSeconds, got.Average)
	}
	if got.Estimate == nil || math.Abs(*got.Estimate-3.14) > 1e-9 {
		t.Errorf("estimate = %v, want 3.14", got.Estimate)
	}
}

func TestReporter_NoEstimate(t *testing.T) {
	report, err := NewRunReport("r", config.Default(), trspo.Result{Total: 10, Count: 4})
	if err != nil {
		t.Fatal(err)
	}
	if report.Estimate != nil {
		t.Errorf("collatz should have no estimate, got %v", *report.Estimate)
	}
	if report.Average != 2.5 {
		t.Errorf("average = %v", report.Average)
	}
}

func TestReporter_UnknownWorkload(t *testing.T) {
	cfg := config.Default()
	cfg.Workload = "nope"
	var buf bytes.Buffer
	if err := NewReporter(NewRendererWithWriter(FormatJSON, true, &buf), "r").Report(cfg, trspo.Result{}); err == nil {
		t.Error("expected an error for an unknown workload")
	}
}
