// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStage(t *testing.T) {
	tests := []struct {
		name    string
		stage   string
		outcome string
		kind    string
	}{
		{"succeeded", "IndexBuilder", OutcomeSucceeded, ""},
		{"failed", "SchemaImporter", OutcomeFailed, "data"},
		{"skipped", "PackageInstaller", OutcomeSkipped, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := StageRuns.WithLabelValues(tt.stage, tt.outcome, tt.kind)
			before := testutil.ToFloat64(counter)

			RecordStage(tt.stage, tt.outcome, tt.kind, 3*time.Second)

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("StageRuns = %v, want %v", got, before+1)
			}
		})
	}
}

func TestSetPipelineState(t *testing.T) {
	SetPipelineState(3, false)
	if got := testutil.ToFloat64(PipelineState); got != 3 {
		t.Errorf("PipelineState = %v, want 3", got)
	}

	SetPipelineState(8, true)
	if got := testutil.ToFloat64(PipelineState); got != 8 {
		t.Errorf("PipelineState = %v, want 8", got)
	}
	if got := testutil.ToFloat64(PipelineLastSuccess); got <= 0 {
		t.Errorf("PipelineLastSuccess = %v, want > 0", got)
	}
}

func TestRecordCommand(t *testing.T) {
	failures := CommandFailures.WithLabelValues("osmium")
	before := testutil.ToFloat64(failures)

	RecordCommand("osmium", time.Second, nil)
	if got := testutil.ToFloat64(failures); got != before {
		t.Errorf("CommandFailures after success = %v, want %v", got, before)
	}

	RecordCommand("osmium", time.Second, errors.New("exit status 1"))
	if got := testutil.ToFloat64(failures); got != before+1 {
		t.Errorf("CommandFailures after failure = %v, want %v", got, before+1)
	}
}

func TestRecordReadinessAttempt(t *testing.T) {
	ready := ReadinessAttempts.WithLabelValues("ready")
	unavailable := ReadinessAttempts.WithLabelValues("unavailable")
	r0, u0 := testutil.ToFloat64(ready), testutil.ToFloat64(unavailable)

	RecordReadinessAttempt(false)
	RecordReadinessAttempt(false)
	RecordReadinessAttempt(true)

	if got := testutil.ToFloat64(unavailable); got != u0+2 {
		t.Errorf("unavailable = %v, want %v", got, u0+2)
	}
	if got := testutil.ToFloat64(ready); got != r0+1 {
		t.Errorf("ready = %v, want %v", got, r0+1)
	}
}

func TestRecordDownloadBytes(t *testing.T) {
	before := testutil.ToFloat64(DownloadBytes)
	RecordDownloadBytes(1024)
	RecordDownloadBytes(0)
	RecordDownloadBytes(-5)
	if got := testutil.ToFloat64(DownloadBytes); got != before+1024 {
		t.Errorf("DownloadBytes = %v, want %v", got, before+1024)
	}
}

func TestRecordRegionElements(t *testing.T) {
	way := RegionElements.WithLabelValues("way")
	before := testutil.ToFloat64(way)
	RecordRegionElements(10, 3, 1)
	if got := testutil.ToFloat64(way); got != before+3 {
		t.Errorf("way elements = %v, want %v", got, before+3)
	}
}

func TestGauges(t *testing.T) {
	RecordCostRows(120, 4)
	if got := testutil.ToFloat64(CostRows.WithLabelValues("null")); got != 4 {
		t.Errorf("CostRows{null} = %v, want 4", got)
	}

	UpdateGraphGauges(500, 410)
	if got := testutil.ToFloat64(GraphEdges); got != 500 {
		t.Errorf("GraphEdges = %v, want 500", got)
	}
	if got := testutil.ToFloat64(GraphVertices); got != 410 {
		t.Errorf("GraphVertices = %v, want 410", got)
	}
}

func TestWriteTextfileFrom(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "roadbed_test_gauge", Help: "test"})
	reg.MustRegister(g)
	g.Set(42)

	path := filepath.Join(t.TempDir(), "roadbed.prom")
	if err := WriteTextfileFrom(reg, path); err != nil {
		t.Fatalf("WriteTextfileFrom() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "roadbed_test_gauge 42") {
		t.Errorf("textfile content = %q", data)
	}
}

func TestWriteTextfileRejectsExtension(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "metrics.txt"))
	if err == nil || !strings.Contains(err.Error(), ".prom") {
		t.Errorf("WriteTextfile() error = %v, want .prom extension error", err)
	}
}
