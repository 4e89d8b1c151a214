// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadbed_stage_duration_seconds",
			Help:    "Duration of provisioning stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 14), // 0.5s .. ~68m
		},
		[]string{"stage"},
	)

	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadbed_stage_runs_total",
			Help: "Total number of stage executions by outcome",
		},
		[]string{"stage", "outcome", "kind"}, // kind is empty unless outcome is failed
	)

	PipelineState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadbed_pipeline_state",
			Help: "Ordinal of the last pipeline state reached (0 = NotStarted, 8 = Verified)",
		},
	)

	PipelineLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadbed_pipeline_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last run that reached Verified",
		},
	)

	// External Command Metrics
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadbed_command_duration_seconds",
			Help:    "Duration of external commands in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 10), // 50ms .. ~3.6h
		},
		[]string{"command"},
	)

	CommandFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadbed_command_failures_total",
			Help: "Total number of external commands that exited unsuccessfully",
		},
		[]string{"command"},
	)

	// Database Metrics
	ReadinessAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadbed_db_readiness_attempts_total",
			Help: "Total number of database readiness probes",
		},
		[]string{"result"}, // "ready", "unavailable"
	)

	// Dataset Metrics
	DownloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadbed_dataset_download_bytes_total",
			Help: "Total bytes of base extract downloaded",
		},
	)

	// Region Metrics
	RegionElements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadbed_region_elements_total",
			Help: "Total OSM elements written to the region extract by the native extractor",
		},
		[]string{"type"}, // "node", "way", "relation"
	)

	// Cost Metrics
	CostRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roadbed_cost_rows",
			Help: "Edge rows after cost annotation by state",
		},
		[]string{"state"}, // "annotated", "null"
	)

	// Graph Health Metrics
	GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadbed_graph_edges",
			Help: "Number of rows in the edge table at last verification",
		},
	)

	GraphVertices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadbed_graph_vertices",
			Help: "Number of rows in the vertex table at last verification",
		},
	)
)

// RecordStage records one stage execution.
func RecordStage(stage, outcome, kind string, duration time.Duration) {
	if outcome != OutcomeSkipped {
		StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	}
	StageRuns.WithLabelValues(stage, outcome, kind).Inc()
}

// SetPipelineState records the ordinal of the state just reached.
func SetPipelineState(ordinal int, verified bool) {
	PipelineState.Set(float64(ordinal))
	if verified {
		PipelineLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordCommand records an external command execution.
func RecordCommand(command string, duration time.Duration, err error) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	if err != nil {
		CommandFailures.WithLabelValues(command).Inc()
	}
}

// RecordReadinessAttempt records one readiness probe.
func RecordReadinessAttempt(ready bool) {
	if ready {
		ReadinessAttempts.WithLabelValues("ready").Inc()
		return
	}
	ReadinessAttempts.WithLabelValues("unavailable").Inc()
}

// RecordDownloadBytes adds n downloaded bytes.
func RecordDownloadBytes(n int64) {
	if n > 0 {
		DownloadBytes.Add(float64(n))
	}
}

// RecordRegionElements adds the element counts written by the native extractor.
func RecordRegionElements(nodes, ways, relations int) {
	RegionElements.WithLabelValues("node").Add(float64(nodes))
	RegionElements.WithLabelValues("way").Add(float64(ways))
	RegionElements.WithLabelValues("relation").Add(float64(relations))
}

// RecordCostRows records annotated and null row counts.
func RecordCostRows(annotated, null int64) {
	CostRows.WithLabelValues("annotated").Set(float64(annotated))
	CostRows.WithLabelValues("null").Set(float64(null))
}

// UpdateGraphGauges records the verified table sizes.
func UpdateGraphGauges(edges, vertices int64) {
	GraphEdges.Set(float64(edges))
	GraphVertices.Set(float64(vertices))
}

// WriteTextfile writes every registered metric to path in text exposition format.
// The file is written atomically, so a textfile collector never sees a partial file.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(prometheus.DefaultGatherer, path)
}

// WriteTextfileFrom writes the metrics of g to path.
func WriteTextfileFrom(g prometheus.Gatherer, path string) error {
	if filepath.Ext(path) != ".prom" {
		return fmt.Errorf("metrics textfile %q must end in .prom", path)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
