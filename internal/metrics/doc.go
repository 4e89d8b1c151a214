// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package metrics defines the Prometheus instrumentation for a provisioning run.
//
// All collectors are package-level promauto globals registered with the default
// registry. Stages call the Record* helpers rather than touching collectors
// directly. Because a run is a short-lived process, metrics are not scraped:
// WriteTextfile dumps the default gatherer in text exposition format for the
// node_exporter textfile collector.
//
// Metric families:
//   - roadbed_stage_duration_seconds{stage}
//   - roadbed_stage_runs_total{stage,outcome,kind}
//   - roadbed_pipeline_state
//   - roadbed_pipeline_last_success_timestamp_seconds
//   - roadbed_command_duration_seconds{command}, roadbed_command_failures_total{command}
//   - roadbed_db_readiness_attempts_total{result}
//   - roadbed_dataset_download_bytes_total
//   - roadbed_region_elements_total{type}
//   - roadbed_cost_rows{state}
//   - roadbed_graph_edges, roadbed_graph_vertices
package metrics
