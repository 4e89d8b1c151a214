// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import "time"

// Status is the outcome of one stage within a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StageResult is the journal entry for one stage.
type StageResult struct {
	Stage     string        `json:"stage"`
	Status    Status        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
	Kind      string        `json:"kind,omitempty"`
}

// RunRecord describes one pipeline run.
type RunRecord struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	State       State         `json:"state"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Stages      []StageResult `json:"stages"`
}

// Failed reports whether the run halted on a stage failure.
func (r *RunRecord) Failed() bool {
	return r.FailedStage != ""
}

// Finished reports whether the run ended, successfully or not.
func (r *RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration is the wall time of a finished run.
func (r *RunRecord) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// clone returns a deep copy.
func (r *RunRecord) clone() *RunRecord {
	c := *r
	c.Stages = append([]StageResult(nil), r.Stages...)
	return &c
}
