// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// Options control a single run.
type Options struct {
	// From names the stage to start at; empty runs every stage.
	From string
	// RunID overrides the generated run identifier.
	RunID string
}

// Pipeline is an ordered, validated list of steps.
type Pipeline struct {
	steps   []Step
	journal Journal
	now     func() time.Time
}

// New validates steps and builds a Pipeline. Steps must have unique names and
// strictly increasing target states. A nil journal keeps records in memory.
func New(steps []Step, journal Journal) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, errors.New("pipeline: no steps")
	}

	seen := make(map[string]bool, len(steps))
	prev := StateNotStarted
	for i, s := range steps {
		if s.Stage == nil {
			return nil, fmt.Errorf("pipeline: step %d has no stage", i)
		}
		name := s.Stage.Name()
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("pipeline: duplicate stage %q", name)
		}
		seen[strings.ToLower(name)] = true
		if s.Reaches <= prev {
			return nil, fmt.Errorf("pipeline: stage %q reaches %s, which does not follow %s", name, s.Reaches, prev)
		}
		prev = s.Reaches
	}

	if journal == nil {
		journal = NewInMemoryJournal()
	}

	return &Pipeline{
		steps:   append([]Step(nil), steps...),
		journal: journal,
		now:     time.Now,
	}, nil
}

// StageNames returns the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Stage.Name()
	}
	return names
}

// indexOf resolves a stage name case-insensitively.
func (p *Pipeline) indexOf(name string) (int, error) {
	for i, s := range p.steps {
		if strings.EqualFold(s.Stage.Name(), name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q (valid: %s)", ErrUnknownStage, name, strings.Join(p.StageNames(), ", "))
}

// Run executes the steps in order and returns the run record. On failure the
// error is a *StageError and the record names the failing stage.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunRecord, error) {
	start := 0
	if opts.From != "" {
		idx, err := p.indexOf(opts.From)
		if err != nil {
			return nil, err
		}
		start = idx
	}

	runID := opts.RunID
	if runID == "" {
		runID = logging.GenerateRunID()
	}
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.Ctx(ctx)

	p.reportPrevious(ctx)

	rec := &RunRecord{
		RunID:     runID,
		StartedAt: p.now(),
		State:     StateNotStarted,
		Stages:    make([]StageResult, 0, len(p.steps)),
	}
	logger.Info().Int("stages", len(p.steps)-start).Str("from", p.steps[start].Stage.Name()).Msg("Provisioning run started")

	for i, step := range p.steps {
		name := step.Stage.Name()

		if i < start {
			rec.Stages = append(rec.Stages, StageResult{Stage: name, Status: StatusSkipped, StartedAt: p.now()})
			rec.State = step.Reaches
			metrics.RecordStage(name, metrics.OutcomeSkipped, "", 0)
			logger.Info().Str("stage", name).Msg("Stage skipped")
			continue
		}

		if err := ctx.Err(); err != nil {
			return p.fail(ctx, rec, name, p.now(), err)
		}

		stageCtx := logging.ContextWithStage(ctx, name)
		stageLog := logging.Ctx(stageCtx)
		stageLog.Info().Msg("Stage started")

		began := p.now()
		err := step.Stage.Run(stageCtx)
		if err != nil {
			return p.fail(ctx, rec, name, began, err)
		}

		elapsed := p.now().Sub(began)
		rec.Stages = append(rec.Stages, StageResult{Stage: name, Status: StatusSucceeded, StartedAt: began, Duration: elapsed})
		rec.State = step.Reaches
		metrics.RecordStage(name, metrics.OutcomeSucceeded, "", elapsed)
		metrics.SetPipelineState(int(rec.State), rec.State == StateVerified)
		stageLog.Info().Dur("duration", elapsed).Str("state", rec.State.String()).Msg("Stage succeeded")

		p.save(ctx, rec)
	}

	rec.FinishedAt = p.now()
	p.save(ctx, rec)
	logger.Info().Str("state", rec.State.String()).Dur("duration", rec.Duration()).Msg("Provisioning run finished")
	return rec, nil
}

// fail records a stage failure, saves the journal and builds the StageError.
func (p *Pipeline) fail(ctx context.Context, rec *RunRecord, stage string, began time.Time, cause error) (*RunRecord, error) {
	elapsed := p.now().Sub(began)
	kind := models.KindOf(cause)

	rec.Stages = append(rec.Stages, StageResult{
		Stage:     stage,
		Status:    StatusFailed,
		StartedAt: began,
		Duration:  elapsed,
		Error:     cause.Error(),
		Kind:      kind.String(),
	})
	rec.FailedStage = stage
	rec.FinishedAt = p.now()

	metrics.RecordStage(stage, metrics.OutcomeFailed, kind.String(), elapsed)
	metrics.SetPipelineState(int(rec.State), false)
	p.save(ctx, rec)

	logging.Ctx(ctx).Error().
		Err(cause).
		Str("stage", stage).
		Str("kind", kind.String()).
		Str("state", rec.State.String()).
		Msg("Stage failed, halting run")

	return rec, &StageError{Stage: stage, State: rec.State, Err: cause}
}

// save persists rec. Journal failures are logged and never halt a run.
func (p *Pipeline) save(ctx context.Context, rec *RunRecord) {
	if err := p.journal.Save(context.WithoutCancel(ctx), rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to save run journal")
	}
}

// reportPrevious logs where the previous run stopped if it failed.
func (p *Pipeline) reportPrevious(ctx context.Context) {
	prev, err := p.journal.Load(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to load previous run journal")
		return
	}
	if prev == nil {
		return
	}

	event := logging.Ctx(ctx).Info()
	if prev.Failed() || !prev.Finished() {
		event = logging.Ctx(ctx).Warn()
	}
	event.
		Str("previous_run", prev.RunID).
		Str("previous_state", prev.State.String()).
		Str("previous_failed_stage", prev.FailedStage).
		Bool("previous_finished", prev.Finished()).
		Msg("Previous provisioning run")
}

// LastRun returns the journal's most recent record.
func (p *Pipeline) LastRun(ctx context.Context) (*RunRecord, error) {
	return p.journal.Load(ctx)
}
