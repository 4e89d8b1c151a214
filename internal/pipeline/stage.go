// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/roadbed/internal/models"
)

// Stage is one provisioning step. Run must be safe to repeat on a host where
// it already succeeded.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Step pairs a stage with the state it reaches on success.
type Step struct {
	Stage   Stage
	Reaches State
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context) error
}

// Name returns the stage name.
func (f StageFunc) Name() string { return f.StageName }

// Run calls Fn.
func (f StageFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// ErrUnknownStage is returned when Options.From names no stage.
var ErrUnknownStage = errors.New("unknown stage")

// StageError reports the stage that halted a run.
type StageError struct {
	// Stage is the failing stage name.
	Stage string
	// State is the last state reached before the failure.
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind classifies the underlying failure.
func (e *StageError) Kind() models.Kind {
	return models.KindOf(e.Err)
}
