// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package provision assembles the eight stages from a validated Config into a
// pipeline with its run journal.
package provision

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/cost"
	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/dataset"
	"github.com/tomtom215/roadbed/internal/health"
	"github.com/tomtom215/roadbed/internal/importer"
	"github.com/tomtom215/roadbed/internal/index"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/packages"
	"github.com/tomtom215/roadbed/internal/pipeline"
	"github.com/tomtom215/roadbed/internal/region"
	"github.com/tomtom215/roadbed/internal/shell"
)

// Deps are the external effects the stages act through. Zero values select
// the production implementations.
type Deps struct {
	Runner     shell.Runner
	Connector  database.Connector
	HTTPClient *http.Client
}

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = shell.NewExecRunner()
	}
	if d.Connector == nil {
		d.Connector = database.PgxConnector{}
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{}
	}
	return d
}

// Provisioner owns a pipeline, its journal and the health verifier whose
// report the CLI prints.
type Provisioner struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	verifier *health.Verifier
	journal  pipeline.Journal
	closer   func() error
}

// New builds the pipeline. cfg must already be validated.
func New(cfg *config.Config, deps Deps) (*Provisioner, error) {
	deps = deps.withDefaults()

	journal, closer, err := OpenJournal(cfg.Pipeline.JournalPath)
	if err != nil {
		return nil, err
	}

	steps, verifier := Steps(cfg, deps)
	p, err := pipeline.New(steps, journal)
	if err != nil {
		_ = closer()
		return nil, err
	}

	return &Provisioner{
		cfg:      cfg,
		pipeline: p,
		verifier: verifier,
		journal:  journal,
		closer:   closer,
	}, nil
}

// Steps returns the stages in order with the state each reaches.
func Steps(cfg *config.Config, deps Deps) ([]pipeline.Step, *health.Verifier) {
	deps = deps.withDefaults()
	verifier := health.New(cfg.Database, deps.Connector)

	return []pipeline.Step{
		{Stage: packages.New(cfg.Packages, deps.Runner), Reaches: pipeline.StatePackagesInstalled},
		{Stage: dataset.New(cfg.Dataset, deps.HTTPClient), Reaches: pipeline.StateDatasetFetched},
		{Stage: region.New(cfg.Region, cfg.Dataset.Path, deps.Runner), Reaches: pipeline.StateRegionExtracted},
		{Stage: database.New(cfg.Database, deps.Runner, deps.Connector), Reaches: pipeline.StateDatabaseReady},
		{Stage: importer.New(cfg.Import, cfg.Database, cfg.Region.OutputPath, deps.Runner, deps.Connector), Reaches: pipeline.StateSchemaImported},
		{Stage: index.New(cfg.Database, deps.Connector), Reaches: pipeline.StateIndexesBuilt},
		{Stage: cost.New(cfg.Database, deps.Connector), Reaches: pipeline.StateCostsAnnotated},
		{Stage: verifier, Reaches: pipeline.StateVerified},
	}, verifier
}

// OpenJournal opens the badger journal at path, or an in-memory journal when
// path is empty. The returned func closes it.
func OpenJournal(path string) (pipeline.Journal, func() error, error) {
	if path == "" {
		return pipeline.NewInMemoryJournal(), func() error { return nil }, nil
	}
	j, err := pipeline.OpenBadgerJournal(path)
	if err != nil {
		return nil, nil, models.EnvironmentError("open run journal", err)
	}
	return j, j.Close, nil
}

// Run executes the pipeline. On success the health report is returned.
func (p *Provisioner) Run(ctx context.Context, opts pipeline.Options) (*pipeline.RunRecord, *models.HealthReport, error) {
	logging.Ctx(ctx).Info().
		Str("database", p.cfg.Database.String()).
		Str("bbox", p.cfg.Region.BBox).
		Str("backend", p.cfg.Region.Backend).
		Msg("Provisioning routing database")

	rec, err := p.pipeline.Run(ctx, opts)
	if err != nil {
		return rec, nil, err
	}
	return rec, p.verifier.Last(), nil
}

// StageNames returns the stage names in execution order.
func (p *Provisioner) StageNames() []string {
	return p.pipeline.StageNames()
}

// LastRun returns the previous run record, or nil.
func (p *Provisioner) LastRun(ctx context.Context) (*pipeline.RunRecord, error) {
	return p.pipeline.LastRun(ctx)
}

// Verify runs the health check on its own.
func (p *Provisioner) Verify(ctx context.Context) (*models.HealthReport, error) {
	return p.verifier.Check(ctx)
}

// Close releases the journal.
func (p *Provisioner) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer()
	p.closer = nil
	if err != nil {
		return fmt.Errorf("close run journal: %w", err)
	}
	return nil
}
