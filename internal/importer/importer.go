// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package importer loads the region extract into the routing schema with
// osm2pgrouting.
//
// The import is destructive: --clean drops and recreates the ways and
// ways_vertices_pgr tables on every run. There is no rollback.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/shell"
)

// StageName is the pipeline name of this stage.
const StageName = "SchemaImporter"

// danglingEdgesSQL counts edges whose endpoints are missing from the vertex table.
const danglingEdgesSQL = `
SELECT count(*)
FROM ways w
WHERE NOT EXISTS (SELECT 1 FROM ways_vertices_pgr v WHERE v.id = w.source)
   OR NOT EXISTS (SELECT 1 FROM ways_vertices_pgr v WHERE v.id = w.target)`

// Importer is the SchemaImporter stage.
type Importer struct {
	cfg       config.ImportConfig
	db        config.DatabaseConfig
	input     string
	runner    shell.Runner
	connector database.Connector
}

// New creates an Importer reading the region extract at input.
func New(cfg config.ImportConfig, db config.DatabaseConfig, input string, runner shell.Runner, connector database.Connector) *Importer {
	return &Importer{cfg: cfg, db: db, input: input, runner: runner, connector: connector}
}

// Name implements pipeline.Stage.
func (i *Importer) Name() string { return StageName }

// Run checks its inputs, runs osm2pgrouting and verifies the resulting topology.
func (i *Importer) Run(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	if _, err := os.Stat(i.input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.EnvironmentError("open region extract", fmt.Errorf("%s does not exist", i.input))
		}
		return models.EnvironmentError("open region extract", err)
	}

	profile, err := LoadMapConfig(i.cfg.MapConfig)
	if err != nil {
		return err
	}
	logger.Info().
		Str("mapconfig", i.cfg.MapConfig).
		Int("tag_names", len(profile.TagNames)).
		Int("classes", profile.ClassCount()).
		Msg("Mapping profile loaded")

	if _, err := i.runner.Run(ctx, i.command()); err != nil {
		return models.EnvironmentError("import region extract", err)
	}
	logger.Info().Str("database", i.db.Name).Msg("Region imported")

	if !i.cfg.VerifyTopology {
		logger.Debug().Msg("Topology check disabled")
		return nil
	}
	return i.verifyTopology(ctx)
}

// command builds the osm2pgrouting invocation. The password travels in
// PGPASSWORD, which libpq reads when no password is given on the command line,
// so it never appears in the process table. It is also registered as a secret
// so it is masked in logs and errors.
func (i *Importer) command() shell.Command {
	binary := i.cfg.Binary
	if binary == "" {
		binary = "osm2pgrouting"
	}
	return shell.Command{
		Name: binary,
		Args: []string{
			"--f", i.input,
			"--conf", i.cfg.MapConfig,
			"--dbname", i.db.Name,
			"--username", i.db.AdminUser,
			"--host", i.db.Host,
			"--port", strconv.Itoa(i.db.Port),
			"--clean",
		},
		Env:     []string{"PGPASSWORD=" + i.db.AdminPassword},
		Secrets: []string{i.db.AdminPassword},
	}
}

// verifyTopology fails the stage when any edge references a missing vertex.
func (i *Importer) verifyTopology(ctx context.Context) error {
	conn, err := database.Open(ctx, i.connector, i.db, i.db.Name)
	if err != nil {
		return models.EnvironmentError("connect to "+i.db.Name, err)
	}
	defer database.CloseQuietly(ctx, conn)

	var dangling int64
	if err := conn.QueryRow(ctx, danglingEdgesSQL).Scan(&dangling); err != nil {
		if database.SQLState(err) == database.SQLStateUndefinedTable {
			return models.DataError("verify topology", fmt.Errorf("routing tables missing after import: %w", err))
		}
		return models.EnvironmentError("verify topology", err)
	}
	if dangling > 0 {
		return models.DataError("verify topology",
			fmt.Errorf("%d dangling edges reference vertices missing from %s", dangling, models.VertexTable))
	}

	logging.Ctx(ctx).Info().Msg("Topology verified, every edge endpoint has a vertex")
	return nil
}
