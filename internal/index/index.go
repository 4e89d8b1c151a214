// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package index builds the routing graph indexes and refreshes planner statistics.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
)

// StageName is the pipeline name of this stage.
const StageName = "IndexBuilder"

// Definition is one index on the graph tables.
type Definition struct {
	Name   string
	Table  string
	Column string
	// Method is the access method; empty means btree.
	Method string
}

// SQL returns the idempotent CREATE INDEX statement.
func (d Definition) SQL() string {
	using := ""
	if d.Method != "" {
		using = " USING " + d.Method
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s%s (%s)",
		database.QuoteIdent(d.Name), database.QuoteIdent(d.Table), using, database.QuoteIdent(d.Column))
}

// Definitions are the indexes pgRouting queries depend on: endpoint lookups on
// the edge table and spatial lookups on both tables.
var Definitions = []Definition{
	{Name: "ways_source_idx", Table: models.EdgeTable, Column: models.ColSource},
	{Name: "ways_target_idx", Table: models.EdgeTable, Column: models.ColTarget},
	{Name: "ways_vertices_pgr_the_geom_idx", Table: models.VertexTable, Column: models.ColVertexGeometry, Method: "GIST"},
	{Name: "ways_the_geom_idx", Table: models.EdgeTable, Column: models.ColGeometry, Method: "GIST"},
}

// AnalyzedTables have their statistics refreshed after indexing.
var AnalyzedTables = []string{models.EdgeTable, models.VertexTable}

// Builder is the IndexBuilder stage.
type Builder struct {
	db        config.DatabaseConfig
	connector database.Connector
}

// New creates a Builder.
func New(db config.DatabaseConfig, connector database.Connector) *Builder {
	return &Builder{db: db, connector: connector}
}

// Name implements pipeline.Stage.
func (b *Builder) Name() string { return StageName }

// Run creates each missing index and analyzes the graph tables.
func (b *Builder) Run(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	conn, err := database.Open(ctx, b.connector, b.db, b.db.Name)
	if err != nil {
		return models.EnvironmentError("connect to "+b.db.Name, err)
	}
	defer database.CloseQuietly(ctx, conn)

	for _, def := range Definitions {
		start := time.Now()
		if _, err := conn.Exec(ctx, def.SQL()); err != nil {
			if database.SQLState(err) == database.SQLStateUndefinedTable {
				return models.DataError("create index "+def.Name, err)
			}
			return models.EnvironmentError("create index "+def.Name, err)
		}
		logger.Info().Str("index", def.Name).Dur("duration", time.Since(start)).Msg("Index ready")
	}

	for _, table := range AnalyzedTables {
		if _, err := conn.Exec(ctx, "ANALYZE "+database.QuoteIdent(table)); err != nil {
			return models.EnvironmentError("analyze "+table, err)
		}
	}
	logger.Info().Strs("tables", AnalyzedTables).Msg("Planner statistics refreshed")
	return nil
}
