// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package health reports on the provisioned routing database with a single
// diagnostic query. It never fails on what it finds; empty tables and missing
// extensions become warnings on the report.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// StageName is the pipeline name of this stage.
const StageName = "HealthVerifier"

// reportSQL tolerates missing extensions and tables so the report itself
// never errors on an incomplete database.
const reportSQL = `
SELECT
  current_database(),
  (SELECT extversion FROM pg_extension WHERE extname = 'postgis'),
  (SELECT extversion FROM pg_extension WHERE extname = 'pgrouting'),
  CASE WHEN to_regclass('ways') IS NULL THEN NULL
       ELSE (xpath('/row/n/text()', query_to_xml('SELECT count(*) AS n FROM ways', false, true, '')))[1]::text::bigint
  END,
  CASE WHEN to_regclass('ways_vertices_pgr') IS NULL THEN NULL
       ELSE (xpath('/row/n/text()', query_to_xml('SELECT count(*) AS n FROM ways_vertices_pgr', false, true, '')))[1]::text::bigint
  END`

// Verifier is the HealthVerifier stage.
type Verifier struct {
	db        config.DatabaseConfig
	connector database.Connector
	now       func() time.Time

	last *models.HealthReport
}

// New creates a Verifier.
func New(db config.DatabaseConfig, connector database.Connector) *Verifier {
	return &Verifier{db: db, connector: connector, now: time.Now}
}

// Name implements pipeline.Stage.
func (v *Verifier) Name() string { return StageName }

// Run builds the report, logs it and keeps it for Last.
func (v *Verifier) Run(ctx context.Context) error {
	report, err := v.Check(ctx)
	if err != nil {
		return err
	}
	v.last = report
	return nil
}

// Last returns the report from the most recent successful Run, or nil.
func (v *Verifier) Last() *models.HealthReport {
	return v.last
}

// Check runs the diagnostic query. Only a failure to connect or query is an error.
func (v *Verifier) Check(ctx context.Context) (*models.HealthReport, error) {
	conn, err := database.Open(ctx, v.connector, v.db, v.db.Name)
	if err != nil {
		return nil, models.EnvironmentError("connect to "+v.db.Name, err)
	}
	defer database.CloseQuietly(ctx, conn)

	var (
		name             string
		postgis, routing *string
		edges, vertices  *int64
	)
	if err := conn.QueryRow(ctx, reportSQL).Scan(&name, &postgis, &routing, &edges, &vertices); err != nil {
		return nil, models.EnvironmentError("query health report", err)
	}

	report := &models.HealthReport{
		Database:         name,
		PostGISVersion:   deref(postgis),
		PgRoutingVersion: deref(routing),
		CheckedAt:        v.now().UTC(),
	}
	if edges != nil {
		report.EdgeCount = *edges
	}
	if vertices != nil {
		report.VertexCount = *vertices
	}
	report.Warnings = warnings(report, edges == nil, vertices == nil)

	metrics.UpdateGraphGauges(report.EdgeCount, report.VertexCount)
	logReport(ctx, report)
	return report, nil
}

func warnings(r *models.HealthReport, noEdgeTable, noVertexTable bool) []string {
	var out []string
	if r.PostGISVersion == "" {
		out = append(out, fmt.Sprintf("extension %s is not installed", models.RequiredExtPostGIS))
	}
	if r.PgRoutingVersion == "" {
		out = append(out, fmt.Sprintf("extension %s is not installed", models.RequiredExtRouting))
	}
	switch {
	case noEdgeTable:
		out = append(out, fmt.Sprintf("table %s does not exist", models.EdgeTable))
	case r.EdgeCount == 0:
		out = append(out, fmt.Sprintf("table %s is empty", models.EdgeTable))
	}
	switch {
	case noVertexTable:
		out = append(out, fmt.Sprintf("table %s does not exist", models.VertexTable))
	case r.VertexCount == 0:
		out = append(out, fmt.Sprintf("table %s is empty", models.VertexTable))
	}
	return out
}

func logReport(ctx context.Context, r *models.HealthReport) {
	logger := logging.Ctx(ctx)
	logger.Info().
		Str("database", r.Database).
		Str("postgis", r.PostGISVersion).
		Str("pgrouting", r.PgRoutingVersion).
		Int64("edges", r.EdgeCount).
		Int64("vertices", r.VertexCount).
		Msg("Routing database health")
	for _, w := range r.Warnings {
		logger.Warn().Msg(w)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
