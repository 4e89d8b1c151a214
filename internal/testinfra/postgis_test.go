// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/roadbed/internal/database"
	"github.com/tomtom215/roadbed/internal/health"
)

// TestPostGISContainer_Integration checks the image answers readiness and
// carries both extensions the stages require.
func TestPostGISContainer_Integration(t *testing.T) {
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := NewPostGISContainer(ctx, WithSeedSQL(GraphFixtureSQL))
	if err != nil {
		t.Fatalf("Failed to create PostGIS container: %v", err)
	}
	defer CleanupContainer(t, ctx, pg.Container)

	if err := database.WaitReady(ctx, database.PgxConnector{}, pg.Config, pg.Config.Readiness); err != nil {
		t.Fatalf("WaitReady() error = %v\nContainer logs:\n%s", err, ContainerLogs(ctx, pg.Container))
	}

	report, err := health.New(pg.Config, database.PgxConnector{}).Check(ctx)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.PostGISVersion == "" || report.PgRoutingVersion == "" {
		t.Errorf("versions = %q / %q, want both set", report.PostGISVersion, report.PgRoutingVersion)
	}
	if report.EdgeCount != 4 || report.VertexCount != 3 {
		t.Errorf("counts = %d/%d, want 4/3", report.EdgeCount, report.VertexCount)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", report.Warnings)
	}
}

// TestPostGISContainer_EmptyDatabase checks missing graph tables surface as
// warnings rather than errors.
func TestPostGISContainer_EmptyDatabase(t *testing.T) {
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := NewPostGISContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create PostGIS container: %v", err)
	}
	defer CleanupContainer(t, ctx, pg.Container)

	report, err := health.New(pg.Config, database.PgxConnector{}).Check(ctx)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Healthy() {
		t.Error("Healthy() = true for a database without a graph")
	}
	if len(report.Warnings) == 0 {
		t.Error("Warnings empty, want missing extension and table warnings")
	}
}
