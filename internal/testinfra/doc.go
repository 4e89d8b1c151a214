// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to run a real PostgreSQL server carrying
// PostGIS and pgRouting, so the database stages can be exercised against the
// same SQL engine they meet in production.
//
// # PostGIS Container
//
// The PostGISContainer starts a pgRouting image and can seed a routing graph
// shaped like an osm2pgrouting import:
//
//	func TestAnnotate(t *testing.T) {
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostGISContainer(ctx,
//	        testinfra.WithSeedSQL(testinfra.GraphFixtureSQL),
//	    )
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg.Container)
//
//	    stage := cost.New(pg.Config, database.PgxConnector{})
//	    if err := stage.Run(ctx); err != nil {
//	        t.Fatal(err)
//	    }
//	}
//
// # Extract Server
//
// ExtractServer serves an OSM extract over HTTP and records every request, for
// exercising the dataset fetcher without reaching a real mirror.
//
// # CI Considerations
//
// These tests require Docker and the integration build tag:
//
//	go test -tags integration ./...
//
// Tests are skipped gracefully if Docker is unavailable. First run may need to
// download the container image.
package testinfra
