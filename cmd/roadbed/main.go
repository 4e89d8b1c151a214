// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package main is the roadbed command.
//
// Roadbed turns a bare Debian/Ubuntu host into a PostgreSQL server holding a
// routable road graph for one bounding box. It installs packages, downloads a
// country extract, clips it to the region, provisions PostgreSQL with PostGIS
// and pgRouting, imports the graph with osm2pgrouting, builds indexes,
// annotates travel-time costs and verifies the result.
//
// # Usage
//
//	roadbed                          run every stage
//	roadbed --from SchemaImporter    resume at a stage
//	roadbed --config site.yaml       use an explicit config file
//	roadbed status                   show the last run
//	roadbed verify [--json]          run the health check only
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (DB_ADMIN_PASSWORD, REGION_BBOX, ...)
//   - Config file (--config, CONFIG_PATH, roadbed.yaml, /etc/roadbed/roadbed.yaml)
//   - Built-in defaults
//
// The admin password has no default and must be supplied.
//
// # Exit Status
//
// 0 on success. On failure a single line
//
//	roadbed: stage <name> failed (<kind>): <cause>
//
// is written to stderr and the exit status is 1.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the run: the running external command is killed,
// a download or readiness poll stops, and the journal records the failure.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/roadbed/internal/provision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, provision.Deps{})
	stop()
	os.Exit(code)
}
