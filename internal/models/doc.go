// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

/*
Package models defines the data structures shared by the Roadbed provisioning stages.

Key Components:

  - BoundingBox: The target region as west,south,east,north decimal degrees
  - EdgeRecord / VertexRecord: Rows of the routing graph tables produced by osm2pgrouting
  - HealthReport: Summary returned by the health verifier
  - Error / Kind: The provisioning error taxonomy (environment, data, transient, benign)

Graph Schema:

The routing tables follow the osm2pgrouting layout consumed by pgr_astar:

	ways               gid, source, target, length_m, maxspeed_forward,
	                   maxspeed_backward, the_geom, cost_time, reverse_cost_time
	ways_vertices_pgr  id, the_geom

Table and column names are exported as constants so every stage issues SQL against
the same identifiers.

Error Taxonomy:

Stages return *Error values carrying a Kind. The pipeline uses KindOf to report the
failure class in its single-line diagnostic:

	if err := stage.Run(ctx); err != nil {
	    fmt.Printf("failed (%s): %v\n", models.KindOf(err), err)
	}
*/
package models
