// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

//go:build integration

package testinfra

// GraphFixtureSQL builds a four-edge graph with the columns osm2pgrouting
// creates. Edge 3 has no forward speed, edge 4 a zero backward speed.
const GraphFixtureSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE EXTENSION IF NOT EXISTS pgrouting;

CREATE TABLE ways_vertices_pgr (
    id       bigint PRIMARY KEY,
    the_geom geometry(Point, 4326)
);

CREATE TABLE ways (
    gid               bigint PRIMARY KEY,
    source            bigint,
    target            bigint,
    length_m          double precision,
    maxspeed_forward  double precision,
    maxspeed_backward double precision,
    the_geom          geometry(LineString, 4326)
);

INSERT INTO ways_vertices_pgr (id, the_geom) VALUES
    (1, ST_SetSRID(ST_MakePoint(-80.50, 43.45), 4326)),
    (2, ST_SetSRID(ST_MakePoint(-80.49, 43.45), 4326)),
    (3, ST_SetSRID(ST_MakePoint(-80.49, 43.46), 4326));

INSERT INTO ways (gid, source, target, length_m, maxspeed_forward, maxspeed_backward, the_geom) VALUES
    (1, 1, 2, 1000, 50, 50,   ST_SetSRID(ST_MakeLine(ST_MakePoint(-80.50, 43.45), ST_MakePoint(-80.49, 43.45)), 4326)),
    (2, 2, 3, 1500, 90, 60,   ST_SetSRID(ST_MakeLine(ST_MakePoint(-80.49, 43.45), ST_MakePoint(-80.49, 43.46)), 4326)),
    (3, 3, 1, 2000, NULL, 40, ST_SetSRID(ST_MakeLine(ST_MakePoint(-80.49, 43.46), ST_MakePoint(-80.50, 43.45)), 4326)),
    (4, 1, 3, 500,  30, 0,    ST_SetSRID(ST_MakeLine(ST_MakePoint(-80.50, 43.45), ST_MakePoint(-80.49, 43.46)), 4326));
`

// DanglingEdgeSQL adds an edge whose target vertex does not exist.
const DanglingEdgeSQL = `
INSERT INTO ways (gid, source, target, length_m, maxspeed_forward, maxspeed_backward)
VALUES (99, 1, 999, 10, 50, 50);
`

// OSMFixture is a tiny OSM XML extract around Kitchener with one way inside
// the default bounding box and one far outside it.
const OSMFixture = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="fixture">
  <node id="1" lat="43.45" lon="-80.50" version="1" visible="true"/>
  <node id="2" lat="43.45" lon="-80.49" version="1" visible="true"/>
  <node id="3" lat="45.00" lon="-75.00" version="1" visible="true"/>
  <node id="4" lat="45.01" lon="-75.00" version="1" visible="true"/>
  <way id="10" version="1" visible="true">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11" version="1" visible="true">
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="highway" v="primary"/>
  </way>
</osm>
`
