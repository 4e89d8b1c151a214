// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package models

// Routing graph tables as created by osm2pgrouting.
const (
	EdgeTable   = "ways"
	VertexTable = "ways_vertices_pgr"
)

// Edge table columns.
const (
	ColEdgeID           = "gid"
	ColSource           = "source"
	ColTarget           = "target"
	ColLength           = "length_m"
	ColSpeedForward     = "maxspeed_forward"
	ColSpeedBackward    = "maxspeed_backward"
	ColGeometry         = "the_geom"
	ColCostTime         = "cost_time"
	ColReverseCostTime  = "reverse_cost_time"
	ColVertexID         = "id"
	ColVertexGeometry   = "the_geom"
	RequiredExtPostGIS  = "postgis"
	RequiredExtRouting  = "pgrouting"
	MaintenanceDatabase = "postgres"
)

// EdgeRecord is a row of the ways table.
// CostTime and ReverseCostTime are nil until the cost annotator has run.
type EdgeRecord struct {
	GID              int64    `json:"gid"`
	Source           int64    `json:"source"`
	Target           int64    `json:"target"`
	LengthM          float64  `json:"length_m"`
	MaxSpeedForward  float64  `json:"maxspeed_forward"`
	MaxSpeedBackward float64  `json:"maxspeed_backward"`
	CostTime         *float64 `json:"cost_time,omitempty"`
	ReverseCostTime  *float64 `json:"reverse_cost_time,omitempty"`
}

// VertexRecord is a row of the ways_vertices_pgr table.
type VertexRecord struct {
	ID  int64   `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}
