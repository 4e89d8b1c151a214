// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package models

import "time"

// HealthReport is the result of the terminal verification query.
// Warnings are informational; the verifier never fails on them.
type HealthReport struct {
	Database         string    `json:"database"`
	PostGISVersion   string    `json:"postgis_version"`
	PgRoutingVersion string    `json:"pgrouting_version"`
	EdgeCount        int64     `json:"edge_count"`
	VertexCount      int64     `json:"vertex_count"`
	CheckedAt        time.Time `json:"checked_at"`
	Warnings         []string  `json:"warnings,omitempty"`
}

// Healthy reports whether both graph tables are populated and both extensions are present.
func (r *HealthReport) Healthy() bool {
	return r.EdgeCount > 0 && r.VertexCount > 0 &&
		r.PostGISVersion != "" && r.PgRoutingVersion != ""
}
