// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package health

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roadbed/internal/models"
)

const notInstalled = "(not installed)"

// WriteTable prints the report as an aligned two-column summary.
func WriteTable(w io.Writer, r *models.HealthReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	rows := [][2]string{
		{"Database", r.Database},
		{"PostGIS", orDefault(r.PostGISVersion, notInstalled)},
		{"pgRouting", orDefault(r.PgRoutingVersion, notInstalled)},
		{"Edges (" + models.EdgeTable + ")", strconv.FormatInt(r.EdgeCount, 10)},
		{"Vertices (" + models.VertexTable + ")", strconv.FormatInt(r.VertexCount, 10)},
		{"Checked", r.CheckedAt.Format(time.RFC3339)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(tw, "Warning\t%s\n", warning); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteJSON prints the report as indented JSON.
func WriteJSON(w io.Writer, r *models.HealthReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
