// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/health"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/pipeline"
)

// printSuccess writes the connection details and the health summary.
func printSuccess(w io.Writer, cfg *config.Config, report *models.HealthReport) error {
	fmt.Fprintln(w, "Routing database ready.")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	db := cfg.Database
	for _, row := range [][2]string{
		{"Host", db.Host},
		{"Port", strconv.Itoa(db.Port)},
		{"Database", db.Name},
		{"User", db.AdminUser},
		{"Password", db.AdminPassword},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if report == nil {
		return nil
	}
	fmt.Fprintln(w)
	return health.WriteTable(w, report)
}

// printRecord writes a run record as a header and one row per stage.
func printRecord(w io.Writer, rec *pipeline.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	outcome := "succeeded"
	switch {
	case rec.Failed():
		outcome = "failed at " + rec.FailedStage
	case !rec.Finished():
		outcome = "did not finish"
	}

	fmt.Fprintf(tw, "Run\t%s\n", rec.RunID)
	fmt.Fprintf(tw, "Started\t%s\n", rec.StartedAt.Format(time.RFC3339))
	if rec.Finished() {
		fmt.Fprintf(tw, "Finished\t%s (%s)\n", rec.FinishedAt.Format(time.RFC3339), rec.Duration().Round(time.Second))
	}
	fmt.Fprintf(tw, "State\t%s\n", rec.State)
	fmt.Fprintf(tw, "Outcome\t%s\n", outcome)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION\tERROR")
	for _, s := range rec.Stages {
		errText := s.Error
		if s.Kind != "" {
			errText = "(" + s.Kind + ") " + errText
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Stage, s.Status, s.Duration.Round(time.Millisecond), errText)
	}
	return tw.Flush()
}
