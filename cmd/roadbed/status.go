// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func (a *app) newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last provisioning run from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, p, err := a.open()
			if err != nil {
				return err
			}
			defer closeProvisioner(p)

			rec, err := p.LastRun(cmd.Context())
			if err != nil {
				return fmt.Errorf("read run journal: %w", err)
			}
			if rec == nil {
				fmt.Fprintln(a.stdout, "No provisioning run recorded.")
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			return printRecord(a.stdout, rec)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}
