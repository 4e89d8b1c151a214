// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/roadbed/internal/health"
)

func (a *app) newVerifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the health check against the routing database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, p, err := a.open()
			if err != nil {
				return err
			}
			defer closeProvisioner(p)
			defer writeMetrics(cfg)

			report, err := p.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return health.WriteJSON(a.stdout, report)
			}
			return health.WriteTable(a.stdout, report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
