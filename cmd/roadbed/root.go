// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/pipeline"
	"github.com/tomtom215/roadbed/internal/provision"
)

// app carries what every subcommand needs.
type app struct {
	configPath string
	deps       provision.Deps
	stdout     io.Writer
	stderr     io.Writer
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, deps provision.Deps) int {
	a := &app{deps: deps, stdout: stdout, stderr: stderr}

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "roadbed: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) newRootCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "roadbed",
		Short: "Provision a PostGIS/pgRouting routing database for a bounding box",
		Long: `Provision a routing database from OpenStreetMap data.

Stages run in order and the run halts at the first failure:
  PackageInstaller     ensure PostgreSQL, PostGIS, pgRouting and OSM tools
  DatasetFetcher       download the base extract unless present
  RegionExtractor      clip to the bounding box and convert to OSM XML
  DatabaseProvisioner  credential, service, readiness, database, extensions
  SchemaImporter       osm2pgrouting clean import and topology check
  IndexBuilder         endpoint and spatial indexes, ANALYZE
  CostAnnotator        cost_time and reverse_cost_time in seconds
  HealthVerifier       versions and graph size`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProvision(cmd.Context(), from)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: CONFIG_PATH, ./roadbed.yaml, /etc/roadbed/roadbed.yaml)")
	cmd.Flags().StringVar(&from, "from", "", "resume at the named stage, recording earlier stages as skipped")

	cmd.AddCommand(a.newStatusCmd(), a.newVerifyCmd())
	return cmd
}

// load reads and validates configuration and initializes logging from it.
func (a *app) load() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging.ToLogging())

	if path, err := config.ConfigFileInUse(a.configPath); err == nil {
		logging.Debug().Str("path", path).Msg("Configuration file loaded")
	}
	return cfg, nil
}

func (a *app) open() (*config.Config, *provision.Provisioner, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, nil, err
	}
	p, err := provision.New(cfg, a.deps)
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

func (a *app) runProvision(ctx context.Context, from string) error {
	cfg, p, err := a.open()
	if err != nil {
		return err
	}
	defer closeProvisioner(p)
	defer writeMetrics(cfg)

	_, report, err := p.Run(ctx, pipeline.Options{From: from})
	if err != nil {
		return err
	}
	return printSuccess(a.stdout, cfg, report)
}

func closeProvisioner(p *provision.Provisioner) {
	if err := p.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close provisioner")
	}
}

// writeMetrics exports the textfile when configured. Export failures are logged only.
func writeMetrics(cfg *config.Config) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logging.Warn().Err(err).Str("path", cfg.Metrics.TextfilePath).Msg("Failed to write metrics textfile")
		return
	}
	logging.Debug().Str("path", cfg.Metrics.TextfilePath).Msg("Metrics textfile written")
}
