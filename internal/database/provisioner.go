// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package database

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/shell"
)

// StageName is the pipeline name of this stage.
const StageName = "DatabaseProvisioner"

// Provisioner is the DatabaseProvisioner stage.
type Provisioner struct {
	cfg       config.DatabaseConfig
	runner    shell.Runner
	connector Connector
	rand      io.Reader
}

// New creates a Provisioner.
func New(cfg config.DatabaseConfig, runner shell.Runner, connector Connector) *Provisioner {
	return &Provisioner{cfg: cfg, runner: runner, connector: connector, rand: rand.Reader}
}

// Name implements pipeline.Stage.
func (p *Provisioner) Name() string { return StageName }

// Run executes the provisioning sub-sequence in order, stopping at the first failure.
func (p *Provisioner) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"set credential", p.SetCredential},
		{"restart service", p.RestartService},
		{"wait for readiness", p.WaitReady},
		{"create database", p.CreateDatabase},
		{"install extensions", p.InstallExtensions},
	}

	for _, s := range steps {
		logging.Ctx(ctx).Debug().Str("step", s.name).Msg("Provisioning step")
		if err := s.fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SetCredential assigns the admin password via psql as the OS superuser.
func (p *Provisioner) SetCredential(ctx context.Context) error {
	verifier, err := ScramVerifier(p.cfg.AdminPassword, p.rand)
	if err != nil {
		return models.EnvironmentError("set credential", err)
	}

	sql := fmt.Sprintf("ALTER ROLE %s WITH PASSWORD '%s';\n", QuoteIdent(p.cfg.AdminUser), verifier)
	cmd := shell.Command{
		Name:    "sudo",
		Args:    []string{"-u", p.cfg.OSUser, "psql", "-v", "ON_ERROR_STOP=1", "-X", "-q", "-d", models.MaintenanceDatabase},
		Stdin:   strings.NewReader(sql),
		Secrets: []string{p.cfg.AdminPassword},
	}
	if _, err := p.runner.Run(ctx, cmd); err != nil {
		return models.EnvironmentError("set credential", err)
	}

	logging.Ctx(ctx).Info().Str("role", p.cfg.AdminUser).Msg("Database credential set")
	return nil
}

// RestartService restarts the server so configuration takes effect, then
// enables it at boot.
func (p *Provisioner) RestartService(ctx context.Context) error {
	for _, action := range []string{"restart", "enable"} {
		cmd := shell.Command{Name: "systemctl", Args: []string{action, p.cfg.ServiceName}}
		if _, err := p.runner.Run(ctx, cmd); err != nil {
			return models.EnvironmentError(action+" "+p.cfg.ServiceName, err)
		}
	}
	logging.Ctx(ctx).Info().Str("service", p.cfg.ServiceName).Msg("Database service restarted and enabled")
	return nil
}

// WaitReady polls the maintenance database until it answers.
func (p *Provisioner) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, p.connector, p.cfg, p.cfg.Readiness)
}

// CreateDatabase creates the routing database. An existing database is benign.
func (p *Provisioner) CreateDatabase(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	conn, err := Open(ctx, p.connector, p.cfg, models.MaintenanceDatabase)
	if err != nil {
		return models.EnvironmentError("connect to maintenance database", err)
	}
	defer CloseQuietly(ctx, conn)

	_, err = conn.Exec(ctx, "CREATE DATABASE "+QuoteIdent(p.cfg.Name))
	switch code := SQLState(err); {
	case err == nil:
		logger.Info().Str("database", p.cfg.Name).Msg("Database created")
		return nil
	case code == SQLStateDuplicateDatabase || code == SQLStateUniqueViolation:
		logger.Warn().
			Str("database", p.cfg.Name).
			Str("kind", models.KindBenign.String()).
			Msg("Database already exists, continuing")
		return nil
	default:
		return models.EnvironmentError("create database "+p.cfg.Name, err)
	}
}
