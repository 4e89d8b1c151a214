// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package packages ensures the database engine, its spatial and routing
// extensions, and the map utilities are installed on the host.
//
// Presence is checked per package with dpkg-query. The package manager is
// only invoked for missing packages, so a fully provisioned host sees no
// apt activity at all.
package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/shell"
)

// StageName is the pipeline name of this stage.
const StageName = "PackageInstaller"

const installedStatus = "install ok installed"

// aptEnv keeps apt and debconf from prompting.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Installer is the PackageInstaller stage.
type Installer struct {
	cfg    config.PackagesConfig
	runner shell.Runner
}

// New creates an Installer.
func New(cfg config.PackagesConfig, runner shell.Runner) *Installer {
	return &Installer{cfg: cfg, runner: runner}
}

// Name implements pipeline.Stage.
func (i *Installer) Name() string { return StageName }

// Run installs every configured package that is not already present.
func (i *Installer) Run(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	if i.cfg.Skip {
		logger.Info().Msg("Package installation disabled by configuration")
		return nil
	}

	missing, err := i.Missing(ctx)
	if err != nil {
		return models.EnvironmentError("check installed packages", err)
	}
	if len(missing) == 0 {
		logger.Info().Int("packages", len(i.cfg.Names)).Msg("All packages already installed")
		return nil
	}

	logger.Info().Strs("missing", missing).Msg("Installing packages")

	if _, err := i.runner.Run(ctx, shell.Command{Name: "apt-get", Args: []string{"update"}, Env: aptEnv}); err != nil {
		return models.EnvironmentError("apt-get update", err)
	}

	args := append([]string{"install", "-y", "--no-install-recommends"}, missing...)
	if _, err := i.runner.Run(ctx, shell.Command{Name: "apt-get", Args: args, Env: aptEnv}); err != nil {
		return models.EnvironmentError("apt-get install", err)
	}

	logger.Info().Strs("installed", missing).Msg("Packages installed")
	return nil
}

// Missing returns the configured packages dpkg does not report as installed,
// in configuration order.
func (i *Installer) Missing(ctx context.Context) ([]string, error) {
	var missing []string
	for _, name := range i.cfg.Names {
		ok, err := i.installed(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// installed queries dpkg for one package. dpkg-query exits 1 for unknown
// packages, which counts as "not installed" rather than an error.
func (i *Installer) installed(ctx context.Context, name string) (bool, error) {
	res, err := i.runner.Run(ctx, shell.Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f=${Status}", name},
	})
	if err != nil {
		var cerr *shell.CommandError
		if errors.As(err, &cerr) && cerr.ExitCode == 1 {
			return false, nil
		}
		return false, fmt.Errorf("query %s: %w", name, err)
	}
	return strings.HasSuffix(strings.TrimSpace(string(res.Stdout)), installedStatus), nil
}
