// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
)

// extensionSpec defines one required extension.
type extensionSpec struct {
	// Name is the extension name as used by CREATE EXTENSION.
	Name string
	// VersionQuery returns the installed version as text.
	VersionQuery string
}

// requiredExtensions are installed in order; pgrouting depends on postgis.
var requiredExtensions = []extensionSpec{
	{Name: models.RequiredExtPostGIS, VersionQuery: "SELECT postgis_lib_version()"},
	{Name: models.RequiredExtRouting, VersionQuery: "SELECT pgr_version()"},
}

// InstallExtensions installs PostGIS and pgRouting in the routing database.
func (p *Provisioner) InstallExtensions(ctx context.Context) error {
	conn, err := Open(ctx, p.connector, p.cfg, p.cfg.Name)
	if err != nil {
		return models.EnvironmentError("connect to "+p.cfg.Name, err)
	}
	defer CloseQuietly(ctx, conn)

	for _, ext := range requiredExtensions {
		if err := installExtension(ctx, conn, ext); err != nil {
			return err
		}
	}
	return nil
}

func installExtension(ctx context.Context, conn Conn, ext extensionSpec) error {
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS "+QuoteIdent(ext.Name)); err != nil {
		return models.EnvironmentError(fmt.Sprintf("install extension %s", ext.Name), err)
	}

	var version string
	if err := conn.QueryRow(ctx, ext.VersionQuery).Scan(&version); err != nil {
		return models.EnvironmentError(fmt.Sprintf("verify extension %s", ext.Name), err)
	}

	logging.Ctx(ctx).Info().Str("extension", ext.Name).Str("version", version).Msg("Extension installed")
	return nil
}
