// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

// Package config loads the immutable provisioning configuration.
//
// Configuration is layered with Koanf v2, later layers overriding earlier ones:
//
//  1. Defaults: the values of defaultConfig(), which reproduce the reference
//     Kitchener deployment (database kitchener_routing, user postgres, the
//     Ontario Geofabrik extract, a Kitchener-Waterloo bounding box)
//  2. Config file: optional YAML, from --config, CONFIG_PATH, ./roadbed.yaml
//     or /etc/roadbed/roadbed.yaml (first found wins)
//  3. Environment variables: an explicit mapping table (DB_NAME, REGION_BBOX,
//     PACKAGES, ...); unmapped variables are ignored
//
// The loaded Config is validated with the validation package (struct tags)
// and by Validate's cross-field checks, then passed by value into every
// stage. Nothing in the pipeline reads configuration from globals.
//
// # Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	bbox := cfg.Region.Bounds()
//	dsn := cfg.Database.ConnString(cfg.Database.Name)
//
// # Secrets
//
// Database.AdminPassword has no default and must come from the file or
// DB_ADMIN_PASSWORD. String() on DatabaseConfig masks it.
package config
