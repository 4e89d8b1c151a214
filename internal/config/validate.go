// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/roadbed/internal/validation"
)

// Validate checks struct tags and then the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	var errs []error

	if c.Database.ConnectTimeout < time.Second {
		errs = append(errs, fmt.Errorf("database.connect_timeout must be at least 1s, got %s", c.Database.ConnectTimeout))
	}
	if c.Database.Readiness.Interval >= c.Database.Readiness.Timeout {
		errs = append(errs, fmt.Errorf("database.readiness.interval (%s) must be less than database.readiness.timeout (%s)",
			c.Database.Readiness.Interval, c.Database.Readiness.Timeout))
	}

	switch {
	case strings.HasSuffix(c.Dataset.Path, ".osm.pbf"):
	case c.Region.Backend == "native" && slices.Contains([]string{".osm", ".xml"}, filepath.Ext(c.Dataset.Path)):
	case c.Region.Backend == "native":
		errs = append(errs, fmt.Errorf("dataset.path %q must end in .osm.pbf, .osm or .xml", c.Dataset.Path))
	default:
		errs = append(errs, fmt.Errorf("dataset.path %q must end in .osm.pbf", c.Dataset.Path))
	}
	if c.Region.Backend == "osmium" && !strings.HasSuffix(c.Region.ExtractPath, ".osm.pbf") {
		errs = append(errs, fmt.Errorf("region.extract_path %q must end in .osm.pbf", c.Region.ExtractPath))
	}
	if filepath.Ext(c.Region.OutputPath) != ".osm" {
		errs = append(errs, fmt.Errorf("region.output_path %q must end in .osm", c.Region.OutputPath))
	}

	paths := map[string]string{
		"dataset.path":        c.Dataset.Path,
		"region.extract_path": c.Region.ExtractPath,
		"region.output_path":  c.Region.OutputPath,
	}
	seen := make(map[string]string, len(paths))
	for _, key := range []string{"dataset.path", "region.extract_path", "region.output_path"} {
		clean := filepath.Clean(paths[key])
		if other, ok := seen[clean]; ok {
			errs = append(errs, fmt.Errorf("%s and %s must differ (both %q)", other, key, paths[key]))
			continue
		}
		seen[clean] = key
	}

	return errors.Join(errs...)
}
