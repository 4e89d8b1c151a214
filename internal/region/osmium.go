// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package region

import (
	"context"
	"errors"

	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/shell"
)

// OsmiumBackend clips with osmium-tool.
type OsmiumBackend struct {
	Binary string
	Runner shell.Runner
}

// Name returns the backend name.
func (o *OsmiumBackend) Name() string { return BackendOsmium }

// Extract runs osmium extract into req.Extract and converts it to req.Output.
func (o *OsmiumBackend) Extract(ctx context.Context, req Request) error {
	extract := shell.Command{
		Name: o.binary(),
		Args: []string{
			"extract",
			"--bbox", req.BBox.String(),
			"--strategy", "smart",
			"-S", "types=multipolygon,boundary",
			"--set-bounds",
			"--overwrite",
			"-o", req.Extract,
			req.Base,
		},
	}
	if _, err := o.Runner.Run(ctx, extract); err != nil {
		return classify(ctx, "clip base extract", err)
	}

	convert := shell.Command{
		Name: o.binary(),
		Args: []string{"cat", "--overwrite", "-o", req.Output, req.Extract},
	}
	if _, err := o.Runner.Run(ctx, convert); err != nil {
		return classify(ctx, "convert region extract", err)
	}
	return nil
}

func (o *OsmiumBackend) binary() string {
	if o.Binary == "" {
		return "osmium"
	}
	return o.Binary
}

// classify treats a non-zero osmium exit as bad input. A missing binary or a
// cancelled run is an environment problem.
func classify(ctx context.Context, op string, err error) error {
	if shell.IsNotFound(err) || ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return models.EnvironmentError(op, err)
	}
	return models.DataError(op, err)
}
