// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

/*
Package region clips the base extract to the configured bounding box and
converts the result to the OSM XML consumed by osm2pgrouting.

Clipping keeps referential completeness: a way with at least one node inside the
box is kept whole together with all of its nodes, and multipolygon and boundary
relations touching the box are kept with all member ways completed. This is the
"smart" strategy of osmium extract.

Two backends implement the clip:

  - OsmiumBackend runs osmium-tool (extract, then cat to XML).
  - NativeBackend does a multi-pass scan with github.com/paulmach/osm and needs
    no external binary.

The stage always re-runs and overwrites its outputs.
*/
package region

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tomtom215/roadbed/internal/config"
	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
	"github.com/tomtom215/roadbed/internal/shell"
)

// StageName is the pipeline name of this stage.
const StageName = "RegionExtractor"

// Backend names accepted by region.backend.
const (
	BackendOsmium = "osmium"
	BackendNative = "native"
)

// Request describes one clip.
type Request struct {
	// Base is the country-scale .osm.pbf (or .osm) input.
	Base string
	// Extract is the intermediate compressed clip. Backends that convert in a
	// single pass ignore it.
	Extract string
	// Output is the final OSM XML file.
	Output string
	BBox   models.BoundingBox
}

// Backend clips and converts. Implementations return classified errors.
type Backend interface {
	Name() string
	Extract(ctx context.Context, req Request) error
}

// Extractor is the RegionExtractor stage.
type Extractor struct {
	cfg     config.RegionConfig
	base    string
	backend Backend
}

// New creates the stage for the configured backend. base is the dataset path.
func New(cfg config.RegionConfig, base string, runner shell.Runner) *Extractor {
	var backend Backend
	switch cfg.Backend {
	case BackendNative:
		backend = &NativeBackend{}
	default:
		backend = &OsmiumBackend{Binary: cfg.OsmiumBinary, Runner: runner}
	}
	return NewWithBackend(cfg, base, backend)
}

// NewWithBackend creates the stage with an explicit backend.
func NewWithBackend(cfg config.RegionConfig, base string, backend Backend) *Extractor {
	return &Extractor{cfg: cfg, base: base, backend: backend}
}

// Name implements pipeline.Stage.
func (e *Extractor) Name() string { return StageName }

// Run clips the base extract and writes the region XML.
func (e *Extractor) Run(ctx context.Context) error {
	logger := logging.Ctx(ctx)

	bbox, err := models.ParseBoundingBox(e.cfg.BBox)
	if err != nil {
		return models.DataError("parse bounding box", err)
	}

	if _, err := os.Stat(e.base); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.EnvironmentError("open base extract", fmt.Errorf("%s does not exist", e.base))
		}
		return models.EnvironmentError("open base extract", err)
	}

	logger.Info().
		Str("backend", e.backend.Name()).
		Str("bbox", bbox.String()).
		Str("base", e.base).
		Msg("Extracting region")

	req := Request{Base: e.base, Extract: e.cfg.ExtractPath, Output: e.cfg.OutputPath, BBox: bbox}
	if err := e.backend.Extract(ctx, req); err != nil {
		return err
	}

	info, err := os.Stat(req.Output)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return models.DataError("check region extract", fmt.Errorf("%s was not produced", req.Output))
	case err != nil:
		return models.EnvironmentError("check region extract", err)
	case info.Size() == 0:
		return models.DataError("check region extract", fmt.Errorf("%s is empty", req.Output))
	}

	logger.Info().Str("path", req.Output).Int64("bytes", info.Size()).Msg("Region extract written")
	return nil
}
