// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/models"
)

// Config holds all provisioning configuration.
//
// Configuration Categories:
//   - Database: server location, administrative credential, readiness poll
//   - Packages: OS packages the host must carry
//   - Dataset: base extract URL and local path
//   - Region: bounding box, extraction backend and output files
//   - Import: osm2pgrouting binary, mapping profile, topology check
//   - Pipeline: run journal location
//   - Metrics: Prometheus textfile output
//   - Logging: log level and format
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Packages PackagesConfig `koanf:"packages"`
	Dataset  DatasetConfig  `koanf:"dataset"`
	Region   RegionConfig   `koanf:"region"`
	Import   ImportConfig   `koanf:"import"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig describes the PostgreSQL server being provisioned.
type DatabaseConfig struct {
	// Host is the server address used for client connections.
	// Default: localhost
	Host string `koanf:"host" validate:"required,hostname|ip"`

	// Port is the server port.
	// Default: 5432
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// Name is the routing database to create.
	// Default: kitchener_routing
	Name string `koanf:"name" validate:"required,pgident"`

	// AdminUser is the database role whose password is set and which owns the import.
	// Default: postgres
	AdminUser string `koanf:"admin_user" validate:"required,pgident"`

	// AdminPassword is the credential assigned to AdminUser. No default.
	AdminPassword string `koanf:"admin_password" validate:"required"`

	// OSUser is the operating system account that may connect as the
	// superuser over the local socket (peer authentication).
	// Default: postgres
	OSUser string `koanf:"os_user" validate:"required"`

	// ServiceName is the systemd unit restarted and enabled by the provisioner.
	// Default: postgresql
	ServiceName string `koanf:"service_name" validate:"required"`

	// ConnectTimeout bounds a single connection attempt.
	// Default: 5s
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`

	// Readiness controls the post-restart availability poll.
	Readiness ReadinessConfig `koanf:"readiness"`
}

// ReadinessConfig bounds the readiness poll.
type ReadinessConfig struct {
	// Interval between connection attempts.
	// Default: 2s
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// Timeout is the total time allowed before giving up with ErrReadinessTimeout.
	// Default: 2m
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// PackagesConfig lists the OS packages the host must carry.
type PackagesConfig struct {
	// Manager selects the package manager. Only apt is supported.
	Manager string `koanf:"manager" validate:"oneof=apt"`

	// Names are the packages to ensure. Env: PACKAGES (comma-separated).
	Names []string `koanf:"names" validate:"required_unless=Skip true,dive,required"`

	// Skip disables the stage for hosts provisioned out of band.
	Skip bool `koanf:"skip"`
}

// DatasetConfig locates the base extract.
type DatasetConfig struct {
	// URL is the single download source.
	URL string `koanf:"url" validate:"required,url"`

	// Path is where the base extract is stored. Its presence skips the download.
	// Must end in .osm.pbf; the native region backend also reads .osm and .xml.
	Path string `koanf:"path" validate:"required"`
}

// RegionConfig controls clipping and conversion.
type RegionConfig struct {
	// BBox is "west,south,east,north" in decimal degrees.
	BBox string `koanf:"bbox" validate:"required,bbox"`

	// Backend is osmium (external binary) or native (pure Go).
	// Default: osmium
	Backend string `koanf:"backend" validate:"oneof=osmium native"`

	// ExtractPath is the intermediate compressed clip (osmium backend only).
	ExtractPath string `koanf:"extract_path" validate:"required"`

	// OutputPath is the final uncompressed OSM XML consumed by the importer.
	OutputPath string `koanf:"output_path" validate:"required"`

	// OsmiumBinary is the osmium executable.
	OsmiumBinary string `koanf:"osmium_binary" validate:"required"`
}

// Bounds returns the parsed bounding box. Config must have been validated.
func (r RegionConfig) Bounds() models.BoundingBox {
	bb, err := models.ParseBoundingBox(r.BBox)
	if err != nil {
		return models.BoundingBox{}
	}
	return bb
}

// ImportConfig controls the osm2pgrouting import.
type ImportConfig struct {
	// Binary is the osm2pgrouting executable.
	Binary string `koanf:"binary" validate:"required"`

	// MapConfig is the osm2pgrouting mapping profile.
	MapConfig string `koanf:"mapconfig" validate:"required"`

	// VerifyTopology runs the dangling-edge check after import.
	// Default: true
	VerifyTopology bool `koanf:"verify_topology"`
}

// PipelineConfig controls orchestration.
type PipelineConfig struct {
	// JournalPath is the badger directory holding the last run record.
	// Empty keeps the journal in memory.
	JournalPath string `koanf:"journal_path"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// TextfilePath receives Prometheus text output at the end of a run.
	// Empty disables the export.
	TextfilePath string `koanf:"textfile_path" validate:"omitempty,endswith=.prom"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"loglevel"`

	// Format is the output format: json or console.
	// Default: console
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// LoggingConfig converts to the logging package's Config.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// Address returns host:port.
func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// ConnString returns a pgx connection URL for the named database as AdminUser.
func (d DatabaseConfig) ConnString(database string) string {
	q := url.Values{}
	q.Set("sslmode", "prefer")
	q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Round(time.Second)/time.Second)))
	q.Set("application_name", "roadbed")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.AdminUser, d.AdminPassword),
		Host:     d.Address(),
		Path:     "/" + database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// String describes the connection target with the password masked.
func (d DatabaseConfig) String() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s", d.AdminUser, logging.Mask, d.Address(), d.Name)
}
