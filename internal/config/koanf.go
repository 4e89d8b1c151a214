// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"roadbed.yaml",
	"roadbed.yml",
	"/etc/roadbed/roadbed.yaml",
	"/etc/roadbed/roadbed.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultPackages are installed when no package list is configured.
var DefaultPackages = []string{
	"postgresql",
	"postgresql-contrib",
	"postgis",
	"postgresql-16-postgis-3",
	"postgresql-16-pgrouting",
	"osm2pgrouting",
	"osmium-tool",
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "kitchener_routing",
			AdminUser:      "postgres",
			AdminPassword:  "", // required, never defaulted
			OSUser:         "postgres",
			ServiceName:    "postgresql",
			ConnectTimeout: 5 * time.Second,
			Readiness: ReadinessConfig{
				Interval: 2 * time.Second,
				Timeout:  2 * time.Minute,
			},
		},
		Packages: PackagesConfig{
			Manager: "apt",
			Names:   append([]string(nil), DefaultPackages...),
			Skip:    false,
		},
		Dataset: DatasetConfig{
			URL:  "https://download.geofabrik.de/north-america/canada/ontario-latest.osm.pbf",
			Path: "ontario-latest.osm.pbf",
		},
		Region: RegionConfig{
			BBox:         "-80.5500,43.3800,-80.3800,43.5100",
			Backend:      "osmium",
			ExtractPath:  "kitchener.osm.pbf",
			OutputPath:   "kitchener.osm",
			OsmiumBinary: "osmium",
		},
		Import: ImportConfig{
			Binary:         "osm2pgrouting",
			MapConfig:      "/usr/share/osm2pgrouting/mapconfig_for_cars.xml",
			VerifyTopology: true,
		},
		Pipeline: PipelineConfig{
			JournalPath: "",
		},
		Metrics: MetricsConfig{
			TextfilePath: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: explicitPath if non-empty (must exist), else the first of
//     CONFIG_PATH and DefaultConfigPaths that exists
//  3. Environment Variables: Override any mapped setting
//
// The returned Config has passed Validate.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional unless explicit)
	configPath := explicitPath
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	} else {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"packages.names",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, YAML lists arrive as slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Database
	"db_host":               "database.host",
	"db_port":               "database.port",
	"db_name":               "database.name",
	"db_admin_user":         "database.admin_user",
	"db_admin_password":     "database.admin_password",
	"db_os_user":            "database.os_user",
	"db_service":            "database.service_name",
	"db_connect_timeout":    "database.connect_timeout",
	"db_readiness_interval": "database.readiness.interval",
	"db_readiness_timeout":  "database.readiness.timeout",

	// Packages
	"packages":         "packages.names",
	"packages_skip":    "packages.skip",
	"packages_manager": "packages.manager",

	// Dataset
	"dataset_url":  "dataset.url",
	"dataset_path": "dataset.path",

	// Region
	"region_bbox":         "region.bbox",
	"region_backend":      "region.backend",
	"region_extract_path": "region.extract_path",
	"region_output_path":  "region.output_path",
	"osmium_binary":       "region.osmium_binary",

	// Import
	"osm2pgrouting_binary":    "import.binary",
	"osm2pgrouting_mapconfig": "import.mapconfig",
	"import_verify_topology":  "import.verify_topology",

	// Pipeline & metrics
	"journal_path":          "pipeline.journal_path",
	"metrics_textfile_path": "metrics.textfile_path",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DB_NAME -> database.name
//   - REGION_BBOX -> region.bbox
//   - PACKAGES -> packages.names
//
// Unmapped keys return "" so unrelated environment variables never reach the config.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// ErrNoConfigFile is returned by ConfigFileInUse when no file layer applies.
var ErrNoConfigFile = errors.New("no config file found")

// ConfigFileInUse reports which file Load would read for explicitPath.
func ConfigFileInUse(explicitPath string) (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	if p := findConfigFile(); p != "" {
		return p, nil
	}
	return "", ErrNoConfigFile
}
