// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package importer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tomtom215/roadbed/internal/models"
)

// MapConfig is the part of an osm2pgrouting mapping profile checked before import.
type MapConfig struct {
	XMLName  xml.Name  `xml:"configuration"`
	TagNames []TagName `xml:"tag_name"`
}

// TagName groups the classes for one OSM key, e.g. highway.
type TagName struct {
	Name    string  `xml:"name,attr"`
	ID      int     `xml:"id,attr"`
	Classes []Class `xml:"class"`
}

// Class maps one tag value to a routing class.
type Class struct {
	Name string `xml:"name,attr"`
	ID   int    `xml:"id,attr"`
}

// ClassCount returns the number of classes across all tag names.
func (m *MapConfig) ClassCount() int {
	n := 0
	for _, t := range m.TagNames {
		n += len(t.Classes)
	}
	return n
}

// LoadMapConfig reads and checks a mapping profile. A missing or malformed
// profile is a data error.
func LoadMapConfig(path string) (*MapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.DataError("load mapping profile", fmt.Errorf("%s does not exist", path))
		}
		return nil, models.EnvironmentError("load mapping profile", err)
	}

	var cfg MapConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, models.DataError("load mapping profile", fmt.Errorf("%s: %w", path, err))
	}
	if len(cfg.TagNames) == 0 {
		return nil, models.DataError("load mapping profile", fmt.Errorf("%s: no <tag_name> elements", path))
	}
	for _, t := range cfg.TagNames {
		if t.Name == "" {
			return nil, models.DataError("load mapping profile", fmt.Errorf("%s: <tag_name id=\"%d\"> has no name", path, t.ID))
		}
	}
	return &cfg, nil
}
