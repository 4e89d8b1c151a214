// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// BoundingBox is a rectangular region in WGS84 decimal degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ParseBoundingBox parses a "west,south,east,north" string.
// Whitespace around each coordinate is ignored.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box %q: expected 4 comma-separated values, got %d", s, len(parts))
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounding box %q: value %d: %w", s, i+1, err)
		}
		coords[i] = v
	}

	bb := BoundingBox{West: coords[0], South: coords[1], East: coords[2], North: coords[3]}
	if err := bb.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return bb, nil
}

// Validate checks coordinate ranges and ordering.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box %s: coordinates must be finite", b)
		}
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("bounding box %s: longitude out of range [-180, 180]", b)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("bounding box %s: latitude out of range [-90, 90]", b)
	}
	if b.West >= b.East {
		return fmt.Errorf("bounding box %s: west must be less than east", b)
	}
	if b.South >= b.North {
		return fmt.Errorf("bounding box %s: south must be less than north", b)
	}
	return nil
}

// String returns the canonical west,south,east,north form accepted by osmium.
func (b BoundingBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.West, 'f', -1, 64),
		strconv.FormatFloat(b.South, 'f', -1, 64),
		strconv.FormatFloat(b.East, 'f', -1, 64),
		strconv.FormatFloat(b.North, 'f', -1, 64),
	}, ",")
}

// Bound converts the box to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return b.Bound().Contains(orb.Point{lon, lat})
}
