// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package region

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/tomtom215/roadbed/internal/logging"
	"github.com/tomtom215/roadbed/internal/metrics"
	"github.com/tomtom215/roadbed/internal/models"
)

// Relation types whose member ways are completed.
var completeRelationTypes = map[string]bool{
	"multipolygon": true,
	"boundary":     true,
}

// NativeBackend clips in-process. It reads the input several times and writes
// OSM XML directly, so Request.Extract is unused.
type NativeBackend struct {
	// Procs is the number of PBF decoders. Zero uses GOMAXPROCS.
	Procs int
}

// Name returns the backend name.
func (n *NativeBackend) Name() string { return BackendNative }

// clip accumulates the selection across passes.
type clip struct {
	inside    map[osm.NodeID]struct{}
	required  map[osm.NodeID]struct{}
	ways      map[osm.WayID]*osm.Way
	missing   map[osm.WayID]struct{}
	relations []*osm.Relation
	nodes     []*osm.Node
}

// Extract selects the region from req.Base and writes it to req.Output.
func (n *NativeBackend) Extract(ctx context.Context, req Request) error {
	logger := logging.Ctx(ctx)

	c := &clip{
		inside:   make(map[osm.NodeID]struct{}),
		required: make(map[osm.NodeID]struct{}),
		ways:     make(map[osm.WayID]*osm.Way),
		missing:  make(map[osm.WayID]struct{}),
	}

	passes := []struct {
		name string
		kind osm.Type
		fn   func(osm.Object)
	}{
		{"nodes in box", osm.TypeNode, func(o osm.Object) { c.markInside(o.(*osm.Node), req.BBox) }},
		{"ways touching box", osm.TypeWay, func(o osm.Object) { c.keepTouchingWay(o.(*osm.Way)) }},
		{"relations", osm.TypeRelation, func(o osm.Object) { c.keepRelation(o.(*osm.Relation)) }},
		{"relation member ways", osm.TypeWay, func(o osm.Object) { c.completeWay(o.(*osm.Way)) }},
		{"required nodes", osm.TypeNode, func(o osm.Object) { c.collectNode(o.(*osm.Node)) }},
	}

	for _, p := range passes {
		if p.name == "relation member ways" && len(c.missing) == 0 {
			continue
		}
		if err := n.scan(ctx, req.Base, p.kind, p.fn); err != nil {
			return err
		}
		logger.Debug().Str("pass", p.name).Int("ways", len(c.ways)).Int("nodes", len(c.required)).Msg("Clip pass complete")
	}

	if len(c.inside) == 0 {
		return models.DataError("clip base extract", fmt.Errorf("no nodes inside bounding box %s", req.BBox))
	}
	if len(c.missing) > 0 {
		logger.Warn().Int("ways", len(c.missing)).Msg("Relation member ways not found in base extract")
	}

	doc := c.document(req.BBox)
	if err := writeXML(req.Output, doc); err != nil {
		return models.EnvironmentError("write region extract", err)
	}

	metrics.RecordRegionElements(len(doc.Nodes), len(doc.Ways), len(doc.Relations))
	logger.Info().
		Int("nodes", len(doc.Nodes)).
		Int("ways", len(doc.Ways)).
		Int("relations", len(doc.Relations)).
		Msg("Region clipped")
	return nil
}

func (c *clip) markInside(node *osm.Node, bbox models.BoundingBox) {
	if bbox.Contains(node.Lon, node.Lat) {
		c.inside[node.ID] = struct{}{}
		c.required[node.ID] = struct{}{}
	}
}

func (c *clip) keepTouchingWay(way *osm.Way) {
	for _, wn := range way.Nodes {
		if _, ok := c.inside[wn.ID]; ok {
			c.keepWay(way)
			return
		}
	}
}

func (c *clip) keepWay(way *osm.Way) {
	c.ways[way.ID] = way
	for _, wn := range way.Nodes {
		c.required[wn.ID] = struct{}{}
	}
}

func (c *clip) keepRelation(rel *osm.Relation) {
	if !c.touches(rel) {
		return
	}
	c.relations = append(c.relations, rel)

	if !completeRelationTypes[rel.Tags.Find("type")] {
		return
	}
	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		id := osm.WayID(m.Ref)
		if _, ok := c.ways[id]; !ok {
			c.missing[id] = struct{}{}
		}
	}
}

// touches reports whether rel references a kept way or an inside node.
func (c *clip) touches(rel *osm.Relation) bool {
	for _, m := range rel.Members {
		switch m.Type {
		case osm.TypeNode:
			if _, ok := c.inside[osm.NodeID(m.Ref)]; ok {
				return true
			}
		case osm.TypeWay:
			if _, ok := c.ways[osm.WayID(m.Ref)]; ok {
				return true
			}
		}
	}
	return false
}

func (c *clip) completeWay(way *osm.Way) {
	if _, ok := c.missing[way.ID]; !ok {
		return
	}
	delete(c.missing, way.ID)
	c.keepWay(way)
}

func (c *clip) collectNode(node *osm.Node) {
	if _, ok := c.required[node.ID]; ok {
		c.nodes = append(c.nodes, node)
	}
}

// document assembles the output ordered by type, then ID.
func (c *clip) document(bbox models.BoundingBox) *osm.OSM {
	doc := &osm.OSM{
		Version:   "0.6",
		Generator: "roadbed",
		Bounds: &osm.Bounds{
			MinLat: bbox.South,
			MaxLat: bbox.North,
			MinLon: bbox.West,
			MaxLon: bbox.East,
		},
	}

	doc.Nodes = append(doc.Nodes, c.nodes...)
	slices.SortFunc(doc.Nodes, func(a, b *osm.Node) int { return cmpID(int64(a.ID), int64(b.ID)) })
	for _, n := range doc.Nodes {
		n.Visible = true
	}

	for _, w := range c.ways {
		w.Visible = true
		doc.Ways = append(doc.Ways, w)
	}
	slices.SortFunc(doc.Ways, func(a, b *osm.Way) int { return cmpID(int64(a.ID), int64(b.ID)) })

	doc.Relations = append(doc.Relations, c.relations...)
	slices.SortFunc(doc.Relations, func(a, b *osm.Relation) int { return cmpID(int64(a.ID), int64(b.ID)) })
	for _, r := range doc.Relations {
		r.Visible = true
	}
	return doc
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// scan reads every object of one type from path and passes it to fn.
func (n *NativeBackend) scan(ctx context.Context, path string, kind osm.Type, fn func(osm.Object)) error {
	f, err := os.Open(path)
	if err != nil {
		return models.EnvironmentError("open base extract", err)
	}
	defer f.Close()

	var scanner osm.Scanner
	switch {
	case strings.HasSuffix(path, ".pbf"):
		procs := n.Procs
		if procs <= 0 {
			procs = runtime.GOMAXPROCS(0)
		}
		s := osmpbf.New(ctx, f, procs)
		s.SkipNodes = kind != osm.TypeNode
		s.SkipWays = kind != osm.TypeWay
		s.SkipRelations = kind != osm.TypeRelation
		scanner = s
	case filepath.Ext(path) == ".osm" || filepath.Ext(path) == ".xml":
		scanner = osmxml.New(ctx, f)
	default:
		return models.DataError("open base extract", fmt.Errorf("unsupported file extension %q", filepath.Ext(path)))
	}
	defer scanner.Close()

	for scanner.Scan() {
		obj := scanner.Object()
		if obj.ObjectID().Type() != kind {
			continue
		}
		fn(obj)
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
			return models.EnvironmentError("read base extract", err)
		}
		return models.DataError("read base extract", err)
	}
	if err := ctx.Err(); err != nil {
		return models.EnvironmentError("read base extract", err)
	}
	return nil
}

// writeXML encodes doc to path through a temporary file renamed into place.
func writeXML(path string, doc *osm.OSM) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err = w.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err = encodeDocument(enc, doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = w.WriteByte('\n'); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// encodeDocument writes the <osm> element itself. osm.OSM.MarshalXML encodes
// Bounds under its Go type name, which importers do not recognize.
func encodeDocument(enc *xml.Encoder, doc *osm.OSM) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "osm"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "version"}, Value: doc.Version},
			{Name: xml.Name{Local: "generator"}, Value: doc.Generator},
		},
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if doc.Bounds != nil {
		if err := enc.EncodeElement(doc.Bounds, xml.StartElement{Name: xml.Name{Local: "bounds"}}); err != nil {
			return err
		}
	}
	for _, elems := range []any{doc.Nodes, doc.Ways, doc.Relations} {
		if err := enc.Encode(elems); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	return enc.Flush()
}
