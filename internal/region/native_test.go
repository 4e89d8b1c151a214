// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package region

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"github.com/tomtom215/roadbed/internal/models"
)

// fixture covers the completeness cases around the unit box 0,0,1,1:
//   - way 10 is partly inside and must come out whole (node 3 is outside)
//   - way 11 is fully outside but belongs to multipolygon 100 with way 10
//   - way 12 is fully outside and only belongs to route 101, which is kept
//     without completion
//   - route 102 touches nothing inside
const fixture = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
 <node id="1" lat="0.5" lon="0.5" version="1" visible="true"/>
 <node id="2" lat="0.6" lon="0.6" version="1" visible="true"><tag k="highway" v="traffic_signals"/></node>
 <node id="3" lat="2" lon="2" version="1" visible="true"/>
 <node id="4" lat="3" lon="3" version="1" visible="true"/>
 <node id="5" lat="5" lon="5" version="1" visible="true"/>
 <node id="6" lat="6" lon="6" version="1" visible="true"/>
 <node id="7" lat="-5" lon="-5" version="1" visible="true"/>
 <way id="10" version="1" visible="true"><nd ref="1"/><nd ref="3"/><tag k="highway" v="residential"/></way>
 <way id="11" version="1" visible="true"><nd ref="4"/><nd ref="5"/><nd ref="4"/></way>
 <way id="12" version="1" visible="true"><nd ref="6"/><nd ref="7"/></way>
 <relation id="100" version="1" visible="true">
  <member type="way" ref="10" role="outer"/>
  <member type="way" ref="11" role="outer"/>
  <tag k="type" v="multipolygon"/>
 </relation>
 <relation id="101" version="1" visible="true">
  <member type="way" ref="10" role=""/>
  <member type="way" ref="12" role=""/>
  <tag k="type" v="route"/>
 </relation>
 <relation id="102" version="1" visible="true">
  <member type="way" ref="12" role=""/>
  <tag k="type" v="route"/>
 </relation>
</osm>
`

var unitBox = models.BoundingBox{West: 0, South: 0, East: 1, North: 1}

func readOSM(t *testing.T, path string) *osm.OSM {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	doc := &osm.OSM{}
	scanner := osmxml.New(context.Background(), f)
	defer scanner.Close()
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			doc.Nodes = append(doc.Nodes, o)
		case *osm.Way:
			doc.Ways = append(doc.Ways, o)
		case *osm.Relation:
			doc.Relations = append(doc.Relations, o)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan output: %v", err)
	}
	return doc
}

// baseExtract places the fixture in dir in the named format. The PBF copy in
// testdata holds the same objects as the XML fixture.
func baseExtract(t *testing.T, dir, format string) string {
	t.Helper()
	var data []byte
	switch format {
	case "xml":
		data = []byte(fixture)
	case "pbf":
		var err error
		if data, err = os.ReadFile(filepath.Join("testdata", "fixture.osm.pbf")); err != nil {
			t.Fatalf("read pbf fixture: %v", err)
		}
	}
	base := filepath.Join(dir, "base."+map[string]string{"xml": "osm", "pbf": "osm.pbf"}[format])
	if err := os.WriteFile(base, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return base
}

func TestNativeBackendCompleteness(t *testing.T) {
	tests := []struct {
		format string
		procs  int
	}{
		{format: "xml"},
		{format: "pbf"},
		{format: "pbf", procs: 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/procs=%d", tt.format, tt.procs), func(t *testing.T) {
			dir := t.TempDir()
			base := baseExtract(t, dir, tt.format)
			out := filepath.Join(dir, "region.osm")

			err := (&NativeBackend{Procs: tt.procs}).Extract(context.Background(), Request{Base: base, Output: out, BBox: unitBox})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			doc := readOSM(t, out)

			var nodeIDs []int64
			for _, n := range doc.Nodes {
				nodeIDs = append(nodeIDs, int64(n.ID))
			}
			if want := []int64{1, 2, 3, 4, 5}; !slices.Equal(nodeIDs, want) {
				t.Errorf("nodes = %v, want %v", nodeIDs, want)
			}

			var wayIDs []int64
			for _, w := range doc.Ways {
				wayIDs = append(wayIDs, int64(w.ID))
			}
			if want := []int64{10, 11}; !slices.Equal(wayIDs, want) {
				t.Errorf("ways = %v, want %v", wayIDs, want)
			}

			var relIDs []int64
			for _, r := range doc.Relations {
				relIDs = append(relIDs, int64(r.ID))
			}
			if want := []int64{100, 101}; !slices.Equal(relIDs, want) {
				t.Errorf("relations = %v, want %v", relIDs, want)
			}

			if len(doc.Ways) > 0 && len(doc.Ways[0].Nodes) != 2 {
				t.Errorf("way 10 has %d nodes, want 2 (kept whole)", len(doc.Ways[0].Nodes))
			}
			if len(doc.Ways) > 0 && doc.Ways[0].Tags.Find("highway") != "residential" {
				t.Error("way tags were not preserved")
			}
			if len(doc.Nodes) > 1 && doc.Nodes[1].Tags.Find("highway") != "traffic_signals" {
				t.Error("node tags were not preserved")
			}
			if len(doc.Relations) > 0 && doc.Relations[0].Members[0].Role != "outer" {
				t.Errorf("relation 100 role = %q, want outer", doc.Relations[0].Members[0].Role)
			}
		})
	}
}

func TestNativeBackendWritesBounds(t *testing.T) {
	dir := t.TempDir()
	base := baseExtract(t, dir, "xml")
	out := filepath.Join(dir, "region.osm")

	if err := (&NativeBackend{}).Extract(context.Background(), Request{Base: base, Output: out, BBox: unitBox}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"<?xml", `<osm version="0.6" generator="roadbed">`, "<bounds ", `minlat="0"`, `maxlon="1"`} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(text, "<Bounds") {
		t.Error("bounds encoded under the Go type name")
	}

	var doc osm.OSM
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if doc.Version != "0.6" {
		t.Errorf("Version = %q, want 0.6", doc.Version)
	}
	want := osm.Bounds{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}
	if doc.Bounds == nil || *doc.Bounds != want {
		t.Errorf("Bounds = %+v, want %+v", doc.Bounds, want)
	}
	if len(doc.Nodes) != 5 || len(doc.Ways) != 2 || len(doc.Relations) != 2 {
		t.Errorf("elements = %d/%d/%d, want 5/2/2", len(doc.Nodes), len(doc.Ways), len(doc.Relations))
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestNativeBackendEmptyRegion(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.osm")
	if err := os.WriteFile(base, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	far := models.BoundingBox{West: 100, South: 50, East: 101, North: 51}
	err := (&NativeBackend{}).Extract(context.Background(), Request{Base: base, Output: filepath.Join(dir, "r.osm"), BBox: far})
	if err == nil {
		t.Fatal("Extract() expected error for an empty region")
	}
	if models.KindOf(err) != models.KindData {
		t.Errorf("KindOf() = %s, want data", models.KindOf(err))
	}
}

func TestNativeBackendMalformedInput(t *testing.T) {
	pbf, err := os.ReadFile(filepath.Join("testdata", "fixture.osm.pbf"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"truncated xml", "base.osm", []byte(`<osm><node id="1" lat="0.5" lon="0.5"><tag k="a"`)},
		{"truncated pbf", "base.osm.pbf", pbf[:20]},
		{"pbf without blocks", "base.osm.pbf", []byte{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			base := filepath.Join(dir, tt.file)
			if err := os.WriteFile(base, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}

			err := (&NativeBackend{}).Extract(context.Background(), Request{Base: base, Output: filepath.Join(dir, "r.osm"), BBox: unitBox})
			if err == nil {
				t.Fatal("Extract() expected error for malformed input")
			}
			if models.KindOf(err) != models.KindData {
				t.Errorf("KindOf() = %s, want data", models.KindOf(err))
			}
		})
	}
}

func TestNativeBackendUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.geojson")
	if err := os.WriteFile(base, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := (&NativeBackend{}).Extract(context.Background(), Request{Base: base, Output: filepath.Join(dir, "r.osm"), BBox: unitBox})
	if err == nil || models.KindOf(err) != models.KindData {
		t.Errorf("Extract() error = %v, want data error", err)
	}
}

func TestNativeBackendCancelled(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.osm")
	if err := os.WriteFile(base, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&NativeBackend{}).Extract(ctx, Request{Base: base, Output: filepath.Join(dir, "r.osm"), BBox: unitBox})
	if err == nil {
		t.Fatal("Extract() expected error on cancelled context")
	}
	if models.KindOf(err) != models.KindEnvironment {
		t.Errorf("KindOf() = %s, want environment", models.KindOf(err))
	}
}
