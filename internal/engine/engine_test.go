// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/geometry"
	"github.com/tilekiln/tilekiln/internal/geomstore"
	"github.com/tilekiln/tilekiln/internal/osmstore"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{BaseZoom: 14, InitNodesMillions: 0.01, InitWaysMillions: 0.01})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return e
}

// TestEngineIngestBuildEmit exercises the full unit square from spec.md's
// S1 scenario end to end: insert nodes and a closed way, assemble it into a
// polygon, emit it through the tag-script surface, then verify it shows up
// in the base-zoom tile index on the "building" layer.
func TestEngineIngestBuildEmit(t *testing.T) {
	e := newTestEngine(t)

	coords := []osmstore.LatpLon{
		{Latp: 0, Lon: 0},
		{Latp: 0, Lon: 10000000},
		{Latp: 10000000, Lon: 10000000},
		{Latp: 10000000, Lon: 0},
	}
	for i, c := range coords {
		if err := e.InsertNode(osmstore.NodeID(i+1), c); err != nil {
			t.Fatalf("InsertNode: %v", err)
		}
	}
	way := []osmstore.NodeID{1, 2, 3, 4, 1}
	if err := e.InsertWay(100, way); err != nil {
		t.Fatalf("InsertWay: %v", err)
	}

	ring, err := geometry.NodeListPolygon(way, e.NodeLookup())
	if err != nil {
		t.Fatalf("NodeListPolygon: %v", err)
	}
	mp := orb.MultiPolygon{orb.Polygon{ring}}
	handle, err := e.GeomStore().StoreMultipolygon(geomstore.OSM, mp)
	if err != nil {
		t.Fatalf("StoreMultipolygon: %v", err)
	}

	if err := e.EmitObject("building", geometry.KindPolygon, handle, 10, 0); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	if err := e.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	sources := e.Sources()
	if len(sources) != 2 {
		t.Fatalf("Sources: got %d, want 2", len(sources))
	}

	base := e.BaseZoom()
	baseTiles := 0
	for _, src := range sources {
		baseTiles += len(src.Tiles())
	}
	if baseTiles == 0 {
		t.Fatal("expected at least one tile at base zoom after emitting a polygon")
	}

	for _, src := range sources {
		for _, c := range src.Tiles() {
			refs := src.At(c)
			if len(refs) == 0 {
				continue
			}
			if refs[0].LayerID != "building" {
				t.Errorf("got layer %q, want %q", refs[0].LayerID, "building")
			}
		}
	}

	// Rollup behavior across zoom levels and min_zoom filtering is covered
	// by internal/rollup's own tests, which exercise rollup.TileSet and
	// rollup.ObjectsAt directly against the Source interface this test's
	// sources already satisfy.
	_ = base
}

// TestEngineReplayLogDisabledByDefault verifies that an Engine opened
// without IndexFilePath tolerates ReplayPush calls as no-ops rather than
// failing ingest.
func TestEngineReplayLogDisabledByDefault(t *testing.T) {
	e := newTestEngine(t)
	if err := e.InsertNode(1, osmstore.LatpLon{Latp: 1, Lon: 2}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := e.ReplayPush(0, 1, map[string]string{"amenity": "cafe"}); err != nil {
		t.Fatalf("ReplayPush with disabled log should be a no-op, got: %v", err)
	}
}

// TestEngineIndexFilePathEnablesReplay verifies that, with IndexFilePath
// configured, ReplayPush of an inserted node's tags succeeds.
func TestEngineIndexFilePathEnablesReplay(t *testing.T) {
	dir := t.TempDir()
	e, err := New(Config{BaseZoom: 14, InitNodesMillions: 0.01, InitWaysMillions: 0.01, IndexFilePath: filepath.Join(dir, "replay")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	if err := e.InsertNode(7, osmstore.LatpLon{Latp: 5, Lon: 6}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := e.ReplayPush(0, 7, map[string]string{"amenity": "cafe"}); err != nil {
		t.Fatalf("ReplayPush: %v", err)
	}
}
