// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package rollup

import (
	"testing"

	"github.com/tilekiln/tilekiln/internal/tileindex"
)

func newSource(baseZoom int) *tileindex.Index {
	return tileindex.New("test", baseZoom)
}

func TestTileSetUnionAcrossSources(t *testing.T) {
	a := newSource(14)
	b := newSource(14)
	a.Add(tileindex.Coord{X: 8000, Y: 5000}, tileindex.ObjectRef{LayerID: "x"})
	b.Add(tileindex.Coord{X: 8016, Y: 5000}, tileindex.ObjectRef{LayerID: "y"})

	set := TileSet([]Source{a, b}, 14, 10)
	want := map[tileindex.Coord]bool{
		{X: 500, Y: 312}: true,
		{X: 501, Y: 312}: true,
	}
	if len(set) != len(want) {
		t.Fatalf("got %d tiles, want %d", len(set), len(want))
	}
	for _, c := range set {
		if !want[c] {
			t.Fatalf("unexpected tile %+v", c)
		}
	}
}

func TestObjectsAtSameZoomConcatenates(t *testing.T) {
	a := newSource(14)
	b := newSource(14)
	a.Add(tileindex.Coord{X: 1, Y: 1}, tileindex.ObjectRef{LayerID: "a", Handle: 1})
	b.Add(tileindex.Coord{X: 1, Y: 1}, tileindex.ObjectRef{LayerID: "b", Handle: 2})

	got := ObjectsAt([]Source{a, b}, 14, 14, tileindex.Coord{X: 1, Y: 1})
	if len(got) != 2 {
		t.Fatalf("got %d objects, want 2", len(got))
	}
}

func TestObjectsAtFiltersMinZoom(t *testing.T) {
	a := newSource(14)
	c := tileindex.Coord{X: 16, Y: 16}
	a.Add(c, tileindex.ObjectRef{LayerID: "roads", Handle: 1, MinZoom: 12})

	below := ObjectsAt([]Source{a}, 14, 11, tileindex.Coord{X: 16 >> 3, Y: 16 >> 3})
	if len(below) != 0 {
		t.Fatalf("got %+v at zoom 11, want none (min_zoom 12)", below)
	}

	at := ObjectsAt([]Source{a}, 14, 12, tileindex.Coord{X: 16 >> 2, Y: 16 >> 2})
	if len(at) != 1 {
		t.Fatalf("got %+v at zoom 12, want the object present", at)
	}
}

func TestObjectsAtDedupesAndSorts(t *testing.T) {
	a := newSource(14)
	c := tileindex.Coord{X: 4, Y: 4}
	dup := tileindex.ObjectRef{LayerID: "water", Handle: 7}
	a.Add(c, dup)
	a.Add(c, dup)
	a.Add(c, tileindex.ObjectRef{LayerID: "aaa", Handle: 1})

	got := ObjectsAt([]Source{a}, 14, 14, c)
	if len(got) != 2 {
		t.Fatalf("got %d objects, want 2 after dedup", len(got))
	}
	if got[0].LayerID != "aaa" {
		t.Fatalf("got %+v, want sorted with 'aaa' first", got)
	}
}

func TestSubLayerRange(t *testing.T) {
	sorted := []tileindex.ObjectRef{
		{LayerID: "a", Handle: 1},
		{LayerID: "b", Handle: 1},
		{LayerID: "b", Handle: 2},
		{LayerID: "c", Handle: 1},
	}
	start, end := SubLayerRange(sorted, "b")
	if start != 1 || end != 3 {
		t.Fatalf("got [%d,%d), want [1,3)", start, end)
	}

	start, end = SubLayerRange(sorted, "missing")
	if start != end {
		t.Fatalf("got [%d,%d), want empty range", start, end)
	}
}
