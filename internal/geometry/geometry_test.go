// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"testing"

	"github.com/tilekiln/tilekiln/internal/osmstore"
)

// square coordinates for a unit square at the origin, used across the
// multipolygon assembly scenarios (spec §8 S1-S6).
var squareCoords = map[osmstore.NodeID]osmstore.LatpLon{
	1: {Latp: 0, Lon: 0},
	2: {Latp: 0, Lon: 10_000_000},
	3: {Latp: 10_000_000, Lon: 10_000_000},
	4: {Latp: 10_000_000, Lon: 0},
}

// farCoords offsets the same unit square far from the origin, used by S5.
var farCoords = map[osmstore.NodeID]osmstore.LatpLon{
	101: {Latp: 500_000_000, Lon: 500_000_000},
	102: {Latp: 500_000_000, Lon: 500_100_000},
	103: {Latp: 500_100_000, Lon: 500_100_000},
	104: {Latp: 500_100_000, Lon: 500_000_000},
}

// innerCoords is a small square entirely inside squareCoords, used by S4.
var innerCoords = map[osmstore.NodeID]osmstore.LatpLon{
	11: {Latp: 3_000_000, Lon: 3_000_000},
	12: {Latp: 3_000_000, Lon: 5_000_000},
	13: {Latp: 5_000_000, Lon: 5_000_000},
	14: {Latp: 5_000_000, Lon: 3_000_000},
}

func lookupFrom(tables ...map[osmstore.NodeID]osmstore.LatpLon) NodeLookup {
	return func(id osmstore.NodeID) (osmstore.LatpLon, error) {
		for _, t := range tables {
			if c, ok := t[id]; ok {
				return c, nil
			}
		}
		return osmstore.LatpLon{}, errNotFoundStub{id}
	}
}

type errNotFoundStub struct{ id osmstore.NodeID }

func (e errNotFoundStub) Error() string { return "node not found" }

func ids(vals ...int64) []osmstore.NodeID {
	out := make([]osmstore.NodeID, len(vals))
	for i, v := range vals {
		out[i] = osmstore.NodeID(v)
	}
	return out
}

// S1: simple closed outer.
func TestWayListMultipolygon_S1SimpleClosedOuter(t *testing.T) {
	outer := [][]osmstore.NodeID{ids(1, 2, 3, 4, 1)}
	mp, err := WayListMultipolygon(outer, nil, lookupFrom(squareCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("got %d polygons, want 1", len(mp))
	}
	if len(mp[0]) != 1 {
		t.Fatalf("got %d rings, want 1 (no inners)", len(mp[0]))
	}
	if len(mp[0][0]) != 5 {
		t.Fatalf("got %d vertices, want 5", len(mp[0][0]))
	}
}

// S2: two-way outer, spliced end to end.
func TestWayListMultipolygon_S2TwoWayOuter(t *testing.T) {
	outer := [][]osmstore.NodeID{ids(1, 2, 3), ids(3, 4, 1)}
	mp, err := WayListMultipolygon(outer, nil, lookupFrom(squareCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 1 || len(mp[0][0]) != 5 {
		t.Fatalf("got %+v, want one closed 5-vertex outer ring", mp)
	}
}

// S3: reversed splice, second way needs flipping to connect.
func TestWayListMultipolygon_S3ReversedSplice(t *testing.T) {
	outer := [][]osmstore.NodeID{ids(1, 2, 3), ids(1, 4, 3)}
	mp, err := WayListMultipolygon(outer, nil, lookupFrom(squareCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 1 || len(mp[0][0]) != 5 {
		t.Fatalf("got %+v, want one closed 5-vertex outer ring", mp)
	}
}

// S4: outer with one contained inner ring.
func TestWayListMultipolygon_S4OuterPlusInner(t *testing.T) {
	outer := [][]osmstore.NodeID{ids(1, 2, 3, 4, 1)}
	inner := [][]osmstore.NodeID{ids(11, 12, 13, 14, 11)}
	mp, err := WayListMultipolygon(outer, inner, lookupFrom(squareCoords, innerCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("got %d polygons, want 1", len(mp))
	}
	if len(mp[0]) != 2 {
		t.Fatalf("got %d rings, want 2 (outer + inner)", len(mp[0]))
	}
}

// S5: two disjoint outer rings, no inner misattachment.
func TestWayListMultipolygon_S5TwoDisjointOuters(t *testing.T) {
	outer := [][]osmstore.NodeID{ids(1, 2, 3, 4, 1), ids(101, 102, 103, 104, 101)}
	mp, err := WayListMultipolygon(outer, nil, lookupFrom(squareCoords, farCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 2 {
		t.Fatalf("got %d polygons, want 2", len(mp))
	}
	for _, poly := range mp {
		if len(poly) != 1 {
			t.Fatalf("got polygon with %d rings, want 1 (no inner)", len(poly))
		}
	}
}

// S6: empty outer set.
func TestWayListMultipolygon_S6EmptyOuter(t *testing.T) {
	mp, err := WayListMultipolygon(nil, nil, lookupFrom(squareCoords))
	if err != nil {
		t.Fatalf("WayListMultipolygon: %v", err)
	}
	if len(mp) != 0 {
		t.Fatalf("got %d polygons, want 0", len(mp))
	}
}

func TestNodeListLinestringOrder(t *testing.T) {
	ls, err := NodeListLinestring(ids(1, 2, 3), lookupFrom(squareCoords))
	if err != nil {
		t.Fatalf("NodeListLinestring: %v", err)
	}
	want := []osmstore.NodeID{1, 2, 3}
	for i, id := range want {
		c := squareCoords[id]
		if ls[i][0] != c.LonDegrees() || ls[i][1] != c.LatpDegrees() {
			t.Fatalf("point %d: got %v, want (%v,%v)", i, ls[i], c.LonDegrees(), c.LatpDegrees())
		}
	}
}

func TestNodeListLinestringUnknownNodeFails(t *testing.T) {
	if _, err := NodeListLinestring(ids(1, 999), lookupFrom(squareCoords)); err == nil {
		t.Fatal("expected error for unresolvable node")
	}
}

func TestMergeWaysSeedsSecondComponent(t *testing.T) {
	rings := mergeWays([][]osmstore.NodeID{
		ids(1, 2, 3, 1),
		ids(101, 102, 103, 101),
	})
	if len(rings) != 2 {
		t.Fatalf("got %d rings, want 2", len(rings))
	}
}
