// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package geomstore

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/arena"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	a, err := arena.NewHeap(1 << 16)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	s, err := New(a)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestStorePointRoundTrip(t *testing.T) {
	s := newStore(t)
	p := orb.Point{12.5, -3.25}

	h, err := s.StorePoint(OSM, p)
	if err != nil {
		t.Fatalf("StorePoint: %v", err)
	}
	got, err := s.RetrievePoint(OSM, h)
	if err != nil {
		t.Fatalf("RetrievePoint: %v", err)
	}
	if got.X() != p.X() || got.Y() != p.Y() {
		t.Fatalf("got %v, want %v", got, p)
	}
}

func TestStoreLinestringRoundTrip(t *testing.T) {
	s := newStore(t)
	ls := orb.LineString{{0, 0}, {1, 1}, {2, 0}}

	h, err := s.StoreLinestring(Shapefile, ls)
	if err != nil {
		t.Fatalf("StoreLinestring: %v", err)
	}
	got, err := s.RetrieveLinestring(Shapefile, h)
	if err != nil {
		t.Fatalf("RetrieveLinestring: %v", err)
	}
	if len(got) != len(ls) {
		t.Fatalf("got %d points, want %d", len(got), len(ls))
	}
	for i := range ls {
		if got[i] != ls[i] {
			t.Fatalf("point %d: got %v, want %v", i, got[i], ls[i])
		}
	}
}

func TestStoreMultipolygonRoundTrip(t *testing.T) {
	s := newStore(t)
	mp := orb.MultiPolygon{
		{
			orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			orb.Ring{{3, 3}, {3, 5}, {5, 5}, {5, 3}, {3, 3}},
		},
	}

	h, err := s.StoreMultipolygon(OSM, mp)
	if err != nil {
		t.Fatalf("StoreMultipolygon: %v", err)
	}
	got, err := s.RetrieveMultipolygon(OSM, h)
	if err != nil {
		t.Fatalf("RetrieveMultipolygon: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("got %+v, want one polygon with one inner ring", got)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := newStore(t)

	h1, err := s.StorePoint(OSM, orb.Point{1, 1})
	if err != nil {
		t.Fatalf("StorePoint osm: %v", err)
	}
	h2, err := s.StorePoint(Shapefile, orb.Point{2, 2})
	if err != nil {
		t.Fatalf("StorePoint shp: %v", err)
	}

	got1, err := s.RetrievePoint(OSM, h1)
	if err != nil || got1 != (orb.Point{1, 1}) {
		t.Fatalf("osm point: got %v, err %v", got1, err)
	}
	got2, err := s.RetrievePoint(Shapefile, h2)
	if err != nil || got2 != (orb.Point{2, 2}) {
		t.Fatalf("shp point: got %v, err %v", got2, err)
	}
}

func TestRetrieveNilHandleFails(t *testing.T) {
	s := newStore(t)
	if _, err := s.RetrieveMultipolygon(OSM, arena.NilHandle); err == nil {
		t.Fatal("expected error retrieving nil handle")
	}
}
