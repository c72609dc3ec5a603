// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package osmstore

import (
	"errors"
	"testing"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
)

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, err := arena.NewHeap(4096)
	if err != nil {
		t.Fatalf("arena.NewHeap: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func testNodeStores(t *testing.T) []NodeStore {
	a := newTestArena(t)
	mapStore, err := NewMapNodeStore(a)
	if err != nil {
		t.Fatalf("NewMapNodeStore: %v", err)
	}

	a2 := newTestArena(t)
	compactStore, err := NewCompactNodeStore(a2)
	if err != nil {
		t.Fatalf("NewCompactNodeStore: %v", err)
	}
	return []NodeStore{mapStore, compactStore}
}

func TestNodeStoreInsertAndLookup(t *testing.T) {
	for i, s := range testNodeStores(t) {
		coord := LatpLon{Latp: 450000000, Lon: 100000000}
		if err := s.Insert(1, coord); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := s.At(1)
		if err != nil {
			t.Fatalf("At: %v", err)
		}
		if got != coord {
			t.Errorf("got %+v, want %+v", got, coord)
		}
		wantSize := 1 // map store: one entry
		if i == 1 {
			wantSize = 2 // compact store: array length, id+1
		}
		if s.Size() != wantSize {
			t.Errorf("expected size %d, got %d", wantSize, s.Size())
		}
	}
}

func TestNodeStoreMissingLookup(t *testing.T) {
	a := newTestArena(t)
	s, err := NewMapNodeStore(a)
	if err != nil {
		t.Fatalf("NewMapNodeStore: %v", err)
	}
	if _, err := s.At(99); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMapNodeStoreDuplicateInsertFails(t *testing.T) {
	a := newTestArena(t)
	s, err := NewMapNodeStore(a)
	if err != nil {
		t.Fatalf("NewMapNodeStore: %v", err)
	}
	if err := s.Insert(1, LatpLon{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(1, LatpLon{}); !errors.Is(err, errs.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation on duplicate insert, got %v", err)
	}
}

func TestCompactNodeStoreExtendsOnInsert(t *testing.T) {
	a := newTestArena(t)
	s, err := NewCompactNodeStore(a)
	if err != nil {
		t.Fatalf("NewCompactNodeStore: %v", err)
	}
	if err := s.Insert(10, LatpLon{Latp: 1, Lon: 2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.Size() != 11 {
		t.Fatalf("expected size 11 after inserting id 10, got %d", s.Size())
	}
	if _, err := s.At(5); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an in-range id that was never inserted, got %v", err)
	}
	if _, err := s.At(11); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-range id, got %v", err)
	}
}

func TestCompactNodeStoreRejectsNegativeID(t *testing.T) {
	a := newTestArena(t)
	s, err := NewCompactNodeStore(a)
	if err != nil {
		t.Fatalf("NewCompactNodeStore: %v", err)
	}
	if err := s.Insert(-1, LatpLon{}); !errors.Is(err, errs.ErrBadInput) {
		t.Fatalf("expected ErrBadInput for negative id, got %v", err)
	}
}

func TestNodeStoreClear(t *testing.T) {
	for _, s := range testNodeStores(t) {
		if err := s.Insert(1, LatpLon{Latp: 1, Lon: 1}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		s.Clear()
		if s.Size() != 0 {
			t.Errorf("expected size 0 after Clear, got %d", s.Size())
		}
	}
}

func TestLatpLonDegrees(t *testing.T) {
	c := LatpLon{Latp: 450000000, Lon: -1000000}
	if got := c.LatpDegrees(); got != 45.0 {
		t.Errorf("LatpDegrees() = %v, want 45.0", got)
	}
	if got := c.LonDegrees(); got != -0.1 {
		t.Errorf("LonDegrees() = %v, want -0.1", got)
	}
}
