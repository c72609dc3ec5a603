// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package osmstore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tilekiln/tilekiln/internal/errs"
)

func TestRelationStoreInsertFrontAndAt(t *testing.T) {
	a := newTestArena(t)
	s, err := NewRelationStore(a)
	if err != nil {
		t.Fatalf("NewRelationStore: %v", err)
	}

	if err := s.InsertFront(1, []WayID{10, 11}, []WayID{20}); err != nil {
		t.Fatalf("InsertFront: %v", err)
	}
	if err := s.InsertFront(2, []WayID{30}, nil); err != nil {
		t.Fatalf("InsertFront: %v", err)
	}

	got, err := s.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	want := RelationEntry{ID: 1, Outer: []WayID{10, 11}, Inner: []WayID{20}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("At(0) = %+v, want %+v", got, want)
	}

	got, err = s.At(1)
	if err != nil {
		t.Fatalf("At(1): %v", err)
	}
	want = RelationEntry{ID: 2, Outer: []WayID{30}, Inner: nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("At(1) = %+v, want %+v", got, want)
	}

	if s.Size() != 2 {
		t.Errorf("expected size 2, got %d", s.Size())
	}
}

func TestRelationStoreOutOfRangeIndex(t *testing.T) {
	a := newTestArena(t)
	s, err := NewRelationStore(a)
	if err != nil {
		t.Fatalf("NewRelationStore: %v", err)
	}
	if _, err := s.At(0); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRelationStoreEmptyOuterAndInner(t *testing.T) {
	a := newTestArena(t)
	s, err := NewRelationStore(a)
	if err != nil {
		t.Fatalf("NewRelationStore: %v", err)
	}
	if err := s.InsertFront(1, nil, nil); err != nil {
		t.Fatalf("InsertFront: %v", err)
	}
	got, err := s.At(0)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if len(got.Outer) != 0 || len(got.Inner) != 0 {
		t.Errorf("expected empty outer/inner, got %+v", got)
	}
}

func TestRelationStoreClear(t *testing.T) {
	a := newTestArena(t)
	s, err := NewRelationStore(a)
	if err != nil {
		t.Fatalf("NewRelationStore: %v", err)
	}
	if err := s.InsertFront(1, []WayID{1}, nil); err != nil {
		t.Fatalf("InsertFront: %v", err)
	}
	s.Clear()
	if s.Size() != 0 {
		t.Errorf("expected size 0 after Clear, got %d", s.Size())
	}
}
