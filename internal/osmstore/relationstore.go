// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package osmstore

import (
	"encoding/binary"
	"fmt"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
)

// RelationEntry is one way-member multipolygon relation (spec §4.4).
type RelationEntry struct {
	ID    RelationID
	Outer []WayID
	Inner []WayID
}

// RelationStore is the ordered sequence of relations (spec §4.4).
// InsertFront's name is historic: it appends, so At(i) returns the i-th
// inserted relation.
type RelationStore interface {
	Reserve(n int) error
	InsertFront(id RelationID, outer, inner []WayID) error
	At(index int) (RelationEntry, error)
	Size() int
	Clear()
}

func NewRelationStore(a *arena.Arena) (RelationStore, error) {
	c, err := a.Container("relations", arena.KindRelationStore)
	if err != nil {
		return nil, err
	}
	return &relationStore{container: c}, nil
}

type relationMeta struct {
	id          RelationID
	outerHandle arena.Handle
	outerCount  int
	innerHandle arena.Handle
	innerCount  int
}

type relationStore struct {
	container *arena.Container
	meta      []relationMeta
}

func (s *relationStore) Reserve(n int) error {
	if n <= 0 {
		return nil
	}
	if cap(s.meta) < n {
		grown := make([]relationMeta, len(s.meta), n)
		copy(grown, s.meta)
		s.meta = grown
	}
	return s.container.Reserve(int64(n) * wayAvgNodeLenHint * nodeIDSize)
}

func (s *relationStore) writeWayIDs(ids []WayID) (arena.Handle, error) {
	if len(ids) == 0 {
		return arena.NilHandle, nil
	}
	n := len(ids) * nodeIDSize
	h, err := s.container.Alloc(n)
	if err != nil {
		return arena.NilHandle, err
	}
	buf := s.container.Bytes(h, n)
	for i, w := range ids {
		binary.LittleEndian.PutUint64(buf[i*nodeIDSize:], uint64(w))
	}
	return h, nil
}

func (s *relationStore) readWayIDs(h arena.Handle, count int) []WayID {
	if count == 0 {
		return nil
	}
	buf := s.container.Bytes(h, count*nodeIDSize)
	out := make([]WayID, count)
	for i := range out {
		out[i] = WayID(binary.LittleEndian.Uint64(buf[i*nodeIDSize:]))
	}
	return out
}

func (s *relationStore) InsertFront(id RelationID, outer, inner []WayID) error {
	oh, err := s.writeWayIDs(outer)
	if err != nil {
		return fmt.Errorf("tilekiln: inserting relation %d outer ways: %w", id, err)
	}
	ih, err := s.writeWayIDs(inner)
	if err != nil {
		return fmt.Errorf("tilekiln: inserting relation %d inner ways: %w", id, err)
	}
	s.meta = append(s.meta, relationMeta{
		id:          id,
		outerHandle: oh,
		outerCount:  len(outer),
		innerHandle: ih,
		innerCount:  len(inner),
	})
	return nil
}

func (s *relationStore) At(index int) (RelationEntry, error) {
	if index < 0 || index >= len(s.meta) {
		return RelationEntry{}, fmt.Errorf("tilekiln: relation index %d out of range [0,%d): %w", index, len(s.meta), errs.ErrNotFound)
	}
	m := s.meta[index]
	return RelationEntry{
		ID:    m.id,
		Outer: s.readWayIDs(m.outerHandle, m.outerCount),
		Inner: s.readWayIDs(m.innerHandle, m.innerCount),
	}, nil
}

func (s *relationStore) Size() int { return len(s.meta) }

func (s *relationStore) Clear() {
	s.meta = nil
	s.container.Clear()
}
