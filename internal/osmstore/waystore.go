// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package osmstore

import (
	"encoding/binary"
	"fmt"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
)

// wayAvgNodeLenHint estimates the average node count per way for sizing the
// arena reservation behind Reserve(n); it is a hint, not a limit.
const wayAvgNodeLenHint = 8

// WayRef is a stable reference to a stored node sequence, returned by
// Insert so a caller can hold onto it without a second lookup by WayID.
type WayRef struct {
	Handle arena.Handle
	Count  int
}

// WayStore maps WayID to an owned sequence of NodeID (spec §4.3).
type WayStore interface {
	Reserve(n int) error
	// Insert copies nodes into arena-owned storage. len(nodes) must be >= 2.
	Insert(id WayID, nodes []NodeID) (WayRef, error)
	At(id WayID) ([]NodeID, error)
	AtRef(ref WayRef) []NodeID
	Size() int
	Clear()
}

func NewWayStore(a *arena.Arena) (WayStore, error) {
	c, err := a.Container("ways", arena.KindWayStore)
	if err != nil {
		return nil, err
	}
	return &mapWayStore{container: c, index: map[WayID]WayRef{}}, nil
}

type mapWayStore struct {
	container *arena.Container
	index     map[WayID]WayRef
}

func (s *mapWayStore) Reserve(n int) error {
	if len(s.index) == 0 {
		s.index = make(map[WayID]WayRef, n)
	}
	return s.container.Reserve(int64(n) * wayAvgNodeLenHint * nodeIDSize)
}

func (s *mapWayStore) Insert(id WayID, nodes []NodeID) (WayRef, error) {
	if len(nodes) < 2 {
		return WayRef{}, fmt.Errorf("tilekiln: way %d has %d nodes, need at least 2: %w", id, len(nodes), errs.ErrBadInput)
	}
	if _, exists := s.index[id]; exists {
		return WayRef{}, fmt.Errorf("tilekiln: way %d inserted twice: %w", id, errs.ErrInvariantViolation)
	}

	n := len(nodes) * nodeIDSize
	h, err := s.container.Alloc(n)
	if err != nil {
		return WayRef{}, fmt.Errorf("tilekiln: inserting way %d: %w", id, err)
	}
	buf := s.container.Bytes(h, n)
	for i, nd := range nodes {
		binary.LittleEndian.PutUint64(buf[i*nodeIDSize:], uint64(nd))
	}

	ref := WayRef{Handle: h, Count: len(nodes)}
	s.index[id] = ref
	return ref, nil
}

func (s *mapWayStore) At(id WayID) ([]NodeID, error) {
	ref, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("tilekiln: way %d: %w", id, errs.ErrNotFound)
	}
	return s.AtRef(ref), nil
}

// AtRef decodes a previously returned WayRef without a WayID lookup.
func (s *mapWayStore) AtRef(ref WayRef) []NodeID {
	buf := s.container.Bytes(ref.Handle, ref.Count*nodeIDSize)
	out := make([]NodeID, ref.Count)
	for i := range out {
		out[i] = NodeID(binary.LittleEndian.Uint64(buf[i*nodeIDSize:]))
	}
	return out
}

func (s *mapWayStore) Size() int { return len(s.index) }

func (s *mapWayStore) Clear() {
	s.index = map[WayID]WayRef{}
	s.container.Clear()
}
