// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package osmstore

import (
	"encoding/binary"
	"fmt"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
)

// NodeStore maps NodeID to LatpLon. The normal (map) and compact (dense
// array) variants share this interface; the variant actually in use is
// tagged in the arena header, so reopening with the other variant returns
// errs.ErrStoreKindMismatch (spec §4.2).
type NodeStore interface {
	// Reserve hints at the number of nodes the caller expects to insert.
	Reserve(n int) error
	Insert(id NodeID, coord LatpLon) error
	At(id NodeID) (LatpLon, error)
	Size() int
	Clear()
}

// NewMapNodeStore creates the normal, hash-map-keyed node store.
func NewMapNodeStore(a *arena.Arena) (NodeStore, error) {
	c, err := a.Container("nodes", arena.KindNodeStoreMap)
	if err != nil {
		return nil, err
	}
	return &mapNodeStore{container: c, index: map[NodeID]arena.Handle{}}, nil
}

// NewCompactNodeStore creates the dense-array node store. Every inserted
// NodeID must be non-negative; the array grows to max(len, id+1) on each
// insert, as spec §4.2 specifies.
func NewCompactNodeStore(a *arena.Arena) (NodeStore, error) {
	c, err := a.Container("nodes", arena.KindNodeStoreCompact)
	if err != nil {
		return nil, err
	}
	return &compactNodeStore{container: c}, nil
}

type mapNodeStore struct {
	container *arena.Container
	index     map[NodeID]arena.Handle
}

func (s *mapNodeStore) Reserve(n int) error {
	if len(s.index) == 0 {
		s.index = make(map[NodeID]arena.Handle, n)
	}
	return s.container.Reserve(int64(n) * coordSize)
}

func (s *mapNodeStore) Insert(id NodeID, coord LatpLon) error {
	if _, exists := s.index[id]; exists {
		return fmt.Errorf("tilekiln: node %d inserted twice: %w", id, errs.ErrInvariantViolation)
	}
	h, err := s.container.Alloc(coordSize)
	if err != nil {
		return fmt.Errorf("tilekiln: inserting node %d: %w", id, err)
	}
	putCoord(s.container.Bytes(h, coordSize), coord)
	s.index[id] = h
	return nil
}

func (s *mapNodeStore) At(id NodeID) (LatpLon, error) {
	h, ok := s.index[id]
	if !ok {
		return LatpLon{}, fmt.Errorf("tilekiln: node %d: %w", id, errs.ErrNotFound)
	}
	return getCoord(s.container.Bytes(h, coordSize)), nil
}

func (s *mapNodeStore) Size() int { return len(s.index) }

func (s *mapNodeStore) Clear() {
	s.index = map[NodeID]arena.Handle{}
	s.container.Clear()
}

type compactNodeStore struct {
	container *arena.Container
	present   []byte // bitmap, one bit per NodeID; set iff that id has been inserted
}

func (s *compactNodeStore) ensurePresentCapacity(maxID NodeID) {
	need := int(maxID)/8 + 1
	if len(s.present) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, s.present)
	s.present = grown
}

func (s *compactNodeStore) markPresent(id NodeID) {
	s.ensurePresentCapacity(id)
	s.present[id/8] |= 1 << uint(id%8)
}

func (s *compactNodeStore) isPresent(id NodeID) bool {
	idx := int(id / 8)
	if idx >= len(s.present) {
		return false
	}
	return s.present[idx]&(1<<uint(id%8)) != 0
}

func (s *compactNodeStore) Reserve(n int) error {
	if n <= 0 {
		return nil
	}
	return s.ensureCapacity(NodeID(n - 1))
}

// ensureCapacity extends the container to hold at least maxID+1 slots.
func (s *compactNodeStore) ensureCapacity(maxID NodeID) error {
	need := (int64(maxID) + 1) * coordSize
	cur := s.container.Size()
	if need <= cur {
		return nil
	}
	_, err := s.container.Alloc(int(need - cur))
	return err
}

func (s *compactNodeStore) Insert(id NodeID, coord LatpLon) error {
	if id < 0 {
		return fmt.Errorf("tilekiln: compact node store requires a non-negative NodeID, got %d: %w", id, errs.ErrBadInput)
	}
	if err := s.ensureCapacity(id); err != nil {
		return fmt.Errorf("tilekiln: inserting node %d: %w", id, err)
	}
	putCoord(s.container.Bytes(arena.Handle(int64(id)*coordSize), coordSize), coord)
	s.markPresent(id)
	return nil
}

// At returns errs.ErrNotFound both for an out-of-range id and for an
// in-range id that was never inserted: a compact store's array grows ahead
// of sparse inserts (spec §4.2), so an addressable slot is not the same as
// a populated one.
func (s *compactNodeStore) At(id NodeID) (LatpLon, error) {
	if id < 0 || (int64(id)+1)*coordSize > s.container.Size() || !s.isPresent(id) {
		return LatpLon{}, fmt.Errorf("tilekiln: node %d: %w", id, errs.ErrNotFound)
	}
	return getCoord(s.container.Bytes(arena.Handle(int64(id)*coordSize), coordSize)), nil
}

func (s *compactNodeStore) Size() int {
	return int(s.container.Size() / coordSize)
}

func (s *compactNodeStore) Clear() {
	s.container.Clear()
	s.present = nil
}

func putCoord(buf []byte, coord LatpLon) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(coord.Latp))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(coord.Lon))
}

func getCoord(buf []byte) LatpLon {
	return LatpLon{
		Latp: int32(binary.LittleEndian.Uint32(buf[0:4])),
		Lon:  int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}
