// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package arena implements the Backing Arena (spec §4.1): a single growable
// byte region, heap- or mmap-file-backed, holding a small set of named
// "containers" (one per store: node store, way store, relation store,
// generated-geometry namespaces). Growth is wrapped by internal/errs's
// grow-and-retry-and-reopen protocol, and relocates only the container being
// grown so that every other container's data, and every Handle already
// issued, stays exactly where it was.
//
// Offsets are split deliberately into two notions, mirroring spec §4.1:
// a Handle is a container-relative offset that never changes once issued;
// an address is the absolute slice into the current backing buffer, which
// does change across a grow. Callers must not retain an address across a
// call that might grow the arena.
package arena

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tilekiln/tilekiln/internal/errs"
)

// arenaSeq assigns each Arena instance a distinct growth-circuit name so
// breaker state from one Arena (notably in tests, which may create many)
// never leaks into another.
var arenaSeq int64

// Handle is an opaque, growth-stable reference into a Container. It is an
// offset relative to that container's own region, not an absolute offset
// into the arena's backing buffer.
type Handle uint64

// NilHandle is never returned by Alloc on a container whose cursor starts at
// reservedZeroOffset, so a zero-value Handle reliably means "unset" there.
// The compact node store's container starts at offset 0 (see zeroBaseFor)
// and does not use the Handles Alloc returns.
const NilHandle Handle = 0

// ContainerKind tags a container's contents so a reopened file-backed arena
// can detect a mismatched store variant (spec §4.2's StoreKindMismatch).
type ContainerKind uint8

const (
	KindUnknown ContainerKind = iota
	KindNodeStoreMap
	KindNodeStoreCompact
	KindWayStore
	KindRelationStore
	KindGeomStore
)

func (k ContainerKind) String() string {
	switch k {
	case KindNodeStoreMap:
		return "node_store_map"
	case KindNodeStoreCompact:
		return "node_store_compact"
	case KindWayStore:
		return "way_store"
	case KindRelationStore:
		return "relation_store"
	case KindGeomStore:
		return "geom_store"
	default:
		return "unknown"
	}
}

const (
	arenaMagic           = "TKARENA1"
	maxContainers        = 32
	containerNameLen     = 47
	containerRecSize     = 1 + containerNameLen + 1 + 8*3 // nameLen, name, kind, offset, length, cursor
	arenaHeaderSize      = 4096
	initialContainerSize = 1 << 16 // 64 KiB floor for a freshly created container
	growthCapBytes       = 8 << 30 // +8 GiB increments once a container passes 8 GiB
	reservedZeroOffset   = 8       // container-relative offset 0 is never handed out by Alloc, so NilHandle stays unambiguous
)

// zeroBaseFor reports the bump cursor's starting point for a freshly
// created (or cleared) container of kind. Every Alloc-addressed container
// reserves reservedZeroOffset so a real Handle is never NilHandle. The
// compact node store is the one exception: it indexes its container
// directly by NodeID*coordSize rather than through Alloc's returned
// Handle, so its cursor (and therefore Size, which it treats as "array
// length in bytes") must start at exactly zero.
func zeroBaseFor(kind ContainerKind) int64 {
	if kind == KindNodeStoreCompact {
		return 0
	}
	return reservedZeroOffset
}

// directoryEntry is the in-memory mirror of one container's header record.
type directoryEntry struct {
	name   string
	kind   ContainerKind
	offset int64 // absolute offset of the container's region in the backing buffer
	length int64 // capacity of the container's region
	cursor int64 // next free container-relative offset
}

func recordOffset(index int) int64 {
	return 12 + int64(index)*containerRecSize // 8 magic + 4 count
}

// Arena is a single growable backing region holding named containers. All
// mutation happens during the single-writer ingest phase, so one RWMutex
// guards both directory bookkeeping and growth.
type Arena struct {
	mu         sync.RWMutex
	b          backing
	backing    string // "heap" or "file", for metrics/error labels
	growthName string // unique growth-circuit name for errs.RetryGrowth
	entries    []directoryEntry
	byName     map[string]int // name -> index into entries
	backingCap int64          // current total size of b.data()
	dataEnd    int64          // next free offset for a new container's region
}

// NewHeap creates an in-memory arena with an initial reservation of at least
// initial bytes.
func NewHeap(initial int) (*Arena, error) {
	if initial <= 0 {
		initial = initialContainerSize
	}
	size := int64(initial) + arenaHeaderSize
	hb := newHeapBacking(size)
	return newArena(hb, "heap", size)
}

// NewFileBacked creates a memory-mapped, file-backed arena at path with an
// initial reservation of at least initial bytes.
func NewFileBacked(path string, initial int64) (*Arena, error) {
	if initial <= 0 {
		initial = initialContainerSize
	}
	size := initial + arenaHeaderSize
	fb, err := newFileBacking(path, size)
	if err != nil {
		return nil, err
	}
	return newArena(fb, "file", size)
}

func newArena(b backing, mode string, size int64) (*Arena, error) {
	id := atomic.AddInt64(&arenaSeq, 1)
	a := &Arena{
		b:          b,
		backing:    mode,
		growthName: fmt.Sprintf("arena-%d", id),
		byName:     map[string]int{},
		backingCap: size,
	}
	data := a.b.data()
	if string(data[0:8]) == arenaMagic {
		if err := a.loadDirectory(); err != nil {
			return nil, err
		}
		a.dataEnd = arenaHeaderSize
		for _, e := range a.entries {
			if end := e.offset + e.length; end > a.dataEnd {
				a.dataEnd = end
			}
		}
		return a, nil
	}
	copy(data[0:8], arenaMagic)
	binary.LittleEndian.PutUint32(data[8:12], 0)
	a.dataEnd = arenaHeaderSize
	return a, nil
}

func (a *Arena) loadDirectory() error {
	data := a.b.data()
	count := binary.LittleEndian.Uint32(data[8:12])
	if int(count) > maxContainers {
		return fmt.Errorf("tilekiln: arena header reports %d containers, max is %d: %w", count, maxContainers, errs.ErrInvariantViolation)
	}
	for i := 0; i < int(count); i++ {
		off := recordOffset(i)
		rec := data[off : off+containerRecSize]
		nameLen := int(rec[0])
		name := string(rec[1 : 1+nameLen])
		kind := ContainerKind(rec[1+containerNameLen])
		base := 1 + containerNameLen + 1
		entryOffset := int64(binary.LittleEndian.Uint64(rec[base : base+8]))
		length := int64(binary.LittleEndian.Uint64(rec[base+8 : base+16]))
		cursor := int64(binary.LittleEndian.Uint64(rec[base+16 : base+24]))
		a.entries = append(a.entries, directoryEntry{name: name, kind: kind, offset: entryOffset, length: length, cursor: cursor})
		a.byName[name] = i
	}
	return nil
}

func (a *Arena) writeDirectoryCount(n int) {
	binary.LittleEndian.PutUint32(a.b.data()[8:12], uint32(n))
}

func (a *Arena) writeEntry(index int) {
	e := a.entries[index]
	off := recordOffset(index)
	rec := a.b.data()[off : off+containerRecSize]
	if len(e.name) > containerNameLen {
		panic("tilekiln: container name too long for arena header")
	}
	rec[0] = byte(len(e.name))
	copy(rec[1:1+containerNameLen], e.name)
	rec[1+containerNameLen] = byte(e.kind)
	base := 1 + containerNameLen + 1
	binary.LittleEndian.PutUint64(rec[base:base+8], uint64(e.offset))
	binary.LittleEndian.PutUint64(rec[base+8:base+16], uint64(e.length))
	binary.LittleEndian.PutUint64(rec[base+16:base+24], uint64(e.cursor))
}

// Container returns a handle-like view onto a named sub-allocation,
// creating it (with an empty region) the first time it is requested. A
// second call with a different kind than the one recorded at creation
// returns ErrStoreKindMismatch, implementing spec §4.2's reopen check.
func (a *Arena) Container(name string, kind ContainerKind) (*Container, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if idx, ok := a.byName[name]; ok {
		if a.entries[idx].kind != kind {
			return nil, fmt.Errorf("tilekiln: container %q was created as %s, reopened as %s: %w", name, a.entries[idx].kind, kind, errs.ErrStoreKindMismatch)
		}
		return &Container{arena: a, index: idx}, nil
	}

	if len(a.entries) >= maxContainers {
		return nil, fmt.Errorf("tilekiln: arena header has no room for another container (max %d): %w", maxContainers, errs.ErrOutOfSpace)
	}

	index := len(a.entries)
	if err := a.growForNewContainerLocked(index, name, kind, initialContainerSize); err != nil {
		return nil, err
	}
	a.byName[name] = index
	return &Container{arena: a, index: index}, nil
}

// growForNewContainerLocked appends a brand new container of size capacity
// at the tail of the backing buffer and records it in the directory.
// Caller holds a.mu.
func (a *Arena) growForNewContainerLocked(index int, name string, kind ContainerKind, capacity int64) error {
	if len(name) > containerNameLen {
		return fmt.Errorf("tilekiln: container name %q exceeds %d bytes", name, containerNameLen)
	}

	newOffset := a.dataEnd
	newTotal := newOffset + capacity

	if err := a.growBackingLocked(newTotal); err != nil {
		return err
	}
	a.dataEnd = newTotal

	a.entries = append(a.entries, directoryEntry{name: name, kind: kind, offset: newOffset, length: capacity, cursor: zeroBaseFor(kind)})
	a.writeEntry(index)
	a.writeDirectoryCount(index + 1)
	return nil
}

// growBackingLocked enlarges the shared backing buffer to at least minSize,
// wrapped in the grow-and-retry-and-reopen protocol. Caller holds a.mu.
func (a *Arena) growBackingLocked(minSize int64) error {
	if minSize <= a.backingCap {
		return nil
	}
	return errs.RetryGrowth(a.growthName, a.backing, func() error {
		if err := a.b.grow(minSize); err != nil {
			return err
		}
		a.backingCap = minSize
		return nil
	})
}

// relocateLocked grows a single container's region to at least minLength by
// appending a fresh region at the tail of the backing buffer and copying the
// container's live bytes into it. Handles into this container stay valid
// because they are container-relative; only the directory's absolute offset
// changes. Caller holds a.mu.
func (a *Arena) relocateLocked(index int, minLength int64) error {
	e := a.entries[index]
	newLength := nextCapacity(e.length, minLength)
	newOffset := a.dataEnd

	if err := a.growBackingLocked(newOffset + newLength); err != nil {
		return err
	}
	a.dataEnd = newOffset + newLength

	data := a.b.data()
	copy(data[newOffset:newOffset+e.cursor], data[e.offset:e.offset+e.cursor])

	a.entries[index].offset = newOffset
	a.entries[index].length = newLength
	a.writeEntry(index)
	return nil
}

// nextCapacity doubles current until it reaches required, switching to
// fixed +8 GiB increments once the size passes that threshold (spec §4.1).
func nextCapacity(current, required int64) int64 {
	next := current
	if next <= 0 {
		next = initialContainerSize
	}
	for next < required {
		if next >= growthCapBytes {
			next += growthCapBytes
		} else {
			next *= 2
		}
	}
	return next
}

// Close releases the backing region. File-backed arenas flush their final
// mapping to disk as part of unmapping.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.b.close()
}

// Size reports the current total size of the backing buffer, including the
// header and all container regions.
func (a *Arena) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backingCap
}
