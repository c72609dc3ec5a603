// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package arena

import "fmt"

// Container is a named sub-allocation inside an Arena: a bump allocator
// over its own region of the shared backing buffer. Stores (node, way,
// relation, generated-geometry) each own exactly one Container and address
// everything they store through Handles returned by Alloc.
type Container struct {
	arena *Arena
	index int
}

// Name reports the container's identifier.
func (c *Container) Name() string {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()
	return c.arena.entries[c.index].name
}

// Kind reports the tag the container was created with.
func (c *Container) Kind() ContainerKind {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()
	return c.arena.entries[c.index].kind
}

// Reserve ensures the container has room for at least n more bytes without
// a further grow, used by store reserve(n) hints (spec §4.1).
func (c *Container) Reserve(n int64) error {
	a := c.arena
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.entries[c.index]
	if e.cursor+n <= e.length {
		return nil
	}
	return a.relocateLocked(c.index, e.cursor+n)
}

// Alloc bump-allocates n bytes inside the container, growing it (and, if
// necessary, the whole arena) on demand, and returns a stable Handle to the
// start of the new region.
func (c *Container) Alloc(n int) (Handle, error) {
	if n <= 0 {
		return NilHandle, fmt.Errorf("tilekiln: alloc of %d bytes requested", n)
	}

	a := c.arena
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.entries[c.index]
	need := e.cursor + int64(n)
	if need > e.length {
		if err := a.relocateLocked(c.index, need); err != nil {
			return NilHandle, err
		}
		e = a.entries[c.index]
	}

	h := Handle(e.cursor)
	a.entries[c.index].cursor = need
	a.writeEntry(c.index)
	return h, nil
}

// Bytes returns the n-byte slice at h into the container's current backing
// region. The slice aliases the arena's shared buffer and must not be
// retained across any call that might grow the arena (Alloc, Reserve, or
// Alloc/Reserve on any other container, since growth can relocate the
// backing buffer itself).
func (c *Container) Bytes(h Handle, n int) []byte {
	a := c.arena
	a.mu.RLock()
	defer a.mu.RUnlock()

	e := a.entries[c.index]
	start := e.offset + int64(h)
	return a.b.data()[start : start+int64(n)]
}

// Size reports the number of bytes currently allocated (the bump cursor),
// not the container's reserved capacity.
func (c *Container) Size() int64 {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()
	return c.arena.entries[c.index].cursor
}

// Clear resets the container's bump cursor back to its starting point
// (past the reserved zero offset, for Alloc-addressed containers),
// abandoning all Handles previously issued. Per the Handle invariant
// (spec §3), clearing the arena is the one operation Handles do not
// survive.
func (c *Container) Clear() {
	a := c.arena
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[c.index].cursor = zeroBaseFor(a.entries[c.index].kind)
	a.writeEntry(c.index)
}
