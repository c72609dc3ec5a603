// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

/*
Package arena implements the Backing Arena component (spec §4.1): the
single growable byte region that every OSM store and generated-geometry
store allocates out of.

# Quick start

	a, err := arena.NewHeap(64 << 20) // 64 MiB initial reservation
	if err != nil {
		return err
	}
	defer a.Close()

	nodes, err := a.Container("nodes", arena.KindNodeStoreMap)
	if err != nil {
		return err
	}
	h, err := nodes.Alloc(16)
	if err != nil {
		return err
	}
	copy(nodes.Bytes(h, 16), encoded)

For a run that should survive a process restart (so index mode can reopen
the node/way/relation stores without re-parsing the source PBF), use
NewFileBacked instead:

	a, err := arena.NewFileBacked("/var/lib/tilekiln/run.arena", 1<<30)

# Handles versus addresses

A Handle is a small integer, stable for the lifetime of the container
that issued it. An address (the []byte returned by Container.Bytes) is a
view into the arena's current backing buffer and can be invalidated by
any subsequent Alloc or Reserve call, on any container, since growth may
relocate the buffer in memory. Store a Handle, not a slice, whenever the
reference needs to outlive the call that produced it.

# Growth

Every Alloc or Reserve call that cannot be satisfied in place goes
through internal/errs.RetryGrowth, which retries the underlying grow a
bounded number of times before giving up with errs.ErrOutOfSpace. A
single container's growth never disturbs any other container's data or
Handles.
*/
package arena
