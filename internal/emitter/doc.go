// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package emitter implements the Parallel Tile Emitter Driver (spec
// §4.11): it builds the flat (zoom, TileCoord) work list across the emit
// range, applies the mapsplit-ancestor and clipping-box filters,
// partitions the list into fixed-size chunks, and dispatches chunks to a
// bounded worker pool built on golang.org/x/sync/errgroup, serializing
// writes to the shared output sink behind one mutex.
package emitter
