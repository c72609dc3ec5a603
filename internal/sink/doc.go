// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package sink defines the output-side contracts of the emit phase
// (spec §6): a TileWriter that the Parallel Tile Emitter Driver calls
// once per produced tile, and a DuckDB-backed DuckDBAttributeStore
// that persists output-object attribute blobs for later inspection.
package sink
