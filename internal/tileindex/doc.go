// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package tileindex implements the Tile Index (spec §4.8): a per-source map
// from base-zoom tile coordinates to the OutputObjects that fall in them.
// Coordinates fed into Index are in (lon, latp) degrees, the same
// already-Mercator-projected space produced by internal/geometry, so tile
// math here is the same linear formula on both axes rather than a
// trigonometric projection.
package tileindex
