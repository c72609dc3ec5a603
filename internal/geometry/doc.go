// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package geometry implements the Geometry Assembler (spec §4.7): building
// linestrings and polygons from way node lists, and stitching
// possibly-fragmented relation members into multipolygons.
//
// Resolution of NodeID and WayID to coordinates and node sequences is
// supplied by the caller as plain functions rather than by calling the
// internal/osmstore stores (only osmstore's ID and coordinate types are
// used), so assembly can be tested against fixtures without an arena.
package geometry
