// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package rollup implements the Zoom Rollup & Tile Iterator (spec §4.10):
// given a target zoom z <= base zoom Z, it produces the union tile set
// across sources, the merged and min-zoom-filtered object list for any one
// target tile, and a binary-search sub-layer slice of that list.
package rollup
