// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package rollup

import (
	"sort"
	"strconv"

	"github.com/tilekiln/tilekiln/internal/metrics"
	"github.com/tilekiln/tilekiln/internal/tileindex"
)

// Source is anything rollup can merge: a per-source tile index at the
// fixed base zoom (spec §4.10 merges across tileindex.Index instances, one
// per OSM/shapefile source).
type Source interface {
	Tiles() []tileindex.Coord
	At(c tileindex.Coord) []tileindex.ObjectRef
}

// TileSet returns the union of tiles, at targetZoom, covered by any
// source's base-zoom tile set (spec §4.10: "for each source's base tile
// (x,y), emit (x >> (Z-z), y >> (Z-z))").
func TileSet(sources []Source, baseZoom, targetZoom int) []tileindex.Coord {
	shift := uint(baseZoom - targetZoom)
	seen := map[tileindex.Coord]struct{}{}
	for _, src := range sources {
		for _, c := range src.Tiles() {
			target := tileindex.Coord{X: c.X >> shift, Y: c.Y >> shift}
			seen[target] = struct{}{}
		}
	}
	out := make([]tileindex.Coord, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	metrics.RollupTilesProduced.WithLabelValues(strconv.Itoa(targetZoom)).Add(float64(len(out)))
	return out
}

// ObjectsAt returns the sorted, deduplicated object list for target at
// targetZoom (spec §4.10's "per-tile object list"). When targetZoom equals
// baseZoom it is a concatenation of each source's tile; otherwise it
// iterates the s = 2^(Z-z) sub-tiles under target, filtering out objects
// whose MinZoom exceeds targetZoom.
func ObjectsAt(sources []Source, baseZoom, targetZoom int, target tileindex.Coord) []tileindex.ObjectRef {
	var refs []tileindex.ObjectRef

	if targetZoom == baseZoom {
		for _, src := range sources {
			refs = append(refs, src.At(target)...)
		}
		return tileindex.SortAndDedup(refs)
	}

	s := uint32(1) << uint(baseZoom-targetZoom)
	xStart, yStart := target.X*s, target.Y*s
	for x := xStart; x < xStart+s; x++ {
		for y := yStart; y < yStart+s; y++ {
			c := tileindex.Coord{X: x, Y: y}
			for _, src := range sources {
				for _, oo := range src.At(c) {
					if oo.MinZoom > targetZoom {
						continue
					}
					refs = append(refs, oo)
				}
			}
		}
	}
	return tileindex.SortAndDedup(refs)
}

// SubLayerRange binary-searches sorted (already produced by ObjectsAt) for
// the contiguous range whose LayerID equals layerID, returning [start, end)
// bracketing it so a caller can encode one layer without rescanning the
// whole tile (spec §4.10's sub-layer slicing).
func SubLayerRange(sorted []tileindex.ObjectRef, layerID string) (start, end int) {
	start = sort.Search(len(sorted), func(i int) bool { return sorted[i].LayerID >= layerID })
	end = sort.Search(len(sorted), func(i int) bool { return sorted[i].LayerID > layerID })
	return start, end
}
