// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package tileindex

import (
	"math"
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/geometry"
	"github.com/tilekiln/tilekiln/internal/metrics"
)

// Coord is a tile's (x, y) index at a fixed base zoom (spec §3, XYZ/Google
// scheme).
type Coord struct {
	X, Y uint32
}

// ObjectRef is a reference to one produced feature (spec §3). Ordering for
// dedup/sort within a tile is lexicographic by (LayerID, Kind, Handle,
// AttrsRef), implemented by Less below.
type ObjectRef struct {
	LayerID  string
	Kind     geometry.Kind
	Handle   arena.Handle
	MinZoom  int
	AttrsRef arena.Handle
}

// Less implements the ordering key from spec §3.
func (o ObjectRef) Less(other ObjectRef) bool {
	if o.LayerID != other.LayerID {
		return o.LayerID < other.LayerID
	}
	if o.Kind != other.Kind {
		return o.Kind < other.Kind
	}
	if o.Handle != other.Handle {
		return o.Handle < other.Handle
	}
	return o.AttrsRef < other.AttrsRef
}

// Equal reports whether o and other are the same ordering-key tuple, used
// for the rollup phase's consecutive-duplicate dedup (spec §4.10).
func (o ObjectRef) Equal(other ObjectRef) bool {
	return o.LayerID == other.LayerID && o.Kind == other.Kind &&
		o.Handle == other.Handle && o.AttrsRef == other.AttrsRef
}

// Index is a per-source mapping from base-zoom tile coordinate to the list
// of objects in that tile (spec §4.8). Writes happen only during the
// single-writer ingest/build phases; Index itself still serializes them so
// a tag-script callback invoked from multiple goroutines (should a future
// collaborator choose to) stays safe.
type Index struct {
	baseZoom int
	mu       sync.Mutex
	name     string
	byTile   map[Coord][]ObjectRef
}

// New creates an empty Index keyed at baseZoom. name labels this source for
// metrics (for example "osm" or "shp:landuse").
func New(name string, baseZoom int) *Index {
	return &Index{baseZoom: baseZoom, name: name, byTile: map[Coord][]ObjectRef{}}
}

// BaseZoom reports the zoom this index is keyed at.
func (idx *Index) BaseZoom() int { return idx.baseZoom }

// Add inserts oo into tile c's object list (spec §4.8's add operation).
func (idx *Index) Add(c Coord, oo ObjectRef) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, existed := idx.byTile[c]
	idx.byTile[c] = append(idx.byTile[c], oo)
	if !existed {
		metrics.TileIndexEntriesTotal.WithLabelValues(idx.name).Set(float64(len(idx.byTile)))
	}
}

// Tiles returns every tile coordinate with at least one object.
func (idx *Index) Tiles() []Coord {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]Coord, 0, len(idx.byTile))
	for c := range idx.byTile {
		out = append(out, c)
	}
	return out
}

// At returns the objects stored at tile c.
func (idx *Index) At(c Coord) []ObjectRef {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.byTile[c]
}

// lonToTileX and latpToTileY implement the linear tile formulas spec §1's
// fixed latp transform makes possible: with latp already in Mercator-
// projected degrees, Y divides by 360 exactly like X does, with no
// trigonometry at this layer.
func lonToTileX(lon float64, zoom int) int64 {
	n := math.Exp2(float64(zoom))
	x := int64(math.Floor((lon + 180.0) / 360.0 * n))
	return clampTileIndex(x, int64(n))
}

func latpToTileY(latp float64, zoom int) int64 {
	n := math.Exp2(float64(zoom))
	y := int64(math.Floor((180.0 - latp) / 360.0 * n))
	return clampTileIndex(y, int64(n))
}

func clampTileIndex(v, n int64) int64 {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// AddPolygon inserts oo into every tile covered by bound at this index's
// base zoom (spec §4.8: "inserts the object into every tile covered by the
// geometry's bounding box"; the per-tile encoder clips precisely later).
func (idx *Index) AddPolygon(bound orb.Bound, oo ObjectRef) {
	xMin := lonToTileX(bound.Min[0], idx.baseZoom)
	xMax := lonToTileX(bound.Max[0], idx.baseZoom)
	yMin := latpToTileY(bound.Max[1], idx.baseZoom) // Max latp -> smaller Y
	yMax := latpToTileY(bound.Min[1], idx.baseZoom)

	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			idx.Add(Coord{X: uint32(x), Y: uint32(y)}, oo)
		}
	}
}

// AddPoint inserts oo into the single tile containing p (spec §4.8).
func (idx *Index) AddPoint(p orb.Point, oo ObjectRef) {
	idx.Add(idx.tileFor(p), oo)
}

// AddLinestring inserts oo into every tile the polyline passes through,
// walking each segment with a Bresenham-style integer line traversal
// instead of materializing the bounding-box superset (spec §4.8).
func (idx *Index) AddLinestring(ls orb.LineString, oo ObjectRef) {
	if len(ls) == 0 {
		return
	}
	seen := map[Coord]struct{}{}
	emit := func(c Coord) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		idx.Add(c, oo)
	}

	if len(ls) == 1 {
		emit(idx.tileFor(ls[0]))
		return
	}

	for i := 0; i < len(ls)-1; i++ {
		bresenhamTiles(idx.tileFor(ls[i]), idx.tileFor(ls[i+1]), emit)
	}
}

func (idx *Index) tileFor(p orb.Point) Coord {
	return Coord{
		X: uint32(lonToTileX(p[0], idx.baseZoom)),
		Y: uint32(latpToTileY(p[1], idx.baseZoom)),
	}
}

// bresenhamTiles calls emit for every tile on the integer line from a to b,
// inclusive of both endpoints.
func bresenhamTiles(a, b Coord, emit func(Coord)) {
	x0, y0 := int64(a.X), int64(a.Y)
	x1, y1 := int64(b.X), int64(b.Y)

	dx := abs64(x1 - x0)
	dy := -abs64(y1 - y0)
	sx := int64(1)
	if x0 >= x1 {
		sx = -1
	}
	sy := int64(1)
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		emit(Coord{X: uint32(x), Y: uint32(y)})
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// SortAndDedup sorts refs by their ordering key and removes consecutive
// duplicates in place, returning the deduplicated slice (spec §4.10's
// per-tile object list step, shared with internal/rollup).
func SortAndDedup(refs []ObjectRef) []ObjectRef {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	if len(refs) == 0 {
		return refs
	}
	out := refs[:1]
	for _, r := range refs[1:] {
		if !out[len(out)-1].Equal(r) {
			out = append(out, r)
		}
	}
	return out
}
