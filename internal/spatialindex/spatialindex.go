// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package spatialindex

import (
	"fmt"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/metrics"
)

const (
	minBranchFactor = 25
	maxBranchFactor = 50
	rectEpsilon     = 1e-9 // rtreego rejects zero-length rectangle sides
)

// Hit is one candidate returned by FindIntersectingIDs, carrying both the
// id and the name originally supplied to Add (spec's "named geometries"
// retrieval, recovered from original_source/ — see SPEC_FULL.md).
type Hit struct {
	ID   int64
	Name string
}

// entry is the rtreego.Spatial implementation wrapping one indexed
// shapefile geometry.
type entry struct {
	id   int64
	name string
	geom orb.Geometry
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index holds one R-tree per named layer (spec §4.9).
type Index struct {
	mu      sync.RWMutex
	trees   map[string]*rtreego.Rtree
	entries map[string]map[int64]*entry
	nextID  map[string]int64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		trees:   map[string]*rtreego.Rtree{},
		entries: map[string]map[int64]*entry{},
		nextID:  map[string]int64{},
	}
}

func boundToRect(b orb.Bound) (rtreego.Rect, error) {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < rectEpsilon {
		w = rectEpsilon
	}
	if h < rectEpsilon {
		h = rectEpsilon
	}
	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
}

// Add inserts geom into layer's R-tree, labeled with name, and returns the
// id assigned to it. IDs are assigned sequentially per layer.
func (idx *Index) Add(layer string, geom orb.Geometry, name string) (int64, error) {
	rect, err := boundToRect(geom.Bound())
	if err != nil {
		return 0, fmt.Errorf("tilekiln: building R-tree rect for layer %q: %w", layer, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	tree, ok := idx.trees[layer]
	if !ok {
		tree = rtreego.NewTree(2, minBranchFactor, maxBranchFactor)
		idx.trees[layer] = tree
		idx.entries[layer] = map[int64]*entry{}
	}

	id := idx.nextID[layer] + 1
	idx.nextID[layer] = id

	e := &entry{id: id, name: name, geom: geom, rect: rect}
	tree.Insert(e)
	idx.entries[layer][id] = e

	return id, nil
}

// Intersects reports whether any geometry indexed in layer intersects box,
// using the same exact-geometry check as FindIntersectingIDs.
func (idx *Index) Intersects(layer string, box orb.Bound) (bool, error) {
	hits, err := idx.FindIntersectingIDs(layer, box)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

// FindIntersectingIDs returns every geometry in layer whose exact shape
// intersects box. R-tree candidates are first gathered by bounding-box
// overlap, then each is re-verified against its exact geometry before
// being included, per spec §4.9.
func (idx *Index) FindIntersectingIDs(layer string, box orb.Bound) ([]Hit, error) {
	rect, err := boundToRect(box)
	if err != nil {
		return nil, fmt.Errorf("tilekiln: building R-tree query rect for layer %q: %w", layer, err)
	}

	idx.mu.RLock()
	tree, ok := idx.trees[layer]
	if !ok {
		idx.mu.RUnlock()
		return nil, nil
	}
	candidates := tree.SearchIntersect(&rect)
	idx.mu.RUnlock()

	metrics.SpatialIndexCandidates.Observe(float64(len(candidates)))

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		e, ok := c.(*entry)
		if !ok {
			continue
		}
		if Intersects(e.geom, box) {
			hits = append(hits, Hit{ID: e.id, Name: e.name})
		}
	}
	return hits, nil
}

// Geometry looks up the exact geometry stored for id in layer.
func (idx *Index) Geometry(layer string, id int64) (orb.Geometry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.entries[layer]
	if !ok {
		return nil, false
	}
	e, ok := m[id]
	if !ok {
		return nil, false
	}
	return e.geom, true
}
