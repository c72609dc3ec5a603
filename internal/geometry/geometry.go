// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/logging"
	"github.com/tilekiln/tilekiln/internal/metrics"
	"github.com/tilekiln/tilekiln/internal/osmstore"
)

// Kind tags the geometry a produced OutputObject carries (spec §3).
type Kind uint8

const (
	KindPoint Kind = iota
	KindLinestring
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLinestring:
		return "linestring"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// NodeLookup resolves a NodeID to its coordinate, as the Node Store does.
type NodeLookup func(osmstore.NodeID) (osmstore.LatpLon, error)

// WayLookup resolves a WayID to its ordered node sequence, as the Way Store
// does.
type WayLookup func(osmstore.WayID) ([]osmstore.NodeID, error)

// toPoint converts a fixed-point coordinate to an orb.Point in degrees,
// matching spec §4.7's "(lon/1e7, latp/1e7)" output.
func toPoint(c osmstore.LatpLon) orb.Point {
	return orb.Point{c.LonDegrees(), c.LatpDegrees()}
}

// NodeListLinestring resolves nodes in order and emits their coordinates as
// a linestring (spec §4.7). A NodeID the lookup cannot find is a fatal error
// here: unlike polygon/multipolygon assembly, a linestring has no
// ring-level "skip and warn" fallback in the original design.
func NodeListLinestring(nodes []osmstore.NodeID, lookup NodeLookup) (orb.LineString, error) {
	ls := make(orb.LineString, 0, len(nodes))
	for _, id := range nodes {
		c, err := lookup(id)
		if err != nil {
			return nil, fmt.Errorf("tilekiln: resolving node %d for linestring: %w", id, err)
		}
		ls = append(ls, toPoint(c))
	}
	return ls, nil
}

// NodeListPolygon resolves nodes into a single outer ring, closing it if
// necessary and correcting its winding to counter-clockwise (spec §4.7).
func NodeListPolygon(nodes []osmstore.NodeID, lookup NodeLookup) (orb.Ring, error) {
	ls, err := NodeListLinestring(nodes, lookup)
	if err != nil {
		return nil, err
	}
	ring := orb.Ring(ls)
	ring = closeRing(ring)
	return orientRing(ring, true), nil
}

// closeRing appends the first point again if the ring is not already
// closed.
func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if r[0] != r[len(r)-1] {
		closed := make(orb.Ring, len(r)+1)
		copy(closed, r)
		closed[len(r)] = r[0]
		return closed
	}
	return r
}

// signedArea computes twice the shoelace-formula signed area of r; positive
// means counter-clockwise under the (x, y) = (lon, latp) axis convention
// used throughout this package.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		a, b := r[i], r[i+1]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum
}

// reverseRing returns r with its point order reversed.
func reverseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// orientRing returns r wound counter-clockwise if ccw is true, clockwise
// otherwise, reversing it if its current winding disagrees (spec §4.7
// "apply ring-correctness ... winding").
func orientRing(r orb.Ring, ccw bool) orb.Ring {
	area := signedArea(r)
	isCCW := area > 0
	if isCCW == ccw {
		return r
	}
	return reverseRing(r)
}

// pointInRing reports whether pt lies inside r using the standard even-odd
// ray-casting rule. r is assumed closed (first point equals last).
func pointInRing(pt orb.Point, r orb.Ring) bool {
	inside := false
	n := len(r)
	if n < 4 {
		return false
	}
	for i, j := 0, n-2; i < n-1; j, i = i, i+1 {
		pi, pj := r[i], r[j]
		if (pi[1] > pt[1]) != (pj[1] > pt[1]) {
			xIntersect := (pj[0]-pi[0])*(pt[1]-pi[1])/(pj[1]-pi[1]) + pi[0]
			if pt[0] < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// ringWithinRing reports whether every vertex of inner lies inside outer.
// Spec §4.7 explicitly calls out that a point-in-polygon test on only the
// inner ring's first vertex is insufficient; this checks all of them
// (sufficient for the simple, non-self-intersecting rings OSM multipolygon
// conventions assume).
func ringWithinRing(inner, outer orb.Ring) bool {
	ob := outer.Bound()
	for _, p := range inner {
		if !ob.Contains(p) {
			return false
		}
		if !pointInRing(p, outer) {
			return false
		}
	}
	return true
}

// mergedWay is one candidate sequence being stitched: the node IDs plus
// whether it has already been folded into a closed result ring.
type mergedWay struct {
	nodes []osmstore.NodeID
	done  bool
}

// mergeWays implements spec §4.7's fixpoint ring-stitching algorithm:
// repeatedly close or splice candidate node sequences until every one has
// been folded into a closed ring, seeding a fresh ring whenever a pass
// makes no progress (required for multi-component outers, per spec's
// Design Notes).
func mergeWays(ways [][]osmstore.NodeID) [][]osmstore.NodeID {
	candidates := make([]mergedWay, len(ways))
	for i, w := range ways {
		candidates[i] = mergedWay{nodes: w}
	}

	var rings [][]osmstore.NodeID

	remaining := len(candidates)
	for remaining > 0 {
		added := 0
		for i := range candidates {
			if candidates[i].done {
				continue
			}
			n := candidates[i].nodes
			if len(n) == 0 {
				candidates[i].done = true
				remaining--
				added++
				continue
			}
			if n[0] == n[len(n)-1] {
				rings = append(rings, n)
				candidates[i].done = true
				remaining--
				added++
				continue
			}
			if spliceInto(&rings, n) {
				candidates[i].done = true
				remaining--
				added++
			}
		}

		if added == 0 && remaining > 0 {
			// Seed step: start a fresh partial ring from any undone way so a
			// second (or later) disjoint component can begin (spec §4.7).
			for i := range candidates {
				if !candidates[i].done {
					rings = append(rings, append([]osmstore.NodeID{}, candidates[i].nodes...))
					candidates[i].done = true
					remaining--
					break
				}
			}
		}
	}

	return rings
}

// spliceInto tries to attach j to one of the open (not yet closed) entries
// in rings, following spec §4.7's endpoint-match table. It returns true if
// a splice happened. A degenerate j (already closed) is never passed here;
// mergeWays handles that case itself.
func spliceInto(rings *[][]osmstore.NodeID, j []osmstore.NodeID) bool {
	for idx, o := range *rings {
		if len(o) == 0 || o[0] == o[len(o)-1] {
			continue // already closed; not an open partial to splice onto
		}
		oFirst, oLast := o[0], o[len(o)-1]
		jFirst, jLast := j[0], j[len(j)-1]

		switch {
		case oLast == jFirst:
			(*rings)[idx] = append(o, j[1:]...)
		case oLast == jLast:
			(*rings)[idx] = append(o, reverseNodeIDs(j)[1:]...)
		case jLast == oFirst:
			(*rings)[idx] = append(append([]osmstore.NodeID{}, j[:len(j)-1]...), o...)
		case jFirst == oFirst:
			(*rings)[idx] = append(append([]osmstore.NodeID{}, reverseNodeIDs(j)[:len(j)-1]...), o...)
		default:
			continue
		}
		return true
	}
	return false
}

func reverseNodeIDs(ids []osmstore.NodeID) []osmstore.NodeID {
	out := make([]osmstore.NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// resolveRing converts a stitched NodeID sequence into an orb.Ring. If any
// node cannot be resolved (spec §4.7's "Unknown NodeID encountered during
// fill" edge case) it logs a warning and drops the whole stitched ring; the
// individual member way holding the unknown node is not isolated.
func resolveRing(ids []osmstore.NodeID, lookup NodeLookup, ccw bool) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(ids))
	for _, id := range ids {
		c, err := lookup(id)
		if err != nil {
			logging.Warn().Int64("node_id", int64(id)).Msg("multipolygon ring references unknown node, skipping ring")
			metrics.RecordDegenerateWay("missing_way")
			return nil, false
		}
		ring = append(ring, toPoint(c))
	}
	if len(ring) < 4 {
		metrics.RecordDegenerateWay("degenerate_ring")
		return nil, false
	}
	return orientRing(closeRing(ring), ccw), true
}

// WayListMultipolygon assembles a multipolygon from a relation's outer and
// inner way members (spec §4.7). outerWays/innerWays give each member's
// resolved node-id sequence (the caller having already looked them up via
// the Way Store). Per-ring skip warnings are logged at Warn level, so the
// configured logging level decides whether they appear; they are always
// counted in metrics regardless.
func WayListMultipolygon(outerWays, innerWays [][]osmstore.NodeID, lookup NodeLookup) (orb.MultiPolygon, error) {
	if len(outerWays) == 0 {
		return orb.MultiPolygon{}, nil
	}

	outerLoops := mergeWays(outerWays)
	innerLoops := mergeWays(innerWays)

	var outerRings []orb.Ring
	for _, loop := range outerLoops {
		if r, ok := resolveRing(loop, lookup, true); ok {
			outerRings = append(outerRings, r)
		}
	}

	var innerRings []orb.Ring
	for _, loop := range innerLoops {
		if r, ok := resolveRing(loop, lookup, false); ok {
			innerRings = append(innerRings, r)
		}
	}

	mp := make(orb.MultiPolygon, 0, len(outerRings))
	attached := make([]bool, len(innerRings))
	for _, outer := range outerRings {
		poly := orb.Polygon{outer}
		for i, inner := range innerRings {
			if attached[i] {
				continue
			}
			if ringWithinRing(inner, outer) {
				poly = append(poly, inner)
				attached[i] = true
			}
		}
		mp = append(mp, poly)
	}

	for _, ok := range attached {
		if !ok {
			logging.Warn().Msg("multipolygon inner ring not contained by any outer ring, dropping")
			metrics.RecordDegenerateWay("inner_not_contained")
		}
	}

	return mp, nil
}
