// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package spatialindex

import "github.com/paulmach/orb"

// Intersects reports whether geom exactly intersects box, used to
// re-verify R-tree bounding-box candidates (spec §4.9). orb has no
// built-in polygon/line-vs-box predicate, so this implements the standard
// three-part test directly: any vertex inside the box, any box corner
// inside the geometry, or any edge crossing a box edge.
func Intersects(geom orb.Geometry, box orb.Bound) bool {
	if !geom.Bound().Intersects(box) {
		return false
	}

	switch g := geom.(type) {
	case orb.Point:
		return box.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if box.Contains(p) {
				return true
			}
		}
		return false
	case orb.LineString:
		return lineIntersectsBox(g, box)
	case orb.MultiLineString:
		for _, ls := range g {
			if lineIntersectsBox(ls, box) {
				return true
			}
		}
		return false
	case orb.Ring:
		return ringIntersectsBox(g, box)
	case orb.Polygon:
		return polygonIntersectsBox(g, box)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonIntersectsBox(p, box) {
				return true
			}
		}
		return false
	default:
		// Unknown geometry kind: the bounding-box pre-check above is the
		// best we can do.
		return true
	}
}

func boxCorners(box orb.Bound) [4]orb.Point {
	return [4]orb.Point{
		{box.Min[0], box.Min[1]},
		{box.Max[0], box.Min[1]},
		{box.Max[0], box.Max[1]},
		{box.Min[0], box.Max[1]},
	}
}

func lineIntersectsBox(ls orb.LineString, box orb.Bound) bool {
	for _, p := range ls {
		if box.Contains(p) {
			return true
		}
	}
	corners := boxCorners(box)
	for i := 0; i < len(ls)-1; i++ {
		for j := 0; j < 4; j++ {
			if segmentsIntersect(ls[i], ls[i+1], corners[j], corners[(j+1)%4]) {
				return true
			}
		}
	}
	return false
}

func ringIntersectsBox(r orb.Ring, box orb.Bound) bool {
	return lineIntersectsBox(orb.LineString(r), box) || polygonContainsAnyCorner(orb.Polygon{r}, box)
}

func polygonIntersectsBox(p orb.Polygon, box orb.Bound) bool {
	for _, ring := range p {
		if lineIntersectsBox(orb.LineString(ring), box) {
			return true
		}
	}
	return polygonContainsAnyCorner(p, box)
}

func polygonContainsAnyCorner(p orb.Polygon, box orb.Bound) bool {
	if len(p) == 0 {
		return false
	}
	for _, corner := range boxCorners(box) {
		if pointInPolygon(corner, p) {
			return true
		}
	}
	return false
}

// pointInPolygon reports whether pt is inside p's outer ring and not inside
// any of its holes.
func pointInPolygon(pt orb.Point, p orb.Polygon) bool {
	if len(p) == 0 || !pointInRing(pt, p[0]) {
		return false
	}
	for _, hole := range p[1:] {
		if pointInRing(pt, hole) {
			return false
		}
	}
	return true
}

// pointInRing is the standard even-odd ray-casting test; r need not be
// explicitly closed.
func pointInRing(pt orb.Point, r orb.Ring) bool {
	inside := false
	n := len(r)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
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

// segmentsIntersect reports whether segments (p1,p2) and (p3,p4) cross,
// using the standard orientation-based test.
func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p4, p3, p1)
	d2 := cross(p4, p3, p2)
	d3 := cross(p2, p1, p3)
	d4 := cross(p2, p1, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(p4, p3, p1) {
		return true
	}
	if d2 == 0 && onSegment(p4, p3, p2) {
		return true
	}
	if d3 == 0 && onSegment(p2, p1, p3) {
		return true
	}
	if d4 == 0 && onSegment(p2, p1, p4) {
		return true
	}
	return false
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
