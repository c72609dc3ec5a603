// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package shpsrc defines the contract between the core and the shapefile
// reader spec.md §1 treats as an external collaborator. The reader calls
// AddShapeObject once per decoded feature (spec §6).
package shpsrc

import "github.com/paulmach/orb"

// Sink is the callback surface a shapefile reader drives during ingest.
type Sink interface {
	// AddShapeObject records one shapefile feature on layer, storing its
	// geometry in the Generated-Geometry Store's shapefile namespace (C6)
	// and, when indexed is true, its bounding box in the named R-tree (C9)
	// so later intersect queries can find it by name string attrs carries.
	AddShapeObject(layer string, geom orb.Geometry, name string, attrs map[string]any, indexed bool) error
}
