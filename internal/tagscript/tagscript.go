// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

// Package tagscript defines the synchronous callback contract the
// user-supplied tag-processing script runtime uses to emit OutputObjects
// into the Tile Index (spec §1, §6, §9's "Async / callbacks" note: no
// asynchronous suspension is required, so this is a plain interface rather
// than a channel or future).
package tagscript

import (
	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/geometry"
)

// Emitter is handed to the external tag-processing runtime so that, given a
// primitive and its tag map, it may call back zero or more times to record
// a produced feature.
type Emitter interface {
	// EmitObject records one OutputObject on layer: kind and handle locate
	// its geometry in the Generated-Geometry Store's OSM namespace,
	// minZoom is the lowest zoom it should appear at, and attrsRef is an
	// opaque reference to its attribute blob (spec §3's OutputObject).
	EmitObject(layer string, kind geometry.Kind, handle arena.Handle, minZoom int, attrsRef arena.Handle) error
}
