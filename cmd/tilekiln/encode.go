// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tilekiln/tilekiln/internal/sink"
	"github.com/tilekiln/tilekiln/internal/tileindex"
)

// placeholderEncoder stands in for the real per-tile vector encoder
// spec.md's Design Notes leave as an external collaborator. It serializes a
// tile's resolved object list as JSON rather than a real vector-tile wire
// format, which is enough to exercise internal/emitter's driver and
// internal/sink's writers end to end without depending on an unimplemented
// protocol. When attrs is non-nil, it also persists a placeholder
// attribute blob per object so internal/sink's DuckDB store sees real
// traffic.
type placeholderEncoder struct {
	attrs *sink.DuckDBAttributeStore
}

// tileFeature is the JSON shape a real encoder's MVT feature list would
// eventually replace.
type tileFeature struct {
	Layer    string `json:"layer"`
	Kind     string `json:"kind"`
	Handle   uint64 `json:"handle"`
	MinZoom  int    `json:"min_zoom"`
	AttrsRef uint64 `json:"attrs_ref,omitempty"`
}

func (e placeholderEncoder) Encode(ctx context.Context, zoom int, c tileindex.Coord, objs []tileindex.ObjectRef) ([]byte, error) {
	features := make([]tileFeature, 0, len(objs))
	for _, o := range objs {
		if e.attrs != nil && o.AttrsRef != 0 {
			blob, err := json.Marshal(map[string]any{"layer": o.LayerID, "kind": o.Kind.String()})
			if err != nil {
				return nil, fmt.Errorf("marshaling placeholder attrs for %s: %w", o.LayerID, err)
			}
			if err := e.attrs.Put(ctx, o.LayerID, uint64(o.AttrsRef), blob); err != nil {
				return nil, fmt.Errorf("persisting placeholder attrs for %s: %w", o.LayerID, err)
			}
		}
		features = append(features, tileFeature{
			Layer:    o.LayerID,
			Kind:     o.Kind.String(),
			Handle:   uint64(o.Handle),
			MinZoom:  o.MinZoom,
			AttrsRef: uint64(o.AttrsRef),
		})
	}

	data, err := json.Marshal(struct {
		Zoom     int           `json:"zoom"`
		X        uint32        `json:"x"`
		Y        uint32        `json:"y"`
		Features []tileFeature `json:"features"`
	}{Zoom: zoom, X: c.X, Y: c.Y, Features: features})
	if err != nil {
		return nil, fmt.Errorf("marshaling tile %d/%d/%d: %w", zoom, c.X, c.Y, err)
	}
	return data, nil
}
