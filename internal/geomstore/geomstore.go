// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package geomstore

import (
	"encoding/binary"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/tilekiln/tilekiln/internal/arena"
	"github.com/tilekiln/tilekiln/internal/errs"
)

// Namespace selects one of the two generated-geometry buckets (spec §4.6):
// geometry produced from OSM primitives by the tag script, and geometry
// produced during shapefile ingest.
type Namespace uint8

const (
	OSM Namespace = iota
	Shapefile
)

func (ns Namespace) String() string {
	if ns == Shapefile {
		return "shp_generated"
	}
	return "osm_generated"
}

func (ns Namespace) containerPrefix() string {
	if ns == Shapefile {
		return "shp_generated"
	}
	return "osm_generated"
}

// Store holds the two namespaces' point, linestring, and multipolygon
// sequences. Each kind within a namespace gets its own arena container so a
// growth event in one never disturbs the others.
type Store struct {
	points   [2]*arena.Container
	lines    [2]*arena.Container
	polygons [2]*arena.Container
}

// New creates a Store backed by a, opening (or creating) the six
// named containers it needs.
func New(a *arena.Arena) (*Store, error) {
	s := &Store{}
	for _, ns := range []Namespace{OSM, Shapefile} {
		p, err := a.Container(ns.containerPrefix()+".points", arena.KindGeomStore)
		if err != nil {
			return nil, err
		}
		l, err := a.Container(ns.containerPrefix()+".lines", arena.KindGeomStore)
		if err != nil {
			return nil, err
		}
		m, err := a.Container(ns.containerPrefix()+".polygons", arena.KindGeomStore)
		if err != nil {
			return nil, err
		}
		s.points[ns] = p
		s.lines[ns] = l
		s.polygons[ns] = m
	}
	return s, nil
}

// record writes a length-prefixed JSON-encoded value into c and returns a
// Handle to it. orb's geometry types are plain (possibly nested) float64
// arrays, so goccy/go-json round-trips them without any custom codec.
func record(c *arena.Container, v any) (arena.Handle, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return arena.NilHandle, fmt.Errorf("tilekiln: encoding generated geometry: %w", err)
	}
	h, err := c.Alloc(4 + len(data))
	if err != nil {
		return arena.NilHandle, fmt.Errorf("tilekiln: storing generated geometry: %w", err)
	}
	buf := c.Bytes(h, 4+len(data))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], data)
	return h, nil
}

func retrieve[T any](c *arena.Container, h arena.Handle) (T, error) {
	var zero T
	n := c.Bytes(h, 4)
	length := binary.LittleEndian.Uint32(n)
	buf := c.Bytes(h, 4+int(length))
	var v T
	if err := gojson.Unmarshal(buf[4:], &v); err != nil {
		return zero, fmt.Errorf("tilekiln: decoding generated geometry at handle %d: %w", h, err)
	}
	return v, nil
}

// StorePoint appends p to ns's point sequence and returns its Handle.
func (s *Store) StorePoint(ns Namespace, p orb.Point) (arena.Handle, error) {
	return record(s.points[ns], p)
}

// StoreLinestring appends ls to ns's linestring sequence and returns its
// Handle.
func (s *Store) StoreLinestring(ns Namespace, ls orb.LineString) (arena.Handle, error) {
	return record(s.lines[ns], ls)
}

// StoreMultipolygon appends mp to ns's multipolygon sequence and returns its
// Handle.
func (s *Store) StoreMultipolygon(ns Namespace, mp orb.MultiPolygon) (arena.Handle, error) {
	return record(s.polygons[ns], mp)
}

// RetrievePoint decodes the point previously stored at h in ns.
func (s *Store) RetrievePoint(ns Namespace, h arena.Handle) (orb.Point, error) {
	return retrieve[orb.Point](s.points[ns], h)
}

// RetrieveLinestring decodes the linestring previously stored at h in ns.
func (s *Store) RetrieveLinestring(ns Namespace, h arena.Handle) (orb.LineString, error) {
	return retrieve[orb.LineString](s.lines[ns], h)
}

// RetrieveMultipolygon decodes the multipolygon previously stored at h in ns.
func (s *Store) RetrieveMultipolygon(ns Namespace, h arena.Handle) (orb.MultiPolygon, error) {
	if h == arena.NilHandle {
		return nil, fmt.Errorf("tilekiln: geomstore retrieve called with nil handle: %w", errs.ErrInvariantViolation)
	}
	return retrieve[orb.MultiPolygon](s.polygons[ns], h)
}
